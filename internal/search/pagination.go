package search

import "github.com/Skotchmaster/storefront/internal/store"

const DefaultItemsPerPage = 18

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
}

func InitialPagination(perPage int) Pagination {
	if perPage < 1 {
		perPage = DefaultItemsPerPage
	}
	return Pagination{CurrentPage: 1, ItemsPerPage: perPage}
}

// TotalPages is ceil(TotalItems/ItemsPerPage).
func (p Pagination) TotalPages() int {
	if p.ItemsPerPage < 1 || p.TotalItems <= 0 {
		return 0
	}
	return (p.TotalItems + p.ItemsPerPage - 1) / p.ItemsPerPage
}

// Window returns the [start, end) bounds of the current page within n items.
func (p Pagination) Window(n int) (start, end int) {
	page, size := p.CurrentPage, p.ItemsPerPage
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultItemsPerPage
	}
	start = (page - 1) * size
	end = start + size
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	return start, end
}

// clamp keeps 1 <= CurrentPage <= max(1, TotalPages).
func (p Pagination) clamp() Pagination {
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
	if pages := p.TotalPages(); p.CurrentPage > pages && pages > 0 {
		p.CurrentPage = pages
	} else if pages == 0 {
		p.CurrentPage = 1
	}
	return p
}

type setCurrentPage struct{ page int }

func (setCurrentPage) ActionType() string { return "pagination/setCurrentPage" }

type setTotalItems struct{ n int }

func (setTotalItems) ActionType() string { return "pagination/setTotalItems" }

type setItemsPerPage struct{ n int }

func (setItemsPerPage) ActionType() string { return "pagination/setItemsPerPage" }

type nextPage struct{}

func (nextPage) ActionType() string { return "pagination/nextPage" }

type previousPage struct{}

func (previousPage) ActionType() string { return "pagination/previousPage" }

type resetPagination struct{}

func (resetPagination) ActionType() string { return "pagination/reset" }

func ReducePagination(p Pagination, a store.Action) Pagination {
	switch a := a.(type) {
	case setCurrentPage:
		p.CurrentPage = a.page
		p = p.clamp()
	case setTotalItems:
		p.TotalItems = max(0, a.n)
		p = p.clamp()
	case setItemsPerPage:
		if a.n >= 1 {
			p.ItemsPerPage = a.n
			p.CurrentPage = 1
		}
	case nextPage:
		if p.CurrentPage < p.TotalPages() {
			p.CurrentPage++
		}
	case previousPage:
		if p.CurrentPage > 1 {
			p.CurrentPage--
		}
	case resetPagination:
		p.CurrentPage = 1
		p.TotalItems = 0
	}
	return p
}
