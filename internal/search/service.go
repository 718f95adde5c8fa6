package search

import "github.com/Skotchmaster/storefront/internal/store"

// Service issues search-filter and pagination actions. Both are local only.
type Service struct {
	d store.Dispatcher
}

func NewService(d store.Dispatcher) *Service {
	return &Service{d: d}
}

func (s *Service) SetQuery(q string)        { s.d.Dispatch(setQuery{q: q}) }
func (s *Service) SetInitialQuery(q string) { s.d.Dispatch(setInitialQuery{q: q}) }
func (s *Service) SetCategory(c string)     { s.d.Dispatch(setCategory{c: c}) }
func (s *Service) Reset()                   { s.d.Dispatch(reset{}) }

func (s *Service) SetCurrentPage(page int) { s.d.Dispatch(setCurrentPage{page: page}) }
func (s *Service) SetTotalItems(n int)     { s.d.Dispatch(setTotalItems{n: n}) }
func (s *Service) SetItemsPerPage(n int)   { s.d.Dispatch(setItemsPerPage{n: n}) }
func (s *Service) NextPage()               { s.d.Dispatch(nextPage{}) }
func (s *Service) PreviousPage()           { s.d.Dispatch(previousPage{}) }
func (s *Service) ResetPagination()        { s.d.Dispatch(resetPagination{}) }
