package catalog

import (
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
)

const (
	keyProducts   = "products"
	keyProduct    = "product"
	keyDistinct   = "distinct"
	keyBrands     = "brands"
	keyCategories = "categories"
)

type State struct {
	Products         []models.Product  `json:"products"`
	Product          *models.Product   `json:"product,omitempty"`
	DistinctProducts []models.Product  `json:"distinctProducts"`
	Brands           []string          `json:"brands"`
	SelectedBrands   []string          `json:"selectedBrands"`
	Categories       []models.Category `json:"categories"`
	Quantity         int               `json:"quantity"`
	IsLoading        bool              `json:"isLoading"`
	Error            string            `json:"error,omitempty"`
	SuccessMessage   string            `json:"successMessage,omitempty"`

	loading int
	tags    store.Tags
}

func Initial() State {
	return State{
		Products:         []models.Product{},
		DistinctProducts: []models.Product{},
		Brands:           []string{},
		SelectedBrands:   []string{},
		Categories:       []models.Category{},
		Quantity:         1,
	}
}

// fetched carries one phase of a read whose result replaces part of the state.
type fetched struct {
	op      string
	key     string
	status  store.Status
	seq     uint64
	message string
	apply   func(State) State
}

func (a fetched) ActionType() string { return "catalog/" + a.op }

type mutated struct {
	op      string
	status  store.Status
	message string
	apply   func(State) State
}

func (a mutated) ActionType() string { return "catalog/" + a.op }

type brandFilter struct {
	brand    string
	included bool
}

func (brandFilter) ActionType() string { return "catalog/filterByBrand" }

type setQuantity struct{ n int }

func (setQuantity) ActionType() string { return "catalog/setQuantity" }

type addBrand struct{ brand string }

func (addBrand) ActionType() string { return "catalog/addBrand" }

type addCategory struct{ category models.Category }

func (addCategory) ActionType() string { return "catalog/addCategory" }

type clearError struct{}

func (clearError) ActionType() string { return "catalog/clearError" }

type clearSuccess struct{}

func (clearSuccess) ActionType() string { return "catalog/clearSuccess" }

// Reduce is the catalog slice reducer.
func Reduce(s State, a store.Action) State {
	switch a := a.(type) {
	case fetched:
		switch a.status {
		case store.Pending:
			s = s.begin()
			s.tags = s.tags.Issue(a.key, a.seq)
		case store.Fulfilled, store.Rejected:
			s = s.end()
			if !s.tags.Current(a.key, a.seq) {
				return s
			}
			if a.status == store.Rejected {
				s.Error = a.message
				return s
			}
			s = a.apply(s)
		}
	case mutated:
		switch a.status {
		case store.Pending:
			s = s.begin()
		case store.Fulfilled:
			s = s.end()
			s = a.apply(s)
			s.SuccessMessage = a.message
		case store.Rejected:
			s = s.end()
			s.Error = a.message
		}
	case brandFilter:
		s.SelectedBrands = toggle(s.SelectedBrands, a.brand, a.included)
	case setQuantity:
		if a.n >= 1 {
			s.Quantity = a.n
		}
	case addBrand:
		s.Brands = append(append([]string(nil), s.Brands...), a.brand)
	case addCategory:
		s.Categories = append(append([]models.Category(nil), s.Categories...), a.category)
	case clearError:
		s.Error = ""
	case clearSuccess:
		s.SuccessMessage = ""
	}
	return s
}

func (s State) begin() State {
	s.loading++
	s.IsLoading = true
	s.Error = ""
	return s
}

func (s State) end() State {
	if s.loading > 0 {
		s.loading--
	}
	s.IsLoading = s.loading > 0
	return s
}

func toggle(selected []string, brand string, included bool) []string {
	out := make([]string, 0, len(selected)+1)
	for _, b := range selected {
		if b != brand {
			out = append(out, b)
		}
	}
	if included {
		out = append(out, brand)
	}
	return out
}
