package storefront

import (
	"github.com/Skotchmaster/storefront/internal/account"
	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/store"
)

// State is the whole client state, one field per slice.
type State struct {
	Auth       auth.State        `json:"auth"`
	Catalog    catalog.State     `json:"product"`
	Search     search.State      `json:"search"`
	Pagination search.Pagination `json:"pagination"`
	Cart       cart.State        `json:"cart"`
	Order      checkout.State    `json:"order"`
	Account    account.State     `json:"user"`
}

func Initial(itemsPerPage int) State {
	return State{
		Auth:       auth.Initial(),
		Catalog:    catalog.Initial(),
		Search:     search.Initial(),
		Pagination: search.InitialPagination(itemsPerPage),
		Cart:       cart.Initial(),
		Order:      checkout.Initial(),
		Account:    account.Initial(),
	}
}

// Reduce hands every action to every slice. Ending a session also drops the
// slices that belong to the signed-in user.
func Reduce(s State, a store.Action) State {
	s.Auth = auth.Reduce(s.Auth, a)
	s.Catalog = catalog.Reduce(s.Catalog, a)
	s.Search = search.Reduce(s.Search, a)
	s.Pagination = search.ReducePagination(s.Pagination, a)
	s.Cart = cart.Reduce(s.Cart, a)
	s.Order = checkout.Reduce(s.Order, a)
	s.Account = account.Reduce(s.Account, a)

	switch a.(type) {
	case auth.LoggedOut, auth.SessionExpired:
		s.Cart = cart.Initial()
		s.Order = checkout.Initial()
		countries := s.Account.CountryNames
		s.Account = account.Initial()
		s.Account.CountryNames = countries
	}
	return s
}
