package search

import "github.com/Skotchmaster/storefront/internal/store"

const AllCategories = "all"

type State struct {
	Query    string `json:"searchQuery"`
	Category string `json:"selectedCategory"`
}

func Initial() State {
	return State{Category: AllCategories}
}

type setQuery struct{ q string }

func (setQuery) ActionType() string { return "search/setSearchQuery" }

type setInitialQuery struct{ q string }

func (setInitialQuery) ActionType() string { return "search/setInitialSearchQuery" }

type setCategory struct{ c string }

func (setCategory) ActionType() string { return "search/setSelectedCategory" }

type reset struct{}

func (reset) ActionType() string { return "search/reset" }

func Reduce(s State, a store.Action) State {
	switch a := a.(type) {
	case setQuery:
		s.Query = a.q
	case setInitialQuery:
		s.Query = a.q
	case setCategory:
		s.Category = a.c
		if s.Category == "" {
			s.Category = AllCategories
		}
	case reset:
		s = Initial()
	}
	return s
}
