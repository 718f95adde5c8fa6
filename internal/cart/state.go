package cart

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
)

const keyCart = "cart"

type State struct {
	CartID         models.ID         `json:"cartId,omitempty"`
	Items          []models.CartItem `json:"items"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	IsLoading      bool              `json:"isLoading"`
	Error          string            `json:"error,omitempty"`
	SuccessMessage string            `json:"successMessage,omitempty"`

	lines   store.Tracked[[]models.CartItem]
	loading int
	tags    store.Tags
}

func Initial() State {
	return State{Items: []models.CartItem{}, TotalAmount: decimal.Zero}.withLines(store.Settled([]models.CartItem{}))
}

// withLines publishes the applied lines and their folded total.
func (s State) withLines(t store.Tracked[[]models.CartItem]) State {
	s.lines = t
	s.Items = t.Applied
	s.TotalAmount = models.SumCart(t.Applied)
	return s
}

// Confirmed returns the last server-confirmed lines.
func (s State) Confirmed() []models.CartItem { return s.lines.Confirmed }

func (s State) Item(productID models.ID) (models.CartItem, bool) {
	for _, it := range s.Items {
		if it.Key() == productID {
			return it, true
		}
	}
	return models.CartItem{}, false
}

type addAction struct {
	status  store.Status
	message string
}

func (addAction) ActionType() string { return "cart/addToCart" }

type loadAction struct {
	status  store.Status
	seq     uint64
	cart    models.Cart
	message string
}

func (loadAction) ActionType() string { return "cart/getUserCart" }

type quantityAction struct {
	status  store.Status
	itemID  models.ID
	qty     int
	message string
}

func (quantityAction) ActionType() string { return "cart/updateQuantity" }

type removeAction struct {
	status  store.Status
	itemID  models.ID
	message string
}

func (removeAction) ActionType() string { return "cart/removeItemFromCart" }

type clearAction struct{}

func (clearAction) ActionType() string { return "cart/clearCart" }

type clearMessages struct{}

func (clearMessages) ActionType() string { return "cart/clearCartMessages" }

const (
	msgAdded   = "Item added to cart successfully"
	msgRemoved = "Item removed from cart"
)

// Reduce is the cart slice reducer. Items and TotalAmount always come from the fold.
func Reduce(s State, a store.Action) State {
	switch a := a.(type) {
	case addAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
		case store.Fulfilled:
			s = s.end()
			s.SuccessMessage = msgAdded
		case store.Rejected:
			s = s.end()
			s.Error = a.message
		}
	case loadAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
			s.tags = s.tags.Issue(keyCart, a.seq)
		case store.Fulfilled, store.Rejected:
			s = s.end()
			if !s.tags.Current(keyCart, a.seq) {
				return s
			}
			if a.status == store.Rejected {
				s.Error = a.message
				return s
			}
			c := a.cart.Normalize()
			s.CartID = c.CartID
			s = s.withLines(s.lines.Settle(nonNil(c.Items)))
		}
	case quantityAction:
		set := func(items []models.CartItem) []models.CartItem { return setQuantity(items, a.itemID, a.qty) }
		switch a.status {
		case store.Pending:
			s = s.begin()
			s = s.withLines(s.lines.Apply(set(s.lines.Applied)))
		case store.Fulfilled:
			s = s.end()
			s = s.withLines(s.lines.Confirm(set(s.lines.Confirmed), set(s.lines.Applied)))
		case store.Rejected:
			s = s.end()
			s.Error = a.message
			s = s.withLines(s.lines.Revert())
		}
	case removeAction:
		drop := func(items []models.CartItem) []models.CartItem { return without(items, a.itemID) }
		switch a.status {
		case store.Pending:
			s = s.begin()
			s = s.withLines(s.lines.Apply(drop(s.lines.Applied)))
		case store.Fulfilled:
			s = s.end()
			s.SuccessMessage = msgRemoved
			s = s.withLines(s.lines.Confirm(drop(s.lines.Confirmed), drop(s.lines.Applied)))
		case store.Rejected:
			s = s.end()
			s.Error = a.message
			s = s.withLines(s.lines.Revert())
		}
	case clearAction:
		s.CartID = ""
		s = s.withLines(s.lines.Settle([]models.CartItem{}))
	case clearMessages:
		s.Error = ""
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

func setQuantity(items []models.CartItem, productID models.ID, qty int) []models.CartItem {
	out := make([]models.CartItem, len(items))
	for i, it := range items {
		if it.Key() == productID {
			it = it.WithQuantity(qty)
		}
		out[i] = it
	}
	return out
}

func without(items []models.CartItem, productID models.ID) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.Key() != productID {
			out = append(out, it)
		}
	}
	return out
}

func nonNil(items []models.CartItem) []models.CartItem {
	if items == nil {
		return []models.CartItem{}
	}
	return items
}
