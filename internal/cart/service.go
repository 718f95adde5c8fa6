package cart

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const MsgInvalidQuantity = "Quantity must be at least 1"

type Deps struct {
	Store  store.Dispatcher
	State  func() State
	API    *apiclient.Client
	Seq    *store.Sequence
	Events events.Publisher
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Seq == nil {
		d.Seq = &store.Sequence{}
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	return &Service{d: d}
}

// AddItem asks the server to add quantity of a product. Lines are merged
// server-side, so nothing is appended locally; reload the cart afterwards.
func (s *Service) AddItem(ctx context.Context, productID models.ID, quantity int) error {
	const op = "cart.addItem"
	l := logging.FromContext(ctx).With("svc", op)

	if quantity < 1 {
		s.d.Store.Dispatch(addAction{status: store.Rejected, message: MsgInvalidQuantity})
		l.Warn("cart_add_failed", "status", http.StatusBadRequest, "reason", "invalid quantity", "quantity", quantity)
		return store.Validation(op, MsgInvalidQuantity)
	}

	s.d.Store.Dispatch(addAction{status: store.Pending})
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/cartItems/item/add",
		Query:     url.Values{"productId": {productID.String()}, "quantity": {strconv.Itoa(quantity)}},
		Protected: true,
	}, nil)
	if err != nil {
		msg := apiclient.Message(err, "Failed to add item to cart")
		s.d.Store.Dispatch(addAction{status: store.Rejected, message: msg})
		l.Warn("cart_add_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return store.Network(op, msg, err)
	}

	s.d.Store.Dispatch(addAction{status: store.Fulfilled})
	_ = s.d.Events.Publish(ctx, events.TopicCart, productID.String(), events.New(events.CartItemAdded, "",
		map[string]any{"product_id": productID.String(), "quantity": quantity}))
	l.Info("cart_add_success", "product_id", productID, "quantity", quantity)
	return nil
}

// LoadCart replaces the cart with the server's copy.
func (s *Service) LoadCart(ctx context.Context, userID models.ID) (State, error) {
	const op = "cart.loadCart"
	l := logging.FromContext(ctx).With("svc", op)

	seq := s.d.Seq.Next()
	s.d.Store.Dispatch(loadAction{status: store.Pending, seq: seq})

	var c models.Cart
	_, err := s.d.API.Do(ctx, apiclient.Request{Path: "/carts/user/" + userID.String() + "/cart", Protected: true}, &c)
	if err != nil {
		msg := apiclient.Message(err, "Failed to load cart")
		s.d.Store.Dispatch(loadAction{status: store.Rejected, seq: seq, message: msg})
		l.Warn("cart_load_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return s.d.State(), store.Network(op, msg, err)
	}

	if folded := models.SumCart(c.Items); !folded.Equal(c.TotalAmount) {
		l.Warn("cart_total_mismatch", "server_total", c.TotalAmount.String(), "folded_total", folded.String())
	}
	s.d.Store.Dispatch(loadAction{status: store.Fulfilled, seq: seq, cart: c})
	l.Debug("cart_load_success", "items", len(c.Items))
	return s.d.State(), nil
}

// UpdateQuantity sets a line's quantity optimistically. Targets below 1 are ignored.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, itemID models.ID, quantity int) (State, error) {
	const op = "cart.updateQuantity"
	l := logging.FromContext(ctx).With("svc", op)

	if quantity < 1 {
		l.Debug("cart_update_skipped", "reason", "quantity below 1", "item_id", itemID)
		return s.d.State(), nil
	}

	s.d.Store.Dispatch(quantityAction{status: store.Pending, itemID: itemID, qty: quantity})
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Method:    http.MethodPut,
		Path:      "/cartItems/cart/" + cartID.String() + "/item/" + itemID.String() + "/update",
		Query:     url.Values{"quantity": {strconv.Itoa(quantity)}},
		Protected: true,
	}, nil)
	if err != nil {
		msg := apiclient.Message(err, "Failed to update quantity")
		s.d.Store.Dispatch(quantityAction{status: store.Rejected, itemID: itemID, message: msg})
		l.Warn("cart_update_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return s.d.State(), store.Network(op, msg, err)
	}

	s.d.Store.Dispatch(quantityAction{status: store.Fulfilled, itemID: itemID, qty: quantity})
	_ = s.d.Events.Publish(ctx, events.TopicCart, cartID.String(), events.New(events.CartItemUpdated, "",
		map[string]any{"cart_id": cartID.String(), "product_id": itemID.String(), "quantity": quantity}))
	return s.d.State(), nil
}

// RemoveItem drops a line optimistically.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID models.ID) (State, error) {
	const op = "cart.removeItem"
	l := logging.FromContext(ctx).With("svc", op)

	s.d.Store.Dispatch(removeAction{status: store.Pending, itemID: itemID})
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Method:    http.MethodDelete,
		Path:      "/cartItems/cart/" + cartID.String() + "/item/" + itemID.String() + "/remove",
		Protected: true,
	}, nil)
	if err != nil {
		msg := apiclient.Message(err, "Failed to remove item")
		s.d.Store.Dispatch(removeAction{status: store.Rejected, itemID: itemID, message: msg})
		l.Warn("cart_remove_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return s.d.State(), store.Network(op, msg, err)
	}

	s.d.Store.Dispatch(removeAction{status: store.Fulfilled, itemID: itemID})
	_ = s.d.Events.Publish(ctx, events.TopicCart, cartID.String(), events.New(events.CartItemRemoved, "",
		map[string]any{"cart_id": cartID.String(), "product_id": itemID.String()}))
	l.Info("cart_remove_success", "item_id", itemID)
	return s.d.State(), nil
}

func (s *Service) Increase(ctx context.Context, itemID models.ID) (State, error) {
	st := s.d.State()
	it, ok := st.Item(itemID)
	if !ok {
		return st, nil
	}
	return s.UpdateQuantity(ctx, st.CartID, itemID, it.Quantity+1)
}

// Decrease lowers a line by one; at quantity 1 it does nothing.
func (s *Service) Decrease(ctx context.Context, itemID models.ID) (State, error) {
	st := s.d.State()
	it, ok := st.Item(itemID)
	if !ok {
		return st, nil
	}
	return s.UpdateQuantity(ctx, st.CartID, itemID, it.Quantity-1)
}

// Clear empties the local cart only.
func (s *Service) Clear() { s.d.Store.Dispatch(clearAction{}) }

func (s *Service) ClearMessages() { s.d.Store.Dispatch(clearMessages{}) }

func (s *Service) State() State { return s.d.State() }
