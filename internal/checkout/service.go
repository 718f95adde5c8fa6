package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/nav"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrNoPaymentPending   = errors.New("no payment awaiting confirmation")
)

const (
	MsgEmptyCart      = "Your cart is empty"
	MsgBillingDetails = "Please complete the billing details"

	msgIntentFailed  = "Failed to create payment intent"
	msgPaymentFailed = "Payment could not be confirmed"
	msgPlaceFailed   = "Failed to place order"
	msgFetchFailed   = "Failed to fetch orders"
)

// Cart is the part of the cart slice checkout reads and resets.
type Cart interface {
	State() cart.State
	Clear()
}

type Deps struct {
	Store    store.Dispatcher
	State    func() State
	API      *apiclient.Client
	Seq      *store.Sequence
	Cart     Cart
	Nav      nav.Navigator
	Events   events.Publisher
	Currency string
	// RedirectDelay is how long after a placed order the profile view is opened.
	RedirectDelay time.Duration
}

type Service struct {
	d Deps

	mu     sync.Mutex
	timers []*time.Timer
}

func NewService(d Deps) *Service {
	if d.Seq == nil {
		d.Seq = &store.Sequence{}
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Currency == "" {
		d.Currency = "usd"
	}
	return &Service{d: d}
}

// MinorUnits converts a decimal amount to the processor's integer minor units.
func MinorUnits(total decimal.Decimal) int64 {
	return total.Shift(2).Round(0).IntPart()
}

// CreatePaymentIntent asks the backend for a processor handle for amount minor units.
func (s *Service) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (models.PaymentIntent, error) {
	const op = "checkout.createPaymentIntent"
	l := logging.FromContext(ctx).With("svc", op)

	var pi models.PaymentIntent
	_, err := s.d.API.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/orders/create-payment-intent",
		Body:      models.PaymentIntentRequest{Amount: amount, Currency: currency},
		Protected: true,
	}, &pi)
	if err != nil {
		msg := apiclient.Message(err, msgIntentFailed)
		l.Warn("payment_intent_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return models.PaymentIntent{}, store.Network(op, msg, err)
	}
	if pi.ClientSecret == "" {
		l.Warn("payment_intent_failed", "reason", "empty client secret")
		return models.PaymentIntent{}, store.Network(op, msgIntentFailed, errors.New("empty client secret"))
	}
	return pi, nil
}

// Begin starts a checkout attempt for the current cart and returns it with the
// processor client secret. It fails with ErrCheckoutInProgress while another
// attempt is running.
func (s *Service) Begin(ctx context.Context, userID models.ID) (Attempt, error) {
	const op = "checkout.begin"
	l := logging.FromContext(ctx).With("svc", op)

	c := s.d.Cart.State()
	amount := MinorUnits(c.TotalAmount)
	if len(c.Items) == 0 || amount <= 0 {
		l.Warn("checkout_rejected", "status", http.StatusBadRequest, "reason", "empty cart")
		return Attempt{}, store.Validation(op, MsgEmptyCart)
	}

	att := Attempt{
		UserID:         userID,
		IdempotencyKey: uuid.NewString(),
		Amount:         amount,
		Currency:       s.d.Currency,
	}
	var accepted bool
	s.d.Store.Dispatch(beginAction{attempt: att, accepted: &accepted})
	if !accepted {
		l.Warn("checkout_rejected", "reason", "in progress", "phase", s.d.State().Phase)
		return Attempt{}, ErrCheckoutInProgress
	}
	_ = s.d.Events.Publish(ctx, events.TopicOrder, userID.String(), events.New(events.CheckoutStarted, userID.String(),
		map[string]any{"amount": amount, "currency": att.Currency, "idempotency_key": att.IdempotencyKey}))

	pi, err := s.CreatePaymentIntent(ctx, amount, att.Currency)
	if err != nil {
		s.d.Store.Dispatch(intentAction{status: store.Rejected, message: store.MessageOf(err)})
		return Attempt{}, err
	}
	s.d.Store.Dispatch(intentAction{status: store.Fulfilled, secret: pi.ClientSecret})

	att.ClientSecret = pi.ClientSecret
	l.Info("payment_intent_created", "amount", amount, "currency", att.Currency)
	return att, nil
}

// PaymentOutcome is what the payment capture reported for the current attempt.
type PaymentOutcome struct {
	Confirmed bool   `json:"confirmed"`
	Message   string `json:"message,omitempty"`
}

// Complete records the payment outcome. A confirmed payment places the order
// once; a declined one fails the attempt with the processor's message.
func (s *Service) Complete(ctx context.Context, outcome PaymentOutcome) (State, error) {
	const op = "checkout.complete"
	l := logging.FromContext(ctx).With("svc", op)

	msg := outcome.Message
	if !outcome.Confirmed && msg == "" {
		msg = msgPaymentFailed
	}

	var (
		accepted bool
		att      Attempt
	)
	s.d.Store.Dispatch(completeAction{confirmed: outcome.Confirmed, message: msg, accepted: &accepted, attempt: &att})
	if !accepted {
		l.Warn("payment_outcome_ignored", "phase", s.d.State().Phase)
		return s.d.State(), ErrNoPaymentPending
	}

	if !outcome.Confirmed {
		l.Warn("payment_declined", "reason", msg)
		_ = s.d.Events.Publish(ctx, events.TopicOrder, att.UserID.String(), events.New(events.PaymentDeclined, att.UserID.String(),
			map[string]any{"message": msg, "idempotency_key": att.IdempotencyKey}))
		return s.d.State(), store.Payment(op, msg, nil)
	}
	return s.PlaceOrder(ctx, att.UserID, att.IdempotencyKey)
}

type BillingAddress struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode,omitempty"`
}

type BillingDetails struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Address BillingAddress `json:"address"`
}

func (b BillingDetails) valid() bool {
	for _, f := range []string{b.Name, b.Email, b.Address.Line1, b.Address.City} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return len(strings.TrimSpace(b.Address.Country)) == 2
}

// Confirmer captures payment for a client secret. It is the payment processor's side.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret string, billing BillingDetails) (PaymentOutcome, error)
}

type ConfirmerFunc func(ctx context.Context, clientSecret string, billing BillingDetails) (PaymentOutcome, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, clientSecret string, billing BillingDetails) (PaymentOutcome, error) {
	return f(ctx, clientSecret, billing)
}

// Run drives a whole attempt: intent, payment capture, order placement.
func (s *Service) Run(ctx context.Context, userID models.ID, c Confirmer, billing BillingDetails) (State, error) {
	const op = "checkout.run"
	l := logging.FromContext(ctx).With("svc", op)

	if !billing.valid() {
		l.Warn("checkout_rejected", "status", http.StatusBadRequest, "reason", "incomplete billing details")
		return s.d.State(), store.Validation(op, MsgBillingDetails)
	}

	att, err := s.Begin(ctx, userID)
	if err != nil {
		return s.d.State(), err
	}

	outcome, err := c.Confirm(ctx, att.ClientSecret, billing)
	if err != nil {
		l.Warn("payment_confirm_failed", "error", err)
		outcome = PaymentOutcome{Message: err.Error()}
	}
	return s.Complete(ctx, outcome)
}

// PlaceOrder turns the user's server cart into an order. It is never retried;
// key, when set, lets the backend drop a duplicate submission.
func (s *Service) PlaceOrder(ctx context.Context, userID models.ID, key string) (State, error) {
	const op = "checkout.placeOrder"
	l := logging.FromContext(ctx).With("svc", op)

	s.d.Store.Dispatch(placeAction{status: store.Pending})

	req := apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/orders/user/" + userID.String() + "/place-order",
		Protected: true,
	}
	if key != "" {
		req.Header = http.Header{"Idempotency-Key": {key}}
	}
	var raw json.RawMessage
	serverMsg, err := s.d.API.Do(ctx, req, &raw)
	var order models.Order
	if err == nil {
		order, err = decodeOrder(raw)
	}
	if err != nil {
		msg := apiclient.Message(err, msgPlaceFailed)
		s.d.Store.Dispatch(placeAction{status: store.Rejected, message: msg})
		l.Error("place_order_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		_ = s.d.Events.Publish(ctx, events.TopicOrder, userID.String(), events.New(events.OrderFailed, userID.String(),
			map[string]any{"message": msg, "idempotency_key": key}))
		return s.d.State(), store.Network(op, msg, err)
	}

	if serverMsg == "" {
		serverMsg = msgOrderPlaced
	}
	s.d.Store.Dispatch(placeAction{status: store.Fulfilled, order: order, message: serverMsg})
	if s.d.Cart != nil {
		s.d.Cart.Clear()
	}
	_ = s.d.Events.Publish(ctx, events.TopicOrder, userID.String(), events.New(events.OrderPlaced, userID.String(),
		map[string]any{"order_id": order.ID.String(), "total": order.TotalAmount.String(), "idempotency_key": key}))
	l.Info("place_order_success", "order_id", order.ID, "total", order.TotalAmount.String())

	s.redirect(ProfilePath(userID))
	return s.d.State(), nil
}

// ProfilePath is where a placed order sends the user.
func ProfilePath(userID models.ID) string {
	return "/user-profile/" + userID.String() + "/profile"
}

func (s *Service) redirect(path string) {
	if s.d.Nav == nil {
		return
	}
	t := time.AfterFunc(s.d.RedirectDelay, func() { s.d.Nav.Navigate(path, false) })
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
}

// Stop cancels pending redirects.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// decodeOrder accepts the order itself or a {"order": ...} wrapper.
func decodeOrder(raw json.RawMessage) (models.Order, error) {
	var wrapped struct {
		Order *models.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Order != nil {
		return *wrapped.Order, nil
	}
	var o models.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func (s *Service) FetchOrders(ctx context.Context, userID models.ID) (State, error) {
	const op = "checkout.fetchOrders"
	l := logging.FromContext(ctx).With("svc", op)

	seq := s.d.Seq.Next()
	s.d.Store.Dispatch(fetchAction{status: store.Pending, seq: seq})

	var orders []models.Order
	_, err := s.d.API.Do(ctx, apiclient.Request{Path: "/orders/user/" + userID.String() + "/orders", Protected: true}, &orders)
	if err != nil {
		msg := apiclient.Message(err, msgFetchFailed)
		s.d.Store.Dispatch(fetchAction{status: store.Rejected, seq: seq, message: msg})
		l.Warn("orders_fetch_failed", "status", apiclient.StatusOf(err), "reason", msg, "error", err)
		return s.d.State(), store.Network(op, msg, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	models.SortOrders(orders, true)
	s.d.Store.Dispatch(fetchAction{status: store.Fulfilled, seq: seq, orders: orders})
	l.Debug("orders_fetch_success", "count", len(orders))
	return s.d.State(), nil
}

// Reset abandons the current attempt. Attempts with a request in flight are left alone.
func (s *Service) Reset() { s.d.Store.Dispatch(resetAction{}) }

func (s *Service) ClearMessages() { s.d.Store.Dispatch(clearMessages{}) }
