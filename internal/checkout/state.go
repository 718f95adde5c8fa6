package checkout

import (
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
)

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseCreatingIntent  Phase = "creating_intent"
	PhaseAwaitingPayment Phase = "awaiting_payment_confirmation"
	PhasePlacingOrder    Phase = "placing_order"
	PhaseSucceeded       Phase = "succeeded"
	PhaseFailed          Phase = "failed"
)

// Restartable reports whether a new attempt may begin from p.
func (p Phase) Restartable() bool {
	return p == PhaseIdle || p == PhaseSucceeded || p == PhaseFailed
}

const keyOrders = "orders"

// Attempt is one pass through the checkout machine.
type Attempt struct {
	UserID         models.ID `json:"userId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	ClientSecret   string    `json:"-"`
}

type State struct {
	Orders         []models.Order `json:"orders"`
	IsLoading      bool           `json:"loading"`
	Error          string         `json:"errorMessage,omitempty"`
	SuccessMessage string         `json:"successMessage,omitempty"`
	Phase          Phase          `json:"phase"`
	Attempt        *Attempt       `json:"attempt,omitempty"`

	loading int
	tags    store.Tags
}

func Initial() State {
	return State{Orders: []models.Order{}, Phase: PhaseIdle}
}

type beginAction struct {
	attempt  Attempt
	accepted *bool
}

func (beginAction) ActionType() string { return "order/beginCheckout" }

type intentAction struct {
	status  store.Status
	secret  string
	message string
}

func (intentAction) ActionType() string { return "order/createPaymentIntent" }

// completeAction settles the awaiting phase. When accepted, the attempt it
// settled is copied to attempt.
type completeAction struct {
	confirmed bool
	message   string
	accepted  *bool
	attempt   *Attempt
}

func (completeAction) ActionType() string { return "order/confirmPayment" }

type placeAction struct {
	status  store.Status
	order   models.Order
	message string
}

func (placeAction) ActionType() string { return "order/placeOrder" }

type fetchAction struct {
	status  store.Status
	seq     uint64
	orders  []models.Order
	message string
}

func (fetchAction) ActionType() string { return "orders/fetchUserOrders" }

type resetAction struct{}

func (resetAction) ActionType() string { return "order/resetCheckout" }

type clearMessages struct{}

func (clearMessages) ActionType() string { return "order/clearMessages" }

const msgOrderPlaced = "Order placed successfully!"

func Reduce(s State, a store.Action) State {
	switch a := a.(type) {
	case beginAction:
		ok := s.Phase.Restartable()
		if a.accepted != nil {
			*a.accepted = ok
		}
		if !ok {
			return s
		}
		att := a.attempt
		s.Attempt = &att
		s.Phase = PhaseCreatingIntent
		s.Error = ""
		s.SuccessMessage = ""
		s = s.begin()
	case intentAction:
		if s.Phase != PhaseCreatingIntent {
			return s
		}
		s = s.end()
		switch a.status {
		case store.Fulfilled:
			att := *s.Attempt
			att.ClientSecret = a.secret
			s.Attempt = &att
			s.Phase = PhaseAwaitingPayment
		case store.Rejected:
			s.Phase = PhaseIdle
			s.Attempt = nil
			s.Error = a.message
		}
	case completeAction:
		ok := s.Phase == PhaseAwaitingPayment && s.Attempt != nil
		if a.accepted != nil {
			*a.accepted = ok
		}
		if !ok {
			return s
		}
		if a.attempt != nil {
			*a.attempt = *s.Attempt
		}
		if a.confirmed {
			s.Phase = PhasePlacingOrder
			return s
		}
		s.Phase = PhaseFailed
		s.Error = a.message
	case placeAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
		case store.Fulfilled:
			s = s.end()
			orders := make([]models.Order, 0, len(s.Orders)+1)
			s.Orders = append(append(orders, s.Orders...), a.order)
			s.SuccessMessage = a.message
			if s.Phase == PhasePlacingOrder {
				s.Phase = PhaseSucceeded
			}
		case store.Rejected:
			s = s.end()
			s.Error = a.message
			if s.Phase == PhasePlacingOrder {
				s.Phase = PhaseFailed
			}
		}
	case fetchAction:
		switch a.status {
		case store.Pending:
			s = s.begin()
			s.tags = s.tags.Issue(keyOrders, a.seq)
		case store.Fulfilled, store.Rejected:
			s = s.end()
			if !s.tags.Current(keyOrders, a.seq) {
				return s
			}
			if a.status == store.Rejected {
				s.Error = a.message
				return s
			}
			s.Orders = a.orders
		}
	case resetAction:
		if s.Phase == PhaseCreatingIntent || s.Phase == PhasePlacingOrder {
			return s
		}
		s.Phase = PhaseIdle
		s.Attempt = nil
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
