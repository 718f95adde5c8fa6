package events

import (
	"context"
	"time"
)

const (
	TopicUser  = "user_events"
	TopicCart  = "cart_events"
	TopicOrder = "order_events"
)

const (
	UserLoggedIn    = "user_logged_in"
	UserLoggedOut   = "user_logged_out"
	UserRegistered  = "user_registered"
	SessionExpired  = "session_expired"
	CartItemAdded   = "cart_item_added"
	CartItemUpdated = "cart_item_updated"
	CartItemRemoved = "cart_item_removed"
	CheckoutStarted = "checkout_started"
	PaymentDeclined = "payment_declined"
	OrderPlaced     = "order_placed"
	OrderFailed     = "order_failed"
)

type Event struct {
	Type    string         `json:"type"`
	UserID  string         `json:"user_id,omitempty"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

func New(typ, userID string, payload map[string]any) Event {
	return Event{Type: typ, UserID: userID, At: time.Now().UTC(), Payload: payload}
}

// Publisher emits domain events. Failures are the publisher's to log; callers ignore the error
// for anything but diagnostics.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, ev Event) error
}

type Noop struct{}

func (Noop) Publish(context.Context, string, string, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	ch chan Published
}

type Published struct {
	Topic string
	Key   string
	Event Event
}

func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan Published, size)}
}

func (r *Recorder) Publish(_ context.Context, topic, key string, ev Event) error {
	select {
	case r.ch <- Published{Topic: topic, Key: key, Event: ev}:
	default:
	}
	return nil
}

// Events returns everything recorded so far.
func (r *Recorder) Events() []Published {
	var out []Published
	for {
		select {
		case p := <-r.ch:
			out = append(out, p)
		default:
			return out
		}
	}
}
