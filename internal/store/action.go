package store

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Status tags the phase of an asynchronous action.
type Status int

const (
	Pending Status = iota
	Fulfilled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Kind string

const (
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindPayment    Kind = "payment"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNetwork    = errors.New("network error")
	ErrPayment    = errors.New("payment error")
)

// Rejection is the failure every slice operation returns. Message is what the
// view shows; Err keeps the underlying cause.
type Rejection struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Op, r.Message, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Op, r.Message)
}

func (r *Rejection) Unwrap() error { return r.Err }

func (r *Rejection) Is(target error) bool {
	switch target {
	case ErrValidation:
		return r.Kind == KindValidation
	case ErrNetwork:
		return r.Kind == KindNetwork
	case ErrPayment:
		return r.Kind == KindPayment
	}
	return false
}

func Validation(op, msg string) *Rejection {
	return &Rejection{Op: op, Kind: KindValidation, Message: msg}
}

func Network(op, msg string, err error) *Rejection {
	return &Rejection{Op: op, Kind: KindNetwork, Message: msg, Err: err}
}

func Payment(op, msg string, err error) *Rejection {
	return &Rejection{Op: op, Kind: KindPayment, Message: msg, Err: err}
}

// MessageOf returns the view message of a rejection, or err's text otherwise.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var r *Rejection
	if errors.As(err, &r) {
		return r.Message
	}
	return err.Error()
}

// Sequence hands out monotonically increasing request tags.
type Sequence struct {
	n atomic.Uint64
}

func (s *Sequence) Next() uint64 { return s.n.Add(1) }

// Tags records the latest request tag issued per key. It is copied on write so
// it can live inside immutable state.
type Tags map[string]uint64

func (t Tags) Issue(key string, seq uint64) Tags {
	out := make(Tags, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	if seq > out[key] {
		out[key] = seq
	}
	return out
}

// Current reports whether seq is the newest request issued for key.
func (t Tags) Current(key string, seq uint64) bool {
	return t[key] == seq
}
