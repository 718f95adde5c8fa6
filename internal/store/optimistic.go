package store

// Tracked pairs an optimistically applied value with the last value the server confirmed.
type Tracked[T any] struct {
	Applied   T
	Confirmed T
	Pending   int
}

func Settled[T any](v T) Tracked[T] {
	return Tracked[T]{Applied: v, Confirmed: v}
}

func (t Tracked[T]) Apply(v T) Tracked[T] {
	t.Applied = v
	t.Pending++
	return t
}

// Confirm records a server acknowledgement. Once nothing is pending the applied
// value is the confirmed one, whatever earlier reverts dropped.
func (t Tracked[T]) Confirm(confirmed, applied T) Tracked[T] {
	t.Confirmed = confirmed
	t.Applied = applied
	t.done()
	if t.Pending == 0 {
		t.Applied = t.Confirmed
	}
	return t
}

// Revert drops every unconfirmed change.
func (t Tracked[T]) Revert() Tracked[T] {
	t.Applied = t.Confirmed
	t.done()
	return t
}

// Settle replaces both values with an authoritative one.
func (t Tracked[T]) Settle(v T) Tracked[T] {
	t.Applied, t.Confirmed, t.Pending = v, v, 0
	return t
}

func (t *Tracked[T]) done() {
	if t.Pending > 0 {
		t.Pending--
	}
}
