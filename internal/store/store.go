package store

import (
	"log/slog"
	"sync"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Action interface {
	ActionType() string
}

type Dispatcher interface {
	Dispatch(Action)
}

// Reducer returns the next state. It must not mutate the state it receives
// and must not dispatch.
type Reducer[S any] func(S, Action) S

type Option func(*options)

type options struct {
	log     *slog.Logger
	backlog int
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithBacklog(n int) Option {
	return func(o *options) { o.backlog = n }
}

type envelope struct {
	action  Action
	applied chan struct{}
}

// Store applies actions one at a time on a single goroutine.
type Store[S any] struct {
	reduce Reducer[S]
	log    *slog.Logger

	actions   chan envelope
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.RWMutex
	state   S
	subs    map[int]chan S
	nextSub int
	closed  bool
}

func New[S any](initial S, reduce Reducer[S], opts ...Option) *Store[S] {
	o := options{log: logging.Discard(), backlog: 64}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store[S]{
		reduce:  reduce,
		log:     o.log.With("component", "store"),
		actions: make(chan envelope, o.backlog),
		done:    make(chan struct{}),
		state:   initial,
		subs:    make(map[int]chan S),
	}
	go s.loop()
	return s
}

func (s *Store[S]) loop() {
	for {
		select {
		case env := <-s.actions:
			s.apply(env.action)
			close(env.applied)
		case <-s.done:
			return
		}
	}
}

func (s *Store[S]) apply(a Action) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reducer_panic", "action", a.ActionType(), "panic", r)
		}
	}()

	s.log.Debug("dispatch", "action", a.ActionType())

	s.mu.RLock()
	cur := s.state
	s.mu.RUnlock()

	next := s.reduce(cur, a)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	for _, ch := range s.subs {
		offer(ch, next)
	}
}

// offer replaces whatever value the subscriber has not read yet.
func offer[S any](ch chan S, v S) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Dispatch returns once the action has been applied, or immediately after Close.
func (s *Store[S]) Dispatch(a Action) {
	select {
	case <-s.done:
		return
	default:
	}
	env := envelope{action: a, applied: make(chan struct{})}
	select {
	case s.actions <- env:
	case <-s.done:
		return
	}
	select {
	case <-env.applied:
	case <-s.done:
	}
}

func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel holding the latest state, primed with the current one.
// Slow readers skip intermediate states.
func (s *Store[S]) Subscribe() (<-chan S, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan S, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Store[S]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
	})
}
