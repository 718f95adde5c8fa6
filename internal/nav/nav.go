package nav

import "sync"

const (
	LoginPath          = "/login"
	SessionExpiredPath = "/login?expired=true"
	UnauthorizedPath   = "/unauthorized"
)

// Navigator performs navigation effects owned by the view layer.
type Navigator interface {
	Navigate(path string, replace bool)
}

type Func func(path string, replace bool)

func (f Func) Navigate(path string, replace bool) { f(path, replace) }

type Visit struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}

// Recorder keeps every requested navigation so a view can poll and follow it.
type Recorder struct {
	mu     sync.Mutex
	visits []Visit
}

func (r *Recorder) Navigate(path string, replace bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = append(r.visits, Visit{Path: path, Replace: replace})
}

func (r *Recorder) Visits() []Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Visit(nil), r.visits...)
}

func (r *Recorder) Last() (Visit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.visits) == 0 {
		return Visit{}, false
	}
	return r.visits[len(r.visits)-1], true
}

// Drain returns and forgets the pending visits.
func (r *Recorder) Drain() []Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.visits
	r.visits = nil
	return out
}
