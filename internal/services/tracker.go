package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrStaleResponse is returned by Guard when a newer request for the same
// scope started while the fetch was in flight.
var ErrStaleResponse = errors.New("stale response: superseded by a newer request")

// Ticket identifies one request within a scope.
type Ticket struct {
	ID    uuid.UUID
	Scope string
	Key   string
}

// Tracker remembers the latest request per scope, so that a slow response to
// an older request (say, the previous period a user clicked past) is
// discarded instead of overwriting the newer one.
type Tracker struct {
	mu     sync.Mutex
	latest map[string]Ticket
}

func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]Ticket)}
}

// Begin records a new request for scope and returns its ticket. Any ticket
// previously issued for the scope stops being current.
func (t *Tracker) Begin(scope, requestKey string) Ticket {
	tk := Ticket{ID: uuid.New(), Scope: scope, Key: requestKey}
	t.mu.Lock()
	t.latest[scope] = tk
	t.mu.Unlock()
	return tk
}

// Current reports whether tk is still the latest request of its scope.
func (t *Tracker) Current(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	latest, ok := t.latest[tk.Scope]
	return ok && latest.ID == tk.ID
}

// Done forgets the scope if tk is still its latest request.
func (t *Tracker) Done(tk Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if latest, ok := t.latest[tk.Scope]; ok && latest.ID == tk.ID {
		delete(t.latest, tk.Scope)
	}
}

// Len returns the number of scopes with a request in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.latest)
}

// Guard runs fetch as a new request of scope. If another request for the
// same scope begins before fetch returns, the result is dropped and
// ErrStaleResponse is returned. A nil tracker disables the guard.
func Guard[T any](ctx context.Context, t *Tracker, scope, requestKey string, fetch func(context.Context) (T, error)) (T, error) {
	if t == nil || scope == "" {
		return fetch(ctx)
	}
	tk := t.Begin(scope, requestKey)
	v, err := fetch(ctx)
	if !t.Current(tk) {
		var zero T
		return zero, ErrStaleResponse
	}
	t.Done(tk)
	return v, err
}
