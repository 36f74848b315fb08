package debounce

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Search is a debounced search box: the query settles after the quiet
// period and only the newest query's results are ever shown. A blank
// query clears the results without calling the search function.
type Search[R any] struct {
	call *Call[string, []R]

	mu    sync.Mutex
	query string
}

// NewSearch creates a Search over fn.
func NewSearch[R any](fn func(ctx context.Context, query string) ([]R, error), delay time.Duration, opts ...Option) *Search[R] {
	return &Search[R]{call: NewCall(AsyncFunc[string, []R](fn), delay, opts...)}
}

// SetQuery records the raw query and schedules a search for it.
func (s *Search[R]) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()

	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		s.call.Reset()
		return
	}
	s.call.Call(trimmed)
}

// Query returns the raw query.
func (s *Search[R]) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// HasQuery reports whether the query is non-blank.
func (s *Search[R]) HasQuery() bool {
	return strings.TrimSpace(s.Query()) != ""
}

// Results returns the results of the current query. A failed search has
// no results.
func (s *Search[R]) Results() []R {
	st := s.call.State()
	if st.Status == StatusFailed {
		return nil
	}
	return st.Result
}

// State returns the underlying call state.
func (s *Search[R]) State() State[[]R] {
	return s.call.State()
}

// Watch registers fn for every state transition.
func (s *Search[R]) Watch(fn func(State[[]R])) (cancel func()) {
	return s.call.Watch(fn)
}

// Settle runs the pending query now and waits for its results.
func (s *Search[R]) Settle(ctx context.Context) (State[[]R], error) {
	return s.call.Settle(ctx)
}

// Clear empties the query and results.
func (s *Search[R]) Clear() {
	s.SetQuery("")
}

// Close cancels pending and in-flight searches.
func (s *Search[R]) Close() {
	s.call.Close()
}
