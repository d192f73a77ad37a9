package guard

import "sync"

type call struct {
	done chan struct{}
	val  any
	err  error
}

// Flight coalesces concurrent executions for the same key: the first caller
// runs fn, later callers arriving before completion block on the shared
// result. The in-flight record is cleared on completion, so a later retry
// runs fresh (and relies on ledger idempotency for correctness).
type Flight struct {
	mu       sync.Mutex
	inflight map[string]*call
}

// NewFlight creates an empty in-flight map.
func NewFlight() *Flight {
	return &Flight{inflight: make(map[string]*call)}
}

// Do executes fn for key, sharing the result with concurrent callers of the
// same key. The second return value reports whether the result was shared
// from another caller's execution.
func (f *Flight) Do(key string, fn func() (any, error)) (any, bool, error) {
	f.mu.Lock()
	if c, ok := f.inflight[key]; ok {
		f.mu.Unlock()
		<-c.done
		return c.val, true, c.err
	}
	c := &call{done: make(chan struct{})}
	f.inflight[key] = c
	f.mu.Unlock()

	c.val, c.err = fn()

	f.mu.Lock()
	delete(f.inflight, key)
	f.mu.Unlock()
	close(c.done)

	return c.val, false, c.err
}
