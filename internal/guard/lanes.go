package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is surfaced when a lane cannot be acquired within the bounded wait
// after local retries. Callers should retry the whole request with the same
// reference key rather than assume anything about the in-flight mutation.
var ErrBusy = errors.New("operation lane busy")

type lane struct {
	slot chan struct{}
	refs int
}

// LaneSet provides per-key exclusive execution lanes. Acquiring a lane gives
// the caller exclusive occupancy for that key; lanes for distinct keys are
// fully independent. Lane records are reference counted and removed once the
// last waiter leaves, so the set stays proportional to live contention.
type LaneSet struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// NewLaneSet creates an empty lane set.
func NewLaneSet() *LaneSet {
	return &LaneSet{lanes: make(map[string]*lane)}
}

func (s *LaneSet) checkout(key string) *lane {
	s.mu.Lock()
	defer s.mu.Unlock()
	ln, ok := s.lanes[key]
	if !ok {
		ln = &lane{slot: make(chan struct{}, 1)}
		s.lanes[key] = ln
	}
	ln.refs++
	return ln
}

func (s *LaneSet) checkin(key string, ln *lane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ln.refs--
	if ln.refs == 0 {
		delete(s.lanes, key)
	}
}

// Acquire takes the lane for key, waiting at most wait per attempt and
// retrying up to attempts times with a short backoff before failing ErrBusy.
// The returned release function must be called exactly once.
func (s *LaneSet) Acquire(ctx context.Context, key string, wait time.Duration, attempts int) (func(), error) {
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 25 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		ln := s.checkout(key)
		timer := time.NewTimer(wait)
		select {
		case ln.slot <- struct{}{}:
			timer.Stop()
			var once sync.Once
			release := func() {
				once.Do(func() {
					<-ln.slot
					s.checkin(key, ln)
				})
			}
			return release, nil
		case <-timer.C:
			s.checkin(key, ln)
		case <-ctx.Done():
			timer.Stop()
			s.checkin(key, ln)
			return nil, ctx.Err()
		}
	}

	return nil, ErrBusy
}
