// Package guard serializes balance mutations per wallet and voucher
// reservations per package. Each wallet and each package gets its own
// exclusive lane; operations on unrelated keys proceed fully concurrently.
// Lane acquisition is bounded: a contended lane is retried locally a few
// times and then the call fails ErrBusy, never deadlocking.
package guard

import (
	"context"
	"time"
)

// Guard owns the lane set and the request-coalescing in-flight map shared by
// the ledger-facing services.
type Guard struct {
	lanes    *LaneSet
	flight   *Flight
	wait     time.Duration
	attempts int
}

// New builds a guard with the given per-attempt lane wait and retry budget.
func New(wait time.Duration, attempts int) *Guard {
	if wait <= 0 {
		wait = 2 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Guard{
		lanes:    NewLaneSet(),
		flight:   NewFlight(),
		wait:     wait,
		attempts: attempts,
	}
}

func walletKey(walletID string) string   { return "wallet:" + walletID }
func packageKey(packageID string) string { return "package:" + packageID }

// AcquireWallet takes the exclusive lane for one wallet.
func (g *Guard) AcquireWallet(ctx context.Context, walletID string) (func(), error) {
	return g.lanes.Acquire(ctx, walletKey(walletID), g.wait, g.attempts)
}

// AcquirePurchase takes the lanes a purchase needs: the package lane first
// (when the service is stock-bound), then the wallet lane. Keeping the order
// inside this single helper is what rules out lock-order inversion between
// voucher reservation and debiting; call sites never sequence lanes
// themselves. The returned release frees both lanes in reverse order.
func (g *Guard) AcquirePurchase(ctx context.Context, packageID, walletID string) (func(), error) {
	var releasePackage func()
	if packageID != "" {
		var err error
		releasePackage, err = g.lanes.Acquire(ctx, packageKey(packageID), g.wait, g.attempts)
		if err != nil {
			return nil, err
		}
	}

	releaseWallet, err := g.lanes.Acquire(ctx, walletKey(walletID), g.wait, g.attempts)
	if err != nil {
		if releasePackage != nil {
			releasePackage()
		}
		return nil, err
	}

	return func() {
		releaseWallet()
		if releasePackage != nil {
			releasePackage()
		}
	}, nil
}

// Coalesce runs fn under the per-key in-flight map, sharing the outcome with
// concurrent callers presenting the same key.
func (g *Guard) Coalesce(key string, fn func() (any, error)) (any, bool, error) {
	return g.flight.Do(key, fn)
}
