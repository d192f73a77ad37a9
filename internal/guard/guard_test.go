package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLaneExcludesSameKey(t *testing.T) {
	lanes := NewLaneSet()
	ctx := context.Background()

	release, err := lanes.Acquire(ctx, "wallet:a", 50*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := lanes.Acquire(ctx, "wallet:a", 20*time.Millisecond, 1); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}

	release()

	release2, err := lanes.Acquire(ctx, "wallet:a", 20*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
}

func TestLanesIndependentAcrossKeys(t *testing.T) {
	lanes := NewLaneSet()
	ctx := context.Background()

	releaseA, err := lanes.Acquire(ctx, "wallet:a", 20*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer releaseA()

	releaseB, err := lanes.Acquire(ctx, "wallet:b", 20*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("holding a must not block b: %v", err)
	}
	releaseB()
}

func TestLaneRetrySucceedsAfterRelease(t *testing.T) {
	lanes := NewLaneSet()
	ctx := context.Background()

	release, err := lanes.Acquire(ctx, "wallet:a", 30*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	go func() {
		time.Sleep(40 * time.Millisecond)
		release()
	}()

	// First attempt times out while the lane is held; a retry lands after
	// the holder releases.
	release2, err := lanes.Acquire(ctx, "wallet:a", 30*time.Millisecond, 3)
	if err != nil {
		t.Fatalf("expected retry to win the lane, got %v", err)
	}
	release2()
}

func TestLaneAcquireHonorsContext(t *testing.T) {
	lanes := NewLaneSet()
	ctx, cancel := context.WithCancel(context.Background())

	release, err := lanes.Acquire(ctx, "wallet:a", time.Second, 3)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := lanes.Acquire(ctx, "wallet:a", time.Second, 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestGuardPurchaseLaneOrderReleasesBoth(t *testing.T) {
	g := New(50*time.Millisecond, 1)
	ctx := context.Background()

	release, err := g.AcquirePurchase(ctx, "pkg-1", "wallet-1")
	if err != nil {
		t.Fatalf("acquire purchase lanes: %v", err)
	}
	release()

	// Both lanes must be free again.
	releaseW, err := g.AcquireWallet(ctx, "wallet-1")
	if err != nil {
		t.Fatalf("wallet lane still held: %v", err)
	}
	releaseW()
	releaseP, err := g.AcquirePurchase(ctx, "pkg-1", "wallet-2")
	if err != nil {
		t.Fatalf("package lane still held: %v", err)
	}
	releaseP()
}

func TestGuardPurchaseWalletContentionFreesPackageLane(t *testing.T) {
	g := New(20*time.Millisecond, 1)
	ctx := context.Background()

	releaseW, err := g.AcquireWallet(ctx, "wallet-1")
	if err != nil {
		t.Fatalf("acquire wallet: %v", err)
	}

	if _, err := g.AcquirePurchase(ctx, "pkg-1", "wallet-1"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected busy on wallet lane, got %v", err)
	}
	releaseW()

	// The failed purchase acquisition must not leak the package lane.
	release, err := g.AcquirePurchase(ctx, "pkg-1", "wallet-1")
	if err != nil {
		t.Fatalf("package lane leaked: %v", err)
	}
	release()
}

func TestFlightCoalescesConcurrentCallers(t *testing.T) {
	flight := NewFlight()

	var executions atomic.Int32
	gate := make(chan struct{})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]any, callers)
	shared := make([]bool, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(n int) {
			defer wg.Done()
			val, wasShared, err := flight.Do("purchase-1", func() (any, error) {
				executions.Add(1)
				<-gate
				return "outcome", nil
			})
			if err != nil {
				t.Errorf("do: %v", err)
			}
			results[n] = val
			shared[n] = wasShared
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if executions.Load() != 1 {
		t.Fatalf("expected one execution, got %d", executions.Load())
	}
	sharedCount := 0
	for i := 0; i < callers; i++ {
		if results[i] != "outcome" {
			t.Fatalf("caller %d got %v", i, results[i])
		}
		if shared[i] {
			sharedCount++
		}
	}
	if sharedCount != callers-1 {
		t.Fatalf("expected %d shared results, got %d", callers-1, sharedCount)
	}
}

func TestFlightClearsKeyAfterCompletion(t *testing.T) {
	flight := NewFlight()

	var executions atomic.Int32
	run := func() {
		_, _, _ = flight.Do("k", func() (any, error) {
			executions.Add(1)
			return nil, nil
		})
	}
	run()
	run()

	if executions.Load() != 2 {
		t.Fatalf("sequential calls must both execute, got %d", executions.Load())
	}
}
