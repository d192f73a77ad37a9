package voucher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func loadCodes(t *testing.T, a Allocator, packageID string, n int) []string {
	t.Helper()
	codes := make([]string, n)
	for i := range codes {
		codes[i] = fmt.Sprintf("%s-CODE-%03d", packageID, i)
	}
	added, err := a.AddCodes(context.Background(), packageID, codes)
	if err != nil {
		t.Fatalf("add codes: %v", err)
	}
	if added != n {
		t.Fatalf("expected %d codes added, got %d", n, added)
	}
	return codes
}

func TestReserveConfirmLifecycle(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAllocator()
	loadCodes(t, a, "net-1g", 2)

	code, err := a.Reserve(ctx, "net-1g")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := a.Confirm(ctx, code, "purchase-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Confirm is idempotent for the same purchase.
	if err := a.Confirm(ctx, code, "purchase-1"); err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}

	got, ok, err := a.IssuedFor(ctx, "purchase-1")
	if err != nil || !ok || got != code {
		t.Fatalf("issued-for mismatch: %q %v %v", got, ok, err)
	}

	remaining, _ := a.Remaining(ctx, "net-1g")
	if remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", remaining)
	}
}

func TestReleaseReturnsCodeToPool(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAllocator()
	loadCodes(t, a, "net-1g", 1)

	code, err := a.Reserve(ctx, "net-1g")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := a.Reserve(ctx, "net-1g"); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}

	if err := a.Release(ctx, code); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := a.Reserve(ctx, "net-1g")
	if err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	if again != code {
		t.Fatalf("expected released code back, got %q", again)
	}
}

func TestConfirmRequiresReservation(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAllocator()
	codes := loadCodes(t, a, "net-1g", 1)

	if err := a.Confirm(ctx, codes[0], "purchase-1"); !errors.Is(err, ErrCodeNotReserved) {
		t.Fatalf("expected not reserved, got %v", err)
	}
	if err := a.Confirm(ctx, "missing", "purchase-1"); !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected unknown code, got %v", err)
	}
	if err := a.Release(ctx, codes[0]); !errors.Is(err, ErrCodeNotReserved) {
		t.Fatalf("expected not reserved on release, got %v", err)
	}
}

func TestConcurrentReserveNeverDoubleIssues(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAllocator()
	loadCodes(t, a, "net-1g", 3)

	const callers = 5
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		won        []string
		outOfStock int
	)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			code, err := a.Reserve(ctx, "net-1g")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won = append(won, code)
			case errors.Is(err, ErrOutOfStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(won) != 3 || outOfStock != 2 {
		t.Fatalf("expected 3 reservations and 2 out-of-stock, got %d/%d", len(won), outOfStock)
	}
	seen := make(map[string]bool)
	for _, code := range won {
		if seen[code] {
			t.Fatalf("code %q handed to two callers", code)
		}
		seen[code] = true
	}
}
