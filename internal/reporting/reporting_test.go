package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/moja-pay/moja_pay/internal/purchase"
)

func seedPurchases(t *testing.T) purchase.Repository {
	t.Helper()
	repo := purchase.NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []purchase.ServicePurchase{
		{ID: "p-1", WalletID: "w-1", Category: "internet", Amount: 500, Status: purchase.StatusSucceeded, CreatedAt: base},
		{ID: "p-2", WalletID: "w-1", Category: "internet", Amount: 500, Status: purchase.StatusSucceeded, CreatedAt: base.Add(time.Hour)},
		{ID: "p-3", WalletID: "w-2", Category: "recharge", Amount: 300, Status: purchase.StatusSucceeded, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "p-4", WalletID: "w-2", Category: "internet", Amount: 500, Status: purchase.StatusFailed, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "p-5", WalletID: "w-3", Category: "bill", Amount: 2_000, Status: purchase.StatusSucceeded, CreatedAt: base.AddDate(0, 1, 0)},
	}
	for _, p := range records {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", p.ID, err)
		}
	}
	return repo
}

func TestRevenueExcludesFailures(t *testing.T) {
	svc := NewService(seedPurchases(t))

	lines, err := svc.Revenue(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}

	totals := make(map[string]int64)
	for _, line := range lines {
		totals[line.Category] = line.Total
	}
	if totals["internet"] != 1_000 {
		t.Fatalf("internet revenue %d, want 1000 (failed runs excluded)", totals["internet"])
	}
	if totals["recharge"] != 300 || totals["bill"] != 2_000 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestRevenueWindow(t *testing.T) {
	svc := NewService(seedPurchases(t))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	lines, err := svc.Revenue(context.Background(), from, to)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}

	for _, line := range lines {
		if line.Category == "bill" {
			t.Fatalf("bill purchase lies outside [from, to) and must be excluded")
		}
	}
}

func TestTopSpendersOrderAndLimit(t *testing.T) {
	svc := NewService(seedPurchases(t))

	spenders, err := svc.TopSpenders(context.Background(), 2, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("top spenders: %v", err)
	}
	if len(spenders) != 2 {
		t.Fatalf("expected 2 spenders, got %d", len(spenders))
	}
	if spenders[0].WalletID != "w-3" || spenders[0].Total != 2_000 {
		t.Fatalf("expected w-3 first with 2000, got %+v", spenders[0])
	}
	if spenders[1].WalletID != "w-1" || spenders[1].Total != 1_000 {
		t.Fatalf("expected w-1 second with 1000, got %+v", spenders[1])
	}
}
