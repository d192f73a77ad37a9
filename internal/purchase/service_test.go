package purchase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/moja-pay/moja_pay/internal/catalog"
	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/topup"
	"github.com/moja-pay/moja_pay/internal/voucher"
	"github.com/moja-pay/moja_pay/internal/wallet"
)

type fixture struct {
	svc       *Service
	wallets   *wallet.Service
	packages  catalog.Repository
	allocator voucher.Allocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	led := ledger.NewInMemory()
	g := guard.New(time.Second, 3)
	wallets := wallet.NewService(wallet.NewMemoryRepository(), led, g, nil)
	packages := catalog.NewMemoryRepository()
	allocator := voucher.NewMemoryAllocator()
	svc := NewService(NewMemoryRepository(), packages, allocator, wallets, led, g, nil)
	return &fixture{svc: svc, wallets: wallets, packages: packages, allocator: allocator}
}

func (f *fixture) newWallet(t *testing.T, balance int64) string {
	t.Helper()
	ctx := context.Background()
	w, err := f.wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balance > 0 {
		if _, err := f.wallets.Credit(ctx, wallet.PostingInput{
			WalletID: w.ID, Amount: balance, Category: "topup", ReferenceKey: "seed-" + w.ID,
		}); err != nil {
			t.Fatalf("seed credit: %v", err)
		}
	}
	return w.ID
}

func (f *fixture) newPackage(t *testing.T, price int64, stockBound bool, codes ...string) catalog.Package {
	t.Helper()
	ctx := context.Background()
	pkg := catalog.Package{
		ID:         uuid.NewString(),
		Name:       "Test Bundle",
		Category:   catalog.CategoryInternet,
		Price:      price,
		StockBound: stockBound,
		CreatedAt:  time.Now().UTC(),
	}
	if err := f.packages.Create(ctx, pkg); err != nil {
		t.Fatalf("create package: %v", err)
	}
	if len(codes) > 0 {
		if _, err := f.allocator.AddCodes(ctx, pkg.ID, codes); err != nil {
			t.Fatalf("load codes: %v", err)
		}
	}
	return pkg
}

func TestPurchaseStockBoundSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.newWallet(t, 1_000)
	pkg := f.newPackage(t, 250, true, "CODE-1")

	p, err := f.svc.Purchase(ctx, Input{
		WalletID:          walletID,
		PackageID:         pkg.ID,
		PurchaseRequestID: "req-0001",
		Inputs:            map[string]string{"msisdn": "254700000001"},
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if p.Status != StatusSucceeded || p.VoucherCode != "CODE-1" {
		t.Fatalf("expected succeeded with CODE-1, got %+v", p)
	}

	balance, err := f.wallets.Balance(ctx, walletID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 750 {
		t.Fatalf("expected balance 750, got %d", balance.Amount)
	}
	remaining, err := f.allocator.Remaining(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected empty pool, got %d", remaining)
	}
}

func TestPurchaseWithoutStockBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.newWallet(t, 1_000)
	pkg := f.newPackage(t, 400, false)

	p, err := f.svc.Purchase(ctx, Input{WalletID: walletID, PackageID: pkg.ID, PurchaseRequestID: "req-0002"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if p.Status != StatusSucceeded || p.VoucherCode != "" {
		t.Fatalf("expected succeeded without code, got %+v", p)
	}
}

func TestPurchaseOutOfStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.newWallet(t, 1_000)
	pkg := f.newPackage(t, 250, true) // no codes loaded

	_, err := f.svc.Purchase(ctx, Input{WalletID: walletID, PackageID: pkg.ID, PurchaseRequestID: "req-0003"})
	if !errors.Is(err, voucher.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}

	balance, _ := f.wallets.Balance(ctx, walletID)
	if balance.Amount != 1_000 {
		t.Fatalf("out of stock must not debit: balance %d", balance.Amount)
	}
	if _, err := f.svc.Get(ctx, "req-0003"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("out of stock must not record a purchase, got %v", err)
	}
}

func TestPurchaseInsufficientFundsCompensates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.newWallet(t, 100)
	pkg := f.newPackage(t, 250, true, "CODE-1")

	_, err := f.svc.Purchase(ctx, Input{WalletID: walletID, PackageID: pkg.ID, PurchaseRequestID: "req-0004"})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The reserved code went back to the pool.
	remaining, err := f.allocator.Remaining(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected code back in pool, remaining %d", remaining)
	}

	// The failure is recorded as the terminal outcome for this request id.
	p, err := f.svc.Get(ctx, "req-0004")
	if err != nil {
		t.Fatalf("get failed record: %v", err)
	}
	if p.Status != StatusFailed || p.VoucherCode != "" {
		t.Fatalf("expected failed record without code, got %+v", p)
	}

	balance, _ := f.wallets.Balance(ctx, walletID)
	if balance.Amount != 100 {
		t.Fatalf("failed purchase must not move balance: got %d", balance.Amount)
	}
}

func TestPurchaseReplayReturnsRecordedOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.newWallet(t, 1_000)
	pkg := f.newPackage(t, 250, true, "CODE-1", "CODE-2")

	first, err := f.svc.Purchase(ctx, Input{WalletID: walletID, PackageID: pkg.ID, PurchaseRequestID: "req-0005"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	replay, err := f.svc.Purchase(ctx, Input{WalletID: walletID, PackageID: pkg.ID, PurchaseRequestID: "req-0005"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.VoucherCode != first.VoucherCode || replay.Status != StatusSucceeded {
		t.Fatalf("replay returned %+v, want %+v", replay, first)
	}

	balance, _ := f.wallets.Balance(ctx, walletID)
	if balance.Amount != 750 {
		t.Fatalf("replay must not debit again: balance %d", balance.Amount)
	}
	remaining, _ := f.allocator.Remaining(ctx, pkg.ID)
	if remaining != 1 {
		t.Fatalf("replay must not consume another code: remaining %d", remaining)
	}
}

func TestPurchaseOnForeignWalletForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	victim, err := f.wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if _, err := f.wallets.Credit(ctx, wallet.PostingInput{
		WalletID: victim.ID, Amount: 1_000, Category: "topup", ReferenceKey: "seed-" + victim.ID,
	}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	pkg := f.newPackage(t, 250, true, "CODE-1")

	_, err = f.svc.Purchase(ctx, Input{
		WalletID:          victim.ID,
		PackageID:         pkg.ID,
		PurchaseRequestID: "req-0300",
		RequestorID:       uuid.NewString(),
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	balance, _ := f.wallets.Balance(ctx, victim.ID)
	if balance.Amount != 1_000 {
		t.Fatalf("foreign purchase must not debit: balance %d", balance.Amount)
	}
	if _, err := f.svc.Get(ctx, "req-0300"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign purchase must not record, got %v", err)
	}
	remaining, _ := f.allocator.Remaining(ctx, pkg.ID)
	if remaining != 1 {
		t.Fatalf("foreign purchase must not touch stock: remaining %d", remaining)
	}

	// The owner runs the same request fine.
	p, err := f.svc.Purchase(ctx, Input{
		WalletID:          victim.ID,
		PackageID:         pkg.ID,
		PurchaseRequestID: "req-0300",
		RequestorID:       victim.OwnerID,
	})
	if err != nil || p.Status != StatusSucceeded {
		t.Fatalf("owner purchase: %v (%+v)", err, p)
	}
}

func TestPurchaseRequestIDNeverReplaysAcrossWallets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	second, err := f.wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	for _, id := range []string{first.ID, second.ID} {
		if _, err := f.wallets.Credit(ctx, wallet.PostingInput{
			WalletID: id, Amount: 1_000, Category: "topup", ReferenceKey: "seed-" + id,
		}); err != nil {
			t.Fatalf("seed credit: %v", err)
		}
	}
	pkg := f.newPackage(t, 250, true, "CODE-1", "CODE-2")

	p, err := f.svc.Purchase(ctx, Input{
		WalletID:          first.ID,
		PackageID:         pkg.ID,
		PurchaseRequestID: "req-0301",
		RequestorID:       first.OwnerID,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// Reusing the request id from another wallet must not surface the first
	// wallet's record or its voucher code.
	leaked, err := f.svc.Purchase(ctx, Input{
		WalletID:          second.ID,
		PackageID:         pkg.ID,
		PurchaseRequestID: "req-0301",
		RequestorID:       second.OwnerID,
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if leaked.VoucherCode == p.VoucherCode && leaked.VoucherCode != "" {
		t.Fatalf("voucher code leaked across wallets: %s", leaked.VoucherCode)
	}
	balance, _ := f.wallets.Balance(ctx, second.ID)
	if balance.Amount != 1_000 {
		t.Fatalf("collision must not debit: balance %d", balance.Amount)
	}
}

func TestConcurrentPurchasesNeverOverissue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pkg := f.newPackage(t, 100, true, "CODE-1", "CODE-2", "CODE-3")

	const buyers = 5
	type result struct {
		p   ServicePurchase
		err error
	}
	results := make(chan result, buyers)
	for i := 0; i < buyers; i++ {
		walletID := f.newWallet(t, 500)
		reqID := fmt.Sprintf("req-0100-%d", i)
		go func() {
			p, err := f.svc.Purchase(ctx, Input{WalletID: walletID, PackageID: pkg.ID, PurchaseRequestID: reqID})
			results <- result{p: p, err: err}
		}()
	}

	codes := make(map[string]bool)
	outOfStock := 0
	for i := 0; i < buyers; i++ {
		res := <-results
		switch {
		case res.err == nil:
			if codes[res.p.VoucherCode] {
				t.Fatalf("code %s issued twice", res.p.VoucherCode)
			}
			codes[res.p.VoucherCode] = true
		case errors.Is(res.err, voucher.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", res.err)
		}
	}
	if len(codes) != 3 || outOfStock != 2 {
		t.Fatalf("expected 3 issued and 2 out of stock, got %d/%d", len(codes), outOfStock)
	}
}

func TestPurchaseDuplicateRequestsCoalesce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walletID := f.newWallet(t, 1_000)
	pkg := f.newPackage(t, 250, true, "CODE-1", "CODE-2")

	const dupes = 4
	results := make(chan ServicePurchase, dupes)
	for i := 0; i < dupes; i++ {
		go func() {
			p, err := f.svc.Purchase(ctx, Input{WalletID: walletID, PackageID: pkg.ID, PurchaseRequestID: "req-0200"})
			if err != nil {
				t.Errorf("purchase: %v", err)
			}
			results <- p
		}()
	}

	var code string
	for i := 0; i < dupes; i++ {
		p := <-results
		if code == "" {
			code = p.VoucherCode
		} else if p.VoucherCode != code {
			t.Fatalf("duplicate requests issued different codes: %s vs %s", code, p.VoucherCode)
		}
	}

	balance, _ := f.wallets.Balance(ctx, walletID)
	if balance.Amount != 750 {
		t.Fatalf("duplicates must debit once: balance %d", balance.Amount)
	}
}

func TestWalletJourney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	led := ledger.NewInMemory()
	g := guard.New(time.Second, 3)
	wallets := wallet.NewService(wallet.NewMemoryRepository(), led, g, nil)
	topups := topup.NewService(topup.NewMemoryRepository(), wallets, led, g, nil, nil, topup.Bounds{Min: 100, Max: 1_000_000})
	purchases := NewService(NewMemoryRepository(), f.packages, f.allocator, wallets, led, g, nil)

	w, err := wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	ledger.SeedBalance(led, w.ID, 500)

	req, err := topups.Create(ctx, topup.CreateInput{WalletID: w.ID, Amount: 300, Method: "mpesa"})
	if err != nil {
		t.Fatalf("create topup: %v", err)
	}
	if _, err := topups.Approve(ctx, topup.Decision{RequestID: req.ID, AdminID: "admin-1"}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	balance, _ := wallets.Balance(ctx, w.ID)
	if balance.Amount != 800 {
		t.Fatalf("after approval expected 800, got %d", balance.Amount)
	}

	pkg := f.newPackage(t, 250, false)
	if _, err := purchases.Purchase(ctx, Input{WalletID: w.ID, PackageID: pkg.ID, PurchaseRequestID: "req-journey"}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	balance, _ = wallets.Balance(ctx, w.ID)
	if balance.Amount != 550 {
		t.Fatalf("after purchase expected 550, got %d", balance.Amount)
	}

	entries, err := wallets.Entries(ctx, w.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Direction != ledger.DirectionCredit || entries[0].Amount != 300 {
		t.Fatalf("first entry should be CREDIT 300, got %s %d", entries[0].Direction, entries[0].Amount)
	}
	if entries[1].Direction != ledger.DirectionDebit || entries[1].Amount != 250 {
		t.Fatalf("second entry should be DEBIT 250, got %s %d", entries[1].Direction, entries[1].Amount)
	}
}
