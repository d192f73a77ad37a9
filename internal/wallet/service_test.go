package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), ledger.NewInMemory(), guard.New(time.Second, 3), nil)
}

func TestServiceCreateAndBalance(t *testing.T) {
	svc := newTestService()

	ctx := context.Background()
	ownerID := uuid.NewString()
	w, err := svc.Create(ctx, CreateInput{OwnerID: ownerID})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.Currency != defaultCurrency {
		t.Fatalf("expected default currency %s, got %s", defaultCurrency, w.Currency)
	}

	fetched, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.ID != w.ID || fetched.OwnerID != ownerID {
		t.Fatalf("expected wallet %s owned by %s, got %s/%s", w.ID, ownerID, fetched.ID, fetched.OwnerID)
	}

	if _, err := svc.Credit(ctx, PostingInput{WalletID: w.ID, Amount: 2_500, Category: "topup", ReferenceKey: "seed-1"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	balance, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 2_500 {
		t.Fatalf("expected balance 2500, got %d", balance.Amount)
	}
}

func TestServiceCreditReplayIsTransparent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	first, err := svc.Credit(ctx, PostingInput{WalletID: w.ID, Amount: 1_000, Category: "topup", ReferenceKey: "ref-1"})
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	replay, err := svc.Credit(ctx, PostingInput{WalletID: w.ID, Amount: 1_000, Category: "topup", ReferenceKey: "ref-1"})
	if err != nil {
		t.Fatalf("replayed credit: %v", err)
	}
	if replay.EntryID != first.EntryID || replay.BalanceAfter != first.BalanceAfter {
		t.Fatalf("replay returned %+v, want original %+v", replay, first)
	}

	balance, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 1_000 {
		t.Fatalf("replay must not double-credit: balance %d", balance.Amount)
	}

	entries, err := svc.Entries(ctx, w.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single entry, got %d", len(entries))
	}
}

func TestServiceSuspendBlocksPostings(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if _, err := svc.Credit(ctx, PostingInput{WalletID: w.ID, Amount: 500, Category: "topup", ReferenceKey: "seed"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if err := svc.Suspend(ctx, w.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	_, err = svc.Debit(ctx, PostingInput{WalletID: w.ID, Amount: 100, Category: "recharge", ReferenceKey: "p-1"})
	if !errors.Is(err, ledger.ErrWalletInactive) {
		t.Fatalf("expected ErrWalletInactive, got %v", err)
	}

	// Balance stays readable while suspended.
	balance, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance while suspended: %v", err)
	}
	if balance.Amount != 500 {
		t.Fatalf("expected balance 500, got %d", balance.Amount)
	}

	if err := svc.Resume(ctx, w.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := svc.Debit(ctx, PostingInput{WalletID: w.ID, Amount: 100, Category: "recharge", ReferenceKey: "p-1"}); err != nil {
		t.Fatalf("debit after resume: %v", err)
	}
}

func TestServiceDebitInsufficientFunds(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if _, err := svc.Credit(ctx, PostingInput{WalletID: w.ID, Amount: 50, Category: "topup", ReferenceKey: "seed"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err = svc.Debit(ctx, PostingInput{WalletID: w.ID, Amount: 100, Category: "recharge", ReferenceKey: "p-1"})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 50 {
		t.Fatalf("failed debit must not move balance: got %d", balance.Amount)
	}
}
