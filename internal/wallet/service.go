package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/notification"
)

const defaultCurrency = "KES"

// Service exposes wallet operations backed by the ledger. All postings go
// through the guard's wallet lane so mutations on one wallet observe a total
// order while unrelated wallets stay concurrent.
type Service struct {
	repo     Repository
	ledger   ledger.Ledger
	guard    *guard.Guard
	notifier notification.Notifier
}

// NewService builds a wallet service instance.
func NewService(repo Repository, ledgerBackend ledger.Ledger, g *guard.Guard, notifier notification.Notifier) *Service {
	return &Service{repo: repo, ledger: ledgerBackend, guard: g, notifier: notifier}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID  string
	Currency string
}

// Create provisions a wallet and registers it with the ledger.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	if _, err := uuid.Parse(input.OwnerID); err != nil {
		return Wallet{}, err
	}

	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	w := Wallet{
		ID:        uuid.New().String(),
		OwnerID:   input.OwnerID,
		Currency:  currency,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	if err := s.ledger.EnsureWallet(ctx, w.ID); err != nil {
		return Wallet{}, err
	}

	return w, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// FindByOwner retrieves the wallet belonging to a user.
func (s *Service) FindByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return s.repo.FindByOwner(ctx, ownerID)
}

// Suspend freezes the wallet. Postings against a suspended wallet fail with
// ledger.ErrWalletInactive until it is resumed.
func (s *Service) Suspend(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, StatusSuspended); err != nil {
		return err
	}
	return s.ledger.SetActive(ctx, id, false)
}

// Resume re-activates a suspended wallet.
func (s *Service) Resume(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, StatusActive); err != nil {
		return err
	}
	return s.ledger.SetActive(ctx, id, true)
}

// Balance returns the ledger balance for the wallet.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, w.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: w.ID, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Entries returns the wallet's append-only entry log.
func (s *Service) Entries(ctx context.Context, id string) ([]ledger.Entry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger.Entries(ctx, id)
}

// PostingInput carries a manual credit or debit request.
type PostingInput struct {
	WalletID     string
	Amount       int64
	Category     string
	ReferenceKey string
}

// Credit posts a credit under the wallet lane. A replayed reference key
// returns the original result transparently.
func (s *Service) Credit(ctx context.Context, input PostingInput) (ledger.PostingResult, error) {
	return s.post(ctx, input, notification.KindWalletCredited, s.ledger.Credit)
}

// Debit posts a debit under the wallet lane.
func (s *Service) Debit(ctx context.Context, input PostingInput) (ledger.PostingResult, error) {
	return s.post(ctx, input, notification.KindWalletDebited, s.ledger.Debit)
}

type postingFn func(ctx context.Context, walletID string, amount int64, category, referenceKey string) (ledger.PostingResult, error)

func (s *Service) post(ctx context.Context, input PostingInput, kind string, fn postingFn) (ledger.PostingResult, error) {
	w, err := s.repo.Get(ctx, input.WalletID)
	if err != nil {
		return ledger.PostingResult{}, err
	}

	release, err := s.guard.AcquireWallet(ctx, w.ID)
	if err != nil {
		return ledger.PostingResult{}, err
	}
	defer release()

	res, err := fn(ctx, w.ID, input.Amount, input.Category, input.ReferenceKey)
	if err != nil {
		// A duplicate reference is the idempotent replay of an applied
		// posting: surface the original result as success and skip the
		// notification, which already went out the first time.
		if errors.Is(err, ledger.ErrDuplicateReference) {
			return res, nil
		}
		return ledger.PostingResult{}, err
	}

	s.notify(ctx, kind, w.OwnerID, input.Amount, res.BalanceAfter)
	return res, nil
}

func (s *Service) notify(ctx context.Context, kind, ownerID string, amount, balance int64) {
	if s.notifier == nil {
		return
	}
	// Delivery failure never rolls back a committed posting.
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: ownerID,
		Amount:      amount,
		Balance:     balance,
	})
}
