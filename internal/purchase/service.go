package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moja-pay/moja_pay/internal/catalog"
	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/notification"
	"github.com/moja-pay/moja_pay/internal/voucher"
	"github.com/moja-pay/moja_pay/internal/wallet"
)

// Service orchestrates one purchase as an effective unit: reserve a voucher
// code when the package is stock-bound, debit the wallet, then confirm the
// code and record the outcome. The whole run is keyed by the caller's
// purchase request id: concurrent duplicates coalesce on the in-flight map,
// and retries replay the recorded outcome without re-debiting or reserving a
// second code.
type Service struct {
	repo      Repository
	packages  catalog.Repository
	allocator voucher.Allocator
	wallets   *wallet.Service
	ledger    ledger.Ledger
	guard     *guard.Guard
	notifier  notification.Notifier
}

// NewService builds a purchase pipeline service.
func NewService(repo Repository, packages catalog.Repository, allocator voucher.Allocator, wallets *wallet.Service, ledgerBackend ledger.Ledger, g *guard.Guard, notifier notification.Notifier) *Service {
	return &Service{
		repo:      repo,
		packages:  packages,
		allocator: allocator,
		wallets:   wallets,
		ledger:    ledgerBackend,
		guard:     g,
		notifier:  notifier,
	}
}

// Input captures one purchase request. PurchaseRequestID is the idempotency
// key for the entire pipeline run. RequestorID, when set, must match the
// wallet's owner.
type Input struct {
	WalletID          string
	PackageID         string
	PurchaseRequestID string
	RequestorID       string
	Inputs            map[string]string
}

// Purchase runs the pipeline. It returns the terminal purchase record; a
// failed debit additionally returns the failure so callers can surface the
// kind, with the record carrying the compensated outcome.
func (s *Service) Purchase(ctx context.Context, input Input) (ServicePurchase, error) {
	if input.PurchaseRequestID == "" {
		return ServicePurchase{}, fmt.Errorf("purchase request id is required")
	}

	val, _, err := s.guard.Coalesce(input.PurchaseRequestID, func() (any, error) {
		return s.run(ctx, input)
	})
	p, _ := val.(ServicePurchase)
	return p, err
}

// Get fetches a purchase record.
func (s *Service) Get(ctx context.Context, id string) (ServicePurchase, error) {
	return s.repo.Get(ctx, id)
}

// ListByWallet returns a wallet's purchases, newest first.
func (s *Service) ListByWallet(ctx context.Context, walletID string) ([]ServicePurchase, error) {
	return s.repo.ListByWallet(ctx, walletID)
}

func (s *Service) run(ctx context.Context, input Input) (ServicePurchase, error) {
	pkg, err := s.packages.Get(ctx, input.PackageID)
	if err != nil {
		return ServicePurchase{}, err
	}
	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return ServicePurchase{}, err
	}
	if input.RequestorID != "" && w.OwnerID != input.RequestorID {
		return ServicePurchase{}, ErrNotOwner
	}

	// Package lane before wallet lane, always through the guard helper.
	packageLane := ""
	if pkg.StockBound {
		packageLane = pkg.ID
	}
	release, err := s.guard.AcquirePurchase(ctx, packageLane, w.ID)
	if err != nil {
		return ServicePurchase{}, err
	}
	defer release()

	// A recorded purchase is the terminal outcome for this request id. A
	// record bound to a different wallet never replays across wallets.
	if existing, err := s.repo.Get(ctx, input.PurchaseRequestID); err == nil {
		if existing.WalletID != w.ID {
			return ServicePurchase{}, ErrNotOwner
		}
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return ServicePurchase{}, err
	}

	code := ""
	reserved := false
	if pkg.StockBound {
		// A replay after a confirmed debit re-derives the issued code
		// instead of reserving a second one.
		issued, ok, err := s.allocator.IssuedFor(ctx, input.PurchaseRequestID)
		if err != nil {
			return ServicePurchase{}, err
		}
		if ok {
			code = issued
		} else {
			code, err = s.allocator.Reserve(ctx, pkg.ID)
			if err != nil {
				// Out of stock fails before any debit is attempted.
				return ServicePurchase{}, err
			}
			reserved = true
		}
	}

	res, err := s.ledger.Debit(ctx, w.ID, pkg.Price, pkg.Category, input.PurchaseRequestID)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
		if reserved {
			// Compensate: the reservation goes back to the pool so the
			// failed run leaves no trace beyond the failure record.
			if relErr := s.allocator.Release(ctx, code); relErr != nil {
				return ServicePurchase{}, fmt.Errorf("release voucher after failed debit: %w", relErr)
			}
		}
		failed := s.record(ctx, input, pkg, StatusFailed, "")
		s.notify(ctx, notification.KindPurchaseFailed, w.OwnerID, pkg.Price, 0, "")
		return failed, err
	}

	if pkg.StockBound {
		if err := s.allocator.Confirm(ctx, code, input.PurchaseRequestID); err != nil {
			return ServicePurchase{}, err
		}
	}

	p := s.record(ctx, input, pkg, StatusSucceeded, code)
	s.notify(ctx, notification.KindPurchaseCompleted, w.OwnerID, pkg.Price, res.BalanceAfter, code)
	return p, nil
}

func (s *Service) record(ctx context.Context, input Input, pkg catalog.Package, status, code string) ServicePurchase {
	p := ServicePurchase{
		ID:          input.PurchaseRequestID,
		WalletID:    input.WalletID,
		PackageID:   pkg.ID,
		Category:    pkg.Category,
		Amount:      pkg.Price,
		Status:      status,
		VoucherCode: code,
		Inputs:      input.Inputs,
		CreatedAt:   time.Now().UTC(),
	}
	// Best effort on the failure path; the success path has already
	// committed the debit, and Create tolerates replays.
	_ = s.repo.Create(ctx, p)
	return p
}

func (s *Service) notify(ctx context.Context, kind, ownerID string, amount, balance int64, code string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: ownerID,
		Amount:      amount,
		Balance:     balance,
		Reference:   code,
	})
}
