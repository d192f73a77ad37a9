package topup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moja-pay/moja_pay/internal/audit"
	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/notification"
	"github.com/moja-pay/moja_pay/internal/wallet"
)

// CategoryTopup is the ledger category for approved balance requests.
const CategoryTopup = "topup"

const noteMinLen = 5

// Bounds limit user-claimed top-up amounts, in minor currency units.
type Bounds struct {
	Min int64
	Max int64
}

// Service drives the balance request workflow. Decisions run under the
// wallet's guard lane, so two admins racing over one request resolve to a
// single terminal state, and the approval credit is keyed by the request id
// so a replayed approval can never double-credit.
type Service struct {
	repo     Repository
	wallets  *wallet.Service
	ledger   ledger.Ledger
	guard    *guard.Guard
	notifier notification.Notifier
	auditor  audit.Recorder
	bounds   Bounds
}

// NewService builds a balance request workflow service.
func NewService(repo Repository, wallets *wallet.Service, ledgerBackend ledger.Ledger, g *guard.Guard, notifier notification.Notifier, auditor audit.Recorder, bounds Bounds) *Service {
	return &Service{
		repo:     repo,
		wallets:  wallets,
		ledger:   ledgerBackend,
		guard:    g,
		notifier: notifier,
		auditor:  auditor,
		bounds:   bounds,
	}
}

// CreateInput captures a user-submitted top-up claim. RequestorID, when set,
// must match the wallet's owner.
type CreateInput struct {
	WalletID    string
	Amount      int64
	Method      string
	Reference   string
	RequestorID string
}

// Create records a pending balance request. No balance effect.
func (s *Service) Create(ctx context.Context, input CreateInput) (BalanceRequest, error) {
	if input.Amount < s.bounds.Min || input.Amount > s.bounds.Max {
		return BalanceRequest{}, ErrAmountOutOfBounds
	}
	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return BalanceRequest{}, err
	}
	if input.RequestorID != "" && w.OwnerID != input.RequestorID {
		return BalanceRequest{}, ErrNotOwner
	}

	req := BalanceRequest{
		ID:        uuid.New().String(),
		WalletID:  w.ID,
		Amount:    input.Amount,
		Method:    input.Method,
		Reference: input.Reference,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return BalanceRequest{}, err
	}
	return req, nil
}

// Get fetches one balance request.
func (s *Service) Get(ctx context.Context, id string) (BalanceRequest, error) {
	return s.repo.Get(ctx, id)
}

// ListByWallet returns a wallet's balance requests, newest first.
func (s *Service) ListByWallet(ctx context.Context, walletID string) ([]BalanceRequest, error) {
	return s.repo.ListByWallet(ctx, walletID)
}

// Decision carries the admin's adjudication of a pending request.
type Decision struct {
	RequestID  string
	AdminID    string
	Note       string
	SourceAddr string
}

// Approve moves a pending request to approved and credits the wallet. The
// credit uses the request id as reference key; if a prior approval attempt
// already posted it, the ledger replays the original result and the request
// is simply marked approved.
func (s *Service) Approve(ctx context.Context, d Decision) (BalanceRequest, error) {
	req, err := s.repo.Get(ctx, d.RequestID)
	if err != nil {
		return BalanceRequest{}, err
	}

	release, err := s.guard.AcquireWallet(ctx, req.WalletID)
	if err != nil {
		return BalanceRequest{}, err
	}
	defer release()

	// Re-read under the lane: another decision may have landed while waiting.
	req, err = s.repo.Get(ctx, d.RequestID)
	if err != nil {
		return BalanceRequest{}, err
	}
	if req.Status != StatusPending {
		return BalanceRequest{}, ErrInvalidTransition
	}

	res, err := s.ledger.Credit(ctx, req.WalletID, req.Amount, CategoryTopup, req.ID)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
		return BalanceRequest{}, err
	}

	decidedAt := time.Now().UTC()
	ok, err := s.repo.Decide(ctx, req.ID, StatusApproved, d.AdminID, d.Note, decidedAt)
	if err != nil {
		return BalanceRequest{}, err
	}
	if !ok {
		return BalanceRequest{}, ErrInvalidTransition
	}

	req.Status = StatusApproved
	req.AdminID = d.AdminID
	req.Note = d.Note
	req.DecidedAt = &decidedAt

	s.emit(ctx, audit.ActionTopupApproved, d, req)
	s.notify(ctx, notification.KindTopupApproved, req, res.BalanceAfter)
	return req, nil
}

// Reject moves a pending request to rejected. It requires a meaningful admin
// note and has no balance effect.
func (s *Service) Reject(ctx context.Context, d Decision) (BalanceRequest, error) {
	if len(strings.TrimSpace(d.Note)) < noteMinLen {
		return BalanceRequest{}, ErrNoteTooShort
	}

	req, err := s.repo.Get(ctx, d.RequestID)
	if err != nil {
		return BalanceRequest{}, err
	}

	release, err := s.guard.AcquireWallet(ctx, req.WalletID)
	if err != nil {
		return BalanceRequest{}, err
	}
	defer release()

	req, err = s.repo.Get(ctx, d.RequestID)
	if err != nil {
		return BalanceRequest{}, err
	}
	if req.Status != StatusPending {
		return BalanceRequest{}, ErrInvalidTransition
	}

	decidedAt := time.Now().UTC()
	ok, err := s.repo.Decide(ctx, req.ID, StatusRejected, d.AdminID, d.Note, decidedAt)
	if err != nil {
		return BalanceRequest{}, err
	}
	if !ok {
		return BalanceRequest{}, ErrInvalidTransition
	}

	req.Status = StatusRejected
	req.AdminID = d.AdminID
	req.Note = d.Note
	req.DecidedAt = &decidedAt

	s.emit(ctx, audit.ActionTopupRejected, d, req)
	s.notify(ctx, notification.KindTopupRejected, req, 0)
	return req, nil
}

func (s *Service) emit(ctx context.Context, action string, d Decision, req BalanceRequest) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Event{
		Actor:      d.AdminID,
		Action:     action,
		Target:     req.ID,
		Reason:     d.Note,
		SourceAddr: d.SourceAddr,
		At:         time.Now().UTC(),
	})
}

func (s *Service) notify(ctx context.Context, kind string, req BalanceRequest, balance int64) {
	if s.notifier == nil {
		return
	}
	w, err := s.wallets.Get(ctx, req.WalletID)
	if err != nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: w.OwnerID,
		Amount:      req.Amount,
		Balance:     balance,
		Reference:   req.ID,
	})
}
