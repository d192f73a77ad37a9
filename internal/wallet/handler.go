package wallet

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/apierr"
	"github.com/moja-pay/moja_pay/internal/audit"
	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/validation"
)

// Handler exposes wallet HTTP endpoints. Lifecycle changes and manual
// postings are admin actions and leave an audit event.
type Handler struct {
	service *Service
	auditor audit.Recorder
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, auditor audit.Recorder) *Handler {
	return &Handler{service: service, auditor: auditor}
}

type createRequest struct {
	OwnerID  string `json:"owner_id" validate:"required,uuid4"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

type walletResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Currency:  w.Currency,
		Status:    w.Status,
		CreatedAt: w.CreatedAt,
	}
}

// Create provisions a wallet for the given owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: req.OwnerID, Currency: req.Currency})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Me returns the authenticated user's wallet with its current balance.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return apierr.New(http.StatusUnauthorized, apierr.KindUnauthorized, "unauthorized")
	}
	w, err := h.service.FindByOwner(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	balance, err := h.service.Balance(c.UserContext(), w.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"wallet":  toResponse(w),
		"balance": balance.Amount,
		"as_of":   balance.AsOf,
	})
}

// Balance returns the wallet's ledger balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"wallet_id": balance.WalletID,
		"balance":   balance.Amount,
		"as_of":     balance.AsOf,
	})
}

type entryResponse struct {
	ID           string    `json:"id"`
	Direction    string    `json:"direction"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Category     string    `json:"category"`
	ReferenceKey string    `json:"reference_key"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entries returns the wallet's append-only entry log.
func (h *Handler) Entries(c *fiber.Ctx) error {
	entries, err := h.service.Entries(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return mapError(err)
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:           e.ID,
			Direction:    e.Direction,
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			Category:     e.Category,
			ReferenceKey: e.ReferenceKey,
			CreatedAt:    e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"wallet_id": c.Params("walletId"), "entries": out})
}

// Suspend freezes the wallet.
func (h *Handler) Suspend(c *fiber.Ctx) error {
	if err := h.service.Suspend(c.UserContext(), c.Params("walletId")); err != nil {
		return mapError(err)
	}
	h.emit(c, audit.ActionWalletSuspended, c.Params("walletId"))
	return c.JSON(fiber.Map{"wallet_id": c.Params("walletId"), "status": StatusSuspended})
}

// Resume re-activates the wallet.
func (h *Handler) Resume(c *fiber.Ctx) error {
	if err := h.service.Resume(c.UserContext(), c.Params("walletId")); err != nil {
		return mapError(err)
	}
	h.emit(c, audit.ActionWalletResumed, c.Params("walletId"))
	return c.JSON(fiber.Map{"wallet_id": c.Params("walletId"), "status": StatusActive})
}

type postingRequest struct {
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	Category     string `json:"category" validate:"required"`
	ReferenceKey string `json:"reference_key" validate:"required"`
}

// Credit posts a manual credit against the wallet.
func (h *Handler) Credit(c *fiber.Ctx) error {
	return h.posting(c, audit.ActionManualCredit, h.service.Credit)
}

// Debit posts a manual debit against the wallet.
func (h *Handler) Debit(c *fiber.Ctx) error {
	return h.posting(c, audit.ActionManualDebit, h.service.Debit)
}

func (h *Handler) posting(c *fiber.Ctx, action string, post func(ctx context.Context, input PostingInput) (ledger.PostingResult, error)) error {
	var req postingRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	res, err := post(c.UserContext(), PostingInput{
		WalletID:     c.Params("walletId"),
		Amount:       req.Amount,
		Category:     req.Category,
		ReferenceKey: req.ReferenceKey,
	})
	if err != nil {
		return mapError(err)
	}
	h.emit(c, action, c.Params("walletId"))
	return c.JSON(fiber.Map{
		"entry_id":      res.EntryID,
		"balance_after": res.BalanceAfter,
	})
}

func (h *Handler) emit(c *fiber.Ctx, action, target string) {
	if h.auditor == nil {
		return
	}
	actor, _ := c.Locals("user_id").(string)
	h.auditor.Record(c.UserContext(), audit.Event{
		Actor:      actor,
		Action:     action,
		Target:     target,
		SourceAddr: c.IP(),
		At:         time.Now().UTC(),
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindWalletNotFound, "wallet not found")
	case errors.Is(err, ledger.ErrWalletInactive):
		return apierr.New(http.StatusConflict, apierr.KindWalletInactive, "wallet is suspended")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return apierr.New(http.StatusUnprocessableEntity, apierr.KindInsufficientFunds, "insufficient funds")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return apierr.Validation("amount must be positive")
	case errors.Is(err, guard.ErrBusy):
		return apierr.New(http.StatusTooManyRequests, apierr.KindBusy, "wallet is busy, retry shortly")
	default:
		return err
	}
}
