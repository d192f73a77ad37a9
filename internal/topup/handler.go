package topup

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/apierr"
	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/validation"
	"github.com/moja-pay/moja_pay/internal/wallet"
)

// Handler exposes the balance request workflow over HTTP.
type Handler struct {
	service *Service
}

// NewHandler builds a top-up HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	WalletID  string `json:"wallet_id" validate:"required,uuid4"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required,oneof=mpesa bank_transfer cash agent"`
	Reference string `json:"reference" validate:"omitempty,max=128"`
}

type requestResponse struct {
	ID        string     `json:"id"`
	WalletID  string     `json:"wallet_id"`
	Amount    int64      `json:"amount"`
	Method    string     `json:"method"`
	Reference string     `json:"reference,omitempty"`
	Status    string     `json:"status"`
	AdminID   string     `json:"admin_id,omitempty"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

func toResponse(r BalanceRequest) requestResponse {
	return requestResponse{
		ID:        r.ID,
		WalletID:  r.WalletID,
		Amount:    r.Amount,
		Method:    r.Method,
		Reference: r.Reference,
		Status:    r.Status,
		AdminID:   r.AdminID,
		Note:      r.Note,
		CreatedAt: r.CreatedAt,
		DecidedAt: r.DecidedAt,
	}
}

// Create submits a pending balance request.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	uid, _ := c.Locals("user_id").(string)
	r, err := h.service.Create(c.UserContext(), CreateInput{
		WalletID:    req.WalletID,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		RequestorID: uid,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(r))
}

// Get fetches one balance request.
func (h *Handler) Get(c *fiber.Ctx) error {
	r, err := h.service.Get(c.UserContext(), c.Params("requestId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(r))
}

// ListByWallet returns a wallet's balance requests, newest first.
func (h *Handler) ListByWallet(c *fiber.Ctx) error {
	requests, err := h.service.ListByWallet(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return mapError(err)
	}
	out := make([]requestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toResponse(r))
	}
	return c.JSON(fiber.Map{"wallet_id": c.Params("walletId"), "requests": out})
}

type decideRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note" validate:"omitempty,max=512"`
}

// Decide adjudicates a pending request. Approval credits the wallet;
// rejection requires a note. Admin only.
func (h *Handler) Decide(c *fiber.Ctx) error {
	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	adminID, _ := c.Locals("user_id").(string)
	d := Decision{
		RequestID:  c.Params("requestId"),
		AdminID:    adminID,
		Note:       req.Note,
		SourceAddr: c.IP(),
	}

	var (
		r   BalanceRequest
		err error
	)
	if req.Decision == "approve" {
		r, err = h.service.Approve(c.UserContext(), d)
	} else {
		r, err = h.service.Reject(c.UserContext(), d)
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(r))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindNotFound, "balance request not found")
	case errors.Is(err, ErrInvalidTransition):
		return apierr.New(http.StatusConflict, apierr.KindInvalidTransition, "balance request already decided")
	case errors.Is(err, ErrAmountOutOfBounds):
		return apierr.Validation("amount outside allowed top-up range")
	case errors.Is(err, ErrNoteTooShort):
		return apierr.Validation("rejection requires an explanatory note")
	case errors.Is(err, wallet.ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindWalletNotFound, "wallet not found")
	case errors.Is(err, ErrNotOwner):
		return apierr.New(http.StatusForbidden, apierr.KindForbidden, "wallet belongs to another user")
	case errors.Is(err, ledger.ErrWalletInactive):
		return apierr.New(http.StatusConflict, apierr.KindWalletInactive, "wallet is suspended")
	case errors.Is(err, guard.ErrBusy):
		return apierr.New(http.StatusTooManyRequests, apierr.KindBusy, "wallet is busy, retry shortly")
	default:
		return err
	}
}
