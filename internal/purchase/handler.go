package purchase

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/apierr"
	"github.com/moja-pay/moja_pay/internal/catalog"
	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/validation"
	"github.com/moja-pay/moja_pay/internal/voucher"
	"github.com/moja-pay/moja_pay/internal/wallet"
)

// Handler exposes the purchase pipeline over HTTP.
type Handler struct {
	service *Service
}

// NewHandler builds a purchase HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type purchaseRequest struct {
	WalletID          string            `json:"wallet_id" validate:"required,uuid4"`
	PackageID         string            `json:"package_id" validate:"required"`
	PurchaseRequestID string            `json:"purchase_request_id" validate:"required,min=8,max=128"`
	Inputs            map[string]string `json:"inputs" validate:"omitempty,max=16"`
}

type purchaseResponse struct {
	ID          string            `json:"id"`
	WalletID    string            `json:"wallet_id"`
	PackageID   string            `json:"package_id"`
	Category    string            `json:"category"`
	Amount      int64             `json:"amount"`
	Status      string            `json:"status"`
	VoucherCode string            `json:"voucher_code,omitempty"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toResponse(p ServicePurchase) purchaseResponse {
	return purchaseResponse{
		ID:          p.ID,
		WalletID:    p.WalletID,
		PackageID:   p.PackageID,
		Category:    p.Category,
		Amount:      p.Amount,
		Status:      p.Status,
		VoucherCode: p.VoucherCode,
		Inputs:      p.Inputs,
		CreatedAt:   p.CreatedAt,
	}
}

// Create runs a purchase. Retrying with the same purchase_request_id replays
// the recorded outcome instead of charging again.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	uid, _ := c.Locals("user_id").(string)
	p, err := h.service.Purchase(c.UserContext(), Input{
		WalletID:          req.WalletID,
		PackageID:         req.PackageID,
		PurchaseRequestID: req.PurchaseRequestID,
		RequestorID:       uid,
		Inputs:            req.Inputs,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(p))
}

// Get fetches a recorded purchase.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.service.Get(c.UserContext(), c.Params("purchaseId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(p))
}

// ListByWallet returns a wallet's purchases, newest first.
func (h *Handler) ListByWallet(c *fiber.Ctx) error {
	purchases, err := h.service.ListByWallet(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return mapError(err)
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toResponse(p))
	}
	return c.JSON(fiber.Map{"wallet_id": c.Params("walletId"), "purchases": out})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindNotFound, "purchase not found")
	case errors.Is(err, catalog.ErrNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindNotFound, "package not found")
	case errors.Is(err, wallet.ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindWalletNotFound, "wallet not found")
	case errors.Is(err, ErrNotOwner):
		return apierr.New(http.StatusForbidden, apierr.KindForbidden, "wallet belongs to another user")
	case errors.Is(err, voucher.ErrOutOfStock):
		return apierr.New(http.StatusConflict, apierr.KindOutOfStock, "package is out of stock")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return apierr.New(http.StatusUnprocessableEntity, apierr.KindInsufficientFunds, "insufficient funds")
	case errors.Is(err, ledger.ErrWalletInactive):
		return apierr.New(http.StatusConflict, apierr.KindWalletInactive, "wallet is suspended")
	case errors.Is(err, guard.ErrBusy):
		return apierr.New(http.StatusTooManyRequests, apierr.KindBusy, "wallet is busy, retry shortly")
	default:
		return err
	}
}
