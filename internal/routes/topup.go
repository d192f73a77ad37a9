package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/topup"
)

// RegisterTopupRoutes wires the balance request workflow. Adjudication is
// admin-gated.
func RegisterTopupRoutes(r fiber.Router, h *topup.Handler, admin fiber.Handler) {
	r.Post("/topups", h.Create)
	r.Get("/topups/:requestId", h.Get)
	r.Get("/wallets/:walletId/topups", h.ListByWallet)

	r.Post("/topups/:requestId/decide", admin, h.Decide)
}
