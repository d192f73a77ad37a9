package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/purchase"
)

// RegisterPurchaseRoutes wires the purchase pipeline endpoints.
func RegisterPurchaseRoutes(r fiber.Router, h *purchase.Handler) {
	r.Post("/purchases", h.Create)
	r.Get("/purchases/:purchaseId", h.Get)
	r.Get("/wallets/:walletId/purchases", h.ListByWallet)
}
