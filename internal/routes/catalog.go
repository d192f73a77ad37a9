package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/catalog"
)

// RegisterCatalogRoutes wires the service package catalog and voucher stock
// endpoints. Mutations are admin-gated.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler, admin fiber.Handler) {
	r.Get("/packages", h.List)
	r.Get("/packages/:packageId", h.Get)
	r.Get("/packages/:packageId/stock", h.Stock)

	r.Post("/packages", admin, h.Create)
	r.Post("/packages/:packageId/vouchers", admin, h.LoadStock)
}
