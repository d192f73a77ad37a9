package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/reporting"
)

// RegisterReportingRoutes wires the admin reporting endpoints.
func RegisterReportingRoutes(r fiber.Router, h *reporting.Handler, admin fiber.Handler) {
	r.Get("/reports/revenue", admin, h.Revenue)
	r.Get("/reports/top-spenders", admin, h.TopSpenders)
}
