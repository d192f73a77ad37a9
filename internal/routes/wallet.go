package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet endpoints. Posting and lifecycle
// endpoints are admin-gated; balance and entry reads are not.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, admin fiber.Handler) {
	r.Get("/wallets/me", h.Me)
	r.Get("/wallets/:walletId/balance", h.Balance)
	r.Get("/wallets/:walletId/entries", h.Entries)

	r.Post("/wallets", admin, h.Create)
	r.Post("/wallets/:walletId/suspend", admin, h.Suspend)
	r.Post("/wallets/:walletId/resume", admin, h.Resume)
	r.Post("/wallets/:walletId/credit", admin, h.Credit)
	r.Post("/wallets/:walletId/debit", admin, h.Debit)
}
