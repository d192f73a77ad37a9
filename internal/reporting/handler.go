package reporting

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/moja-pay/moja_pay/internal/apierr"
)

// Handler exposes the reporting endpoints. Admin only.
type Handler struct {
	service *Service
}

// NewHandler builds a reporting HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Revenue returns succeeded-purchase revenue per category for the window
// given by optional from/to query parameters (RFC 3339).
func (h *Handler) Revenue(c *fiber.Ctx) error {
	from, to, err := window(c)
	if err != nil {
		return err
	}
	lines, err := h.service.Revenue(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(lines))
	for _, line := range lines {
		out = append(out, fiber.Map{"category": line.Category, "total": line.Total, "count": line.Count})
	}
	return c.JSON(fiber.Map{"revenue": out})
}

// TopSpenders returns the highest-spending wallets in the window. The limit
// query parameter caps the list, defaulting to 10.
func (h *Handler) TopSpenders(c *fiber.Ctx) error {
	from, to, err := window(c)
	if err != nil {
		return err
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return apierr.Validation("limit must be an integer between 1 and 100")
		}
		limit = n
	}
	spenders, err := h.service.TopSpenders(c.UserContext(), limit, from, to)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(spenders))
	for _, sp := range spenders {
		out = append(out, fiber.Map{"wallet_id": sp.WalletID, "total": sp.Total, "count": sp.Count})
	}
	return c.JSON(fiber.Map{"top_spenders": out})
}

func window(c *fiber.Ctx) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, apierr.Validation("from must be an RFC 3339 timestamp")
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, apierr.Validation("to must be an RFC 3339 timestamp")
		}
		to = t
	}
	return from, to, nil
}
