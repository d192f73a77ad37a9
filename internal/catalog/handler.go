package catalog

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/moja-pay/moja_pay/internal/apierr"
	"github.com/moja-pay/moja_pay/internal/audit"
	"github.com/moja-pay/moja_pay/internal/validation"
	"github.com/moja-pay/moja_pay/internal/voucher"
)

// Handler exposes the service package catalog and voucher stock endpoints.
type Handler struct {
	repo      Repository
	allocator voucher.Allocator
	auditor   audit.Recorder
}

// NewHandler builds a catalog HTTP handler.
func NewHandler(repo Repository, allocator voucher.Allocator, auditor audit.Recorder) *Handler {
	return &Handler{repo: repo, allocator: allocator, auditor: auditor}
}

type createRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=120"`
	Category   string `json:"category" validate:"required"`
	Price      int64  `json:"price" validate:"required,gt=0"`
	StockBound bool   `json:"stock_bound"`
}

type packageResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Price      int64     `json:"price"`
	StockBound bool      `json:"stock_bound"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResponse(pkg Package) packageResponse {
	return packageResponse{
		ID:         pkg.ID,
		Name:       pkg.Name,
		Category:   pkg.Category,
		Price:      pkg.Price,
		StockBound: pkg.StockBound,
		CreatedAt:  pkg.CreatedAt,
	}
}

// Create registers a service package. Admin only.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	if !ValidCategory(req.Category) {
		return apierr.Validation("unknown service category")
	}

	pkg := Package{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Category:   req.Category,
		Price:      req.Price,
		StockBound: req.StockBound,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.repo.Create(c.UserContext(), pkg); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(pkg))
}

// List returns the package catalog.
func (h *Handler) List(c *fiber.Ctx) error {
	packages, err := h.repo.List(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	out := make([]packageResponse, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, toResponse(pkg))
	}
	return c.JSON(fiber.Map{"packages": out})
}

// Get fetches one package.
func (h *Handler) Get(c *fiber.Ctx) error {
	pkg, err := h.repo.Get(c.UserContext(), c.Params("packageId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(pkg))
}

type loadStockRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,max=10000,dive,required,max=64"`
}

// LoadStock loads voucher codes into a stock-bound package's pool. Codes the
// pool already holds are skipped, so re-uploading a batch is safe. Admin only.
func (h *Handler) LoadStock(c *fiber.Ctx) error {
	pkg, err := h.repo.Get(c.UserContext(), c.Params("packageId"))
	if err != nil {
		return mapError(err)
	}
	if !pkg.StockBound {
		return apierr.Validation("package does not carry voucher stock")
	}

	var req loadStockRequest
	if err := c.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	added, err := h.allocator.AddCodes(c.UserContext(), pkg.ID, req.Codes)
	if err != nil {
		return mapError(err)
	}

	if h.auditor != nil {
		adminID, _ := c.Locals("user_id").(string)
		h.auditor.Record(c.UserContext(), audit.Event{
			Actor:      adminID,
			Action:     audit.ActionStockLoaded,
			Target:     pkg.ID,
			SourceAddr: c.IP(),
			At:         time.Now().UTC(),
		})
	}

	remaining, err := h.allocator.Remaining(c.UserContext(), pkg.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"package_id": pkg.ID, "added": added, "remaining": remaining})
}

// Stock reports the unissued voucher count for a package.
func (h *Handler) Stock(c *fiber.Ctx) error {
	pkg, err := h.repo.Get(c.UserContext(), c.Params("packageId"))
	if err != nil {
		return mapError(err)
	}
	if !pkg.StockBound {
		return apierr.Validation("package does not carry voucher stock")
	}
	remaining, err := h.allocator.Remaining(c.UserContext(), pkg.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"package_id": pkg.ID, "remaining": remaining})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apierr.New(http.StatusNotFound, apierr.KindNotFound, "package not found")
	case errors.Is(err, ErrInvalidCategory):
		return apierr.Validation("unknown service category")
	default:
		return err
	}
}
