package catalog

import (
	"context"
	"errors"
	"time"
)

// Service categories a package can belong to. The category doubles as the
// ledger entry category for debits made against the package.
const (
	CategoryRecharge  = "recharge"
	CategoryBill      = "bill"
	CategoryInternet  = "internet"
	CategoryHotspot   = "hotspot"
	CategorySetTopBox = "settopbox"
)

// ErrNotFound indicates no package exists for the identifier.
var ErrNotFound = errors.New("package not found")

// ErrInvalidCategory rejects packages outside the known service categories.
var ErrInvalidCategory = errors.New("invalid service category")

// Package is one purchasable service offering. StockBound packages draw a
// single-use voucher code from the allocator on every purchase; the rest
// (recharge, bill payment) only debit the wallet.
type Package struct {
	ID         string
	Name       string
	Category   string
	Price      int64
	StockBound bool
	CreatedAt  time.Time
}

// Repository persists the service package catalog.
type Repository interface {
	Create(ctx context.Context, pkg Package) error
	Get(ctx context.Context, id string) (Package, error)
	List(ctx context.Context) ([]Package, error)
}

// ValidCategory reports whether the category is a known service category.
func ValidCategory(category string) bool {
	switch category {
	case CategoryRecharge, CategoryBill, CategoryInternet, CategoryHotspot, CategorySetTopBox:
		return true
	default:
		return false
	}
}
