package purchase

import (
	"errors"
	"time"
)

// Purchase outcomes. A failed purchase implies no net balance change and no
// consumed voucher code.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var (
	// ErrNotFound indicates no purchase exists for the identifier.
	ErrNotFound = errors.New("purchase not found")

	// ErrNotOwner indicates the requestor does not own the wallet being
	// charged, or the purchase request id is already bound to another wallet.
	ErrNotOwner = errors.New("not owner of wallet")
)

// ServicePurchase records one pipeline run. Its ID is the caller-supplied
// purchase request id, which doubles as the ledger reference key, so a
// purchase id maps to at most one debit.
type ServicePurchase struct {
	ID          string
	WalletID    string
	PackageID   string
	Category    string
	Amount      int64
	Status      string
	VoucherCode string
	Inputs      map[string]string
	CreatedAt   time.Time
}
