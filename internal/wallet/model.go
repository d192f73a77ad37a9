package wallet

import "time"

// Wallet statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Wallet represents a user's stored-value account. Balance and version are
// owned by the ledger; this record carries the metadata around them. Wallets
// are never deleted, only suspended.
type Wallet struct {
	ID        string
	OwnerID   string
	Currency  string
	Status    string
	CreatedAt time.Time
}

// Balance encapsulates available funds for a wallet at a point in time.
type Balance struct {
	WalletID string
	Amount   int64
	AsOf     time.Time
}
