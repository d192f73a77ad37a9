package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWalletNotFound indicates the wallet has never been registered with the ledger.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletInactive occurs when a posting targets a suspended wallet.
	ErrWalletInactive = errors.New("wallet inactive")

	// ErrInsufficientFunds occurs when a debit exceeds the wallet's available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference indicates a posting with the same (wallet,
	// category, reference key) was already applied. The accompanying result
	// carries the original outcome, so callers may treat the replay as
	// transparent success.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrInvalidAmount rejects zero or negative posting amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Entry directions.
const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

// Entry is one immutable balance mutation. BalanceAfter is the wallet balance
// snapshotted at commit time and is never recomputed afterwards.
type Entry struct {
	ID           string
	WalletID     string
	Direction    string
	Amount       int64
	BalanceAfter int64
	Category     string
	ReferenceKey string
	CreatedAt    time.Time
}

// Signed returns the entry amount with debits negated, so that summing the
// signed amounts of a wallet's entries reproduces its balance.
func (e Entry) Signed() int64 {
	if e.Direction == DirectionDebit {
		return -e.Amount
	}
	return e.Amount
}

// PostingResult captures the outcome of a credit or debit.
type PostingResult struct {
	EntryID      string
	BalanceAfter int64
}

// Ledger is the only component allowed to mutate wallet balances. Credit and
// Debit are idempotent on (walletID, category, referenceKey): a replayed
// posting returns the original result together with ErrDuplicateReference and
// posts nothing.
type Ledger interface {
	EnsureWallet(ctx context.Context, walletID string) error
	SetActive(ctx context.Context, walletID string, active bool) error
	Balance(ctx context.Context, walletID string) (int64, error)
	Entries(ctx context.Context, walletID string) ([]Entry, error)
	Credit(ctx context.Context, walletID string, amount int64, category, referenceKey string) (PostingResult, error)
	Debit(ctx context.Context, walletID string, amount int64, category, referenceKey string) (PostingResult, error)
}

func postingKey(walletID, category, referenceKey string) string {
	return walletID + "|" + category + "|" + referenceKey
}
