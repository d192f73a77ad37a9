package topup

import (
	"errors"
	"time"
)

// Balance request states. A request transitions from pending to exactly one
// terminal state and is immutable afterwards.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	// ErrNotFound indicates no balance request exists for the identifier.
	ErrNotFound = errors.New("balance request not found")

	// ErrInvalidTransition occurs when deciding a request that already
	// reached a terminal state.
	ErrInvalidTransition = errors.New("invalid balance request transition")

	// ErrAmountOutOfBounds rejects claimed amounts outside the configured range.
	ErrAmountOutOfBounds = errors.New("amount out of bounds")

	// ErrNoteTooShort rejects rejections lacking a meaningful admin note.
	ErrNoteTooShort = errors.New("rejection note too short")

	// ErrNotOwner indicates the requestor does not own the claimed wallet.
	ErrNotOwner = errors.New("not owner of wallet")
)

// BalanceRequest is a user claim of an out-of-band payment awaiting admin
// adjudication. Approval realizes the claim as a ledger credit keyed by the
// request id, so repeated approvals can never double-credit.
type BalanceRequest struct {
	ID        string
	WalletID  string
	Amount    int64
	Method    string
	Reference string
	Status    string
	AdminID   string
	Note      string
	CreatedAt time.Time
	DecidedAt *time.Time
}
