package voucher

import (
	"context"
	"errors"
)

var (
	// ErrOutOfStock occurs when a package has no unissued codes left.
	ErrOutOfStock = errors.New("out of stock")

	// ErrUnknownCode indicates the code was never loaded into any package pool.
	ErrUnknownCode = errors.New("unknown voucher code")

	// ErrCodeNotReserved occurs when confirming or releasing a code that is
	// not in the reserved state for the expected holder.
	ErrCodeNotReserved = errors.New("voucher code not reserved")
)

// Allocator manages finite pools of single-use activation codes, one pool per
// service package. A code is always in exactly one of three states: unissued,
// reserved (handed to one in-flight purchase) or issued (tied to a committed
// purchase). Reserve hands each code to at most one caller.
type Allocator interface {
	// AddCodes loads codes into a package pool, skipping ones already known.
	AddCodes(ctx context.Context, packageID string, codes []string) (int, error)

	// Reserve atomically takes one unissued code from the package pool.
	Reserve(ctx context.Context, packageID string) (string, error)

	// Confirm finalizes issuance of a reserved code, tying it to a purchase.
	// Confirming a code already issued to the same purchase is a no-op.
	Confirm(ctx context.Context, code, purchaseID string) error

	// Release returns a reserved-but-unconfirmed code to the unissued pool.
	Release(ctx context.Context, code string) error

	// IssuedFor reports the code issued to the given purchase, if any. Replays
	// of a purchase use this to re-derive the code instead of reserving again.
	IssuedFor(ctx context.Context, purchaseID string) (string, bool, error)

	// Remaining counts unissued codes in the package pool.
	Remaining(ctx context.Context, packageID string) (int, error)
}
