package voucher

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAllocator persists voucher pools in PostgreSQL. Reservation relies
// on FOR UPDATE SKIP LOCKED so concurrent reservations against one package
// never hand out the same code and never queue behind each other's row locks.
type PostgresAllocator struct {
	db *pgxpool.Pool
}

// NewPostgresAllocator constructs a Postgres-backed allocator.
func NewPostgresAllocator(db *pgxpool.Pool) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

// AddCodes loads codes into the package pool, ignoring codes already present.
func (a *PostgresAllocator) AddCodes(ctx context.Context, packageID string, codes []string) (int, error) {
	added := 0
	for _, code := range codes {
		cmd, err := a.db.Exec(ctx, `INSERT INTO voucher_codes (code, package_id, state)
            VALUES ($1, $2, 'unissued') ON CONFLICT (code) DO NOTHING`, code, packageID)
		if err != nil {
			return added, err
		}
		added += int(cmd.RowsAffected())
	}
	return added, nil
}

// Reserve atomically flips one unissued code to reserved and returns it.
func (a *PostgresAllocator) Reserve(ctx context.Context, packageID string) (string, error) {
	const query = `
        UPDATE voucher_codes SET state = 'reserved'
        WHERE code = (
            SELECT code FROM voucher_codes
            WHERE package_id = $1 AND state = 'unissued'
            ORDER BY code
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING code`
	var code string
	err := a.db.QueryRow(ctx, query, packageID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOutOfStock
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// Confirm ties a reserved code to its purchase.
func (a *PostgresAllocator) Confirm(ctx context.Context, code, purchaseID string) error {
	cmd, err := a.db.Exec(ctx, `UPDATE voucher_codes SET state = 'issued', purchase_id = $2
        WHERE code = $1 AND (state = 'reserved' OR (state = 'issued' AND purchase_id = $2))`, code, purchaseID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return a.classifyConfirmFailure(ctx, code)
	}
	return nil
}

// Release returns a reserved code to the unissued pool.
func (a *PostgresAllocator) Release(ctx context.Context, code string) error {
	cmd, err := a.db.Exec(ctx, `UPDATE voucher_codes SET state = 'unissued', purchase_id = NULL
        WHERE code = $1 AND state = 'reserved'`, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return a.classifyConfirmFailure(ctx, code)
	}
	return nil
}

// IssuedFor reports the code issued to a purchase, if any.
func (a *PostgresAllocator) IssuedFor(ctx context.Context, purchaseID string) (string, bool, error) {
	var code string
	err := a.db.QueryRow(ctx, `SELECT code FROM voucher_codes WHERE purchase_id = $1 AND state = 'issued'`, purchaseID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

// Remaining counts unissued codes left for the package.
func (a *PostgresAllocator) Remaining(ctx context.Context, packageID string) (int, error) {
	var count int
	err := a.db.QueryRow(ctx, `SELECT COUNT(*) FROM voucher_codes WHERE package_id = $1 AND state = 'unissued'`, packageID).Scan(&count)
	return count, err
}

func (a *PostgresAllocator) classifyConfirmFailure(ctx context.Context, code string) error {
	var state string
	err := a.db.QueryRow(ctx, `SELECT state FROM voucher_codes WHERE code = $1`, code).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUnknownCode
	}
	if err != nil {
		return err
	}
	return ErrCodeNotReserved
}
