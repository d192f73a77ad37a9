package topup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists balance requests. Decide must be a compare-and-set from
// pending so concurrent decisions cannot both land.
type Repository interface {
	Create(ctx context.Context, req BalanceRequest) error
	Get(ctx context.Context, id string) (BalanceRequest, error)
	ListByWallet(ctx context.Context, walletID string) ([]BalanceRequest, error)

	// Decide moves a pending request to a terminal status. It reports false
	// when the request was not pending (already decided or missing).
	Decide(ctx context.Context, id, status, adminID, note string, decidedAt time.Time) (bool, error)
}

// PostgresRepository stores balance requests in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed balance request repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a pending balance request.
func (r *PostgresRepository) Create(ctx context.Context, req BalanceRequest) error {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return err
	}
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO balance_requests (id, wallet_id, amount, method, reference, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`, id, walletID, req.Amount, req.Method, req.Reference, req.Status, req.CreatedAt.UTC())
	return err
}

// Get fetches a balance request by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (BalanceRequest, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return BalanceRequest{}, err
	}
	row := r.db.QueryRow(ctx, `SELECT id, wallet_id, amount, method, reference, status, admin_id, note, created_at, decided_at
        FROM balance_requests WHERE id = $1`, reqID)
	return scanRequest(row)
}

// ListByWallet returns a wallet's balance requests, newest first.
func (r *PostgresRepository) ListByWallet(ctx context.Context, walletID string) ([]BalanceRequest, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, wallet_id, amount, method, reference, status, admin_id, note, created_at, decided_at
        FROM balance_requests WHERE wallet_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []BalanceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// Decide performs the pending-to-terminal compare-and-set.
func (r *PostgresRepository) Decide(ctx context.Context, id, status, adminID, note string, decidedAt time.Time) (bool, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return false, err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE balance_requests
        SET status = $1, admin_id = $2, note = $3, decided_at = $4
        WHERE id = $5 AND status = $6`, status, adminID, note, decidedAt.UTC(), reqID, StatusPending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanRequest(row pgx.Row) (BalanceRequest, error) {
	var (
		req       BalanceRequest
		id        uuid.UUID
		walletID  uuid.UUID
		adminID   *string
		note      *string
		createdAt time.Time
		decidedAt *time.Time
	)
	if err := row.Scan(&id, &walletID, &req.Amount, &req.Method, &req.Reference, &req.Status, &adminID, &note, &createdAt, &decidedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BalanceRequest{}, ErrNotFound
		}
		return BalanceRequest{}, err
	}
	req.ID = id.String()
	req.WalletID = walletID.String()
	if adminID != nil {
		req.AdminID = *adminID
	}
	if note != nil {
		req.Note = *note
	}
	req.CreatedAt = createdAt.UTC()
	if decidedAt != nil {
		t := decidedAt.UTC()
		req.DecidedAt = &t
	}
	return req, nil
}
