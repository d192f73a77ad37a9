package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists purchase records. Records are terminal outcomes: once
// written they are never updated, and Create must tolerate a concurrent
// writer having stored the same id.
type Repository interface {
	Create(ctx context.Context, p ServicePurchase) error
	Get(ctx context.Context, id string) (ServicePurchase, error)
	ListByWallet(ctx context.Context, walletID string) ([]ServicePurchase, error)
	List(ctx context.Context) ([]ServicePurchase, error)
}

// PostgresRepository stores purchases in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed purchase repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a purchase record, ignoring an identical concurrent insert.
func (r *PostgresRepository) Create(ctx context.Context, p ServicePurchase) error {
	walletID, err := uuid.Parse(p.WalletID)
	if err != nil {
		return err
	}
	inputs, err := json.Marshal(p.Inputs)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO service_purchases (id, wallet_id, package_id, category, amount, status, voucher_code, inputs, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING`,
		p.ID, walletID, p.PackageID, p.Category, p.Amount, p.Status, nullable(p.VoucherCode), inputs, p.CreatedAt.UTC())
	return err
}

// Get fetches a purchase record by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (ServicePurchase, error) {
	row := r.db.QueryRow(ctx, `SELECT id, wallet_id, package_id, category, amount, status, voucher_code, inputs, created_at
        FROM service_purchases WHERE id = $1`, id)
	return scanPurchase(row)
}

// ListByWallet returns a wallet's purchases, newest first.
func (r *PostgresRepository) ListByWallet(ctx context.Context, walletID string) ([]ServicePurchase, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, `SELECT id, wallet_id, package_id, category, amount, status, voucher_code, inputs, created_at
        FROM service_purchases WHERE wallet_id = $1 ORDER BY created_at DESC`, id)
}

// List returns all purchases, oldest first, for the reporting feed.
func (r *PostgresRepository) List(ctx context.Context) ([]ServicePurchase, error) {
	return r.list(ctx, `SELECT id, wallet_id, package_id, category, amount, status, voucher_code, inputs, created_at
        FROM service_purchases ORDER BY created_at`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]ServicePurchase, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []ServicePurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func scanPurchase(row pgx.Row) (ServicePurchase, error) {
	var (
		p           ServicePurchase
		walletID    uuid.UUID
		voucherCode *string
		inputs      []byte
		createdAt   time.Time
	)
	if err := row.Scan(&p.ID, &walletID, &p.PackageID, &p.Category, &p.Amount, &p.Status, &voucherCode, &inputs, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServicePurchase{}, ErrNotFound
		}
		return ServicePurchase{}, err
	}
	p.WalletID = walletID.String()
	if voucherCode != nil {
		p.VoucherCode = *voucherCode
	}
	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &p.Inputs); err != nil {
			return ServicePurchase{}, err
		}
	}
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
