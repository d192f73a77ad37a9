package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores service packages in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed catalog repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a service package.
func (r *PostgresRepository) Create(ctx context.Context, pkg Package) error {
	_, err := r.db.Exec(ctx, `INSERT INTO service_packages (id, name, category, price, stock_bound, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, pkg.ID, pkg.Name, pkg.Category, pkg.Price, pkg.StockBound, pkg.CreatedAt.UTC())
	return err
}

// Get fetches a package by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Package, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, category, price, stock_bound, created_at
        FROM service_packages WHERE id = $1`, id)
	return scanPackage(row)
}

// List returns the full catalog ordered by identifier.
func (r *PostgresRepository) List(ctx context.Context) ([]Package, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, category, price, stock_bound, created_at
        FROM service_packages ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pkgs []Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, rows.Err()
}

func scanPackage(row pgx.Row) (Package, error) {
	var (
		pkg       Package
		createdAt time.Time
	)
	if err := row.Scan(&pkg.ID, &pkg.Name, &pkg.Category, &pkg.Price, &pkg.StockBound, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Package{}, ErrNotFound
		}
		return Package{}, err
	}
	pkg.CreatedAt = createdAt.UTC()
	return pkg, nil
}
