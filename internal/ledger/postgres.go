package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists wallet balances and the append-only entry log in
// PostgreSQL. Postings lock the wallet row so the status check, dedup lookup
// and balance update commit as one unit.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureWallet guarantees a balance row exists for the wallet.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, walletID string) error {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(ctx, `UPDATE wallets SET balance = balance WHERE id = $1`, id)
	return err
}

// SetActive flips the wallet status between active and suspended.
func (l *PostgresLedger) SetActive(ctx context.Context, walletID string, active bool) error {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return err
	}
	status := statusSuspended
	if active {
		status = statusActive
	}
	cmd, err := l.db.Exec(ctx, `UPDATE wallets SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// Balance returns the current wallet balance.
func (l *PostgresLedger) Balance(ctx context.Context, walletID string) (int64, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return 0, err
	}
	var balance int64
	err = l.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return balance, err
}

// Entries returns the wallet's entry log in posting order.
func (l *PostgresLedger) Entries(ctx context.Context, walletID string) ([]Entry, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.Query(ctx, `SELECT id, direction, amount, balance_after, category, reference_key, created_at
        FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entryID   uuid.UUID
			createdAt time.Time
			e         Entry
		)
		if err := rows.Scan(&entryID, &e.Direction, &e.Amount, &e.BalanceAfter, &e.Category, &e.ReferenceKey, &createdAt); err != nil {
			return nil, err
		}
		e.ID = entryID.String()
		e.WalletID = walletID
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Credit appends a CREDIT entry and increases the wallet balance.
func (l *PostgresLedger) Credit(ctx context.Context, walletID string, amount int64, category, referenceKey string) (PostingResult, error) {
	return l.post(ctx, walletID, DirectionCredit, amount, category, referenceKey)
}

// Debit appends a DEBIT entry and decreases the wallet balance.
func (l *PostgresLedger) Debit(ctx context.Context, walletID string, amount int64, category, referenceKey string) (PostingResult, error) {
	return l.post(ctx, walletID, DirectionDebit, amount, category, referenceKey)
}

const (
	statusActive    = "active"
	statusSuspended = "suspended"
)

func (l *PostgresLedger) post(ctx context.Context, walletID, direction string, amount int64, category, referenceKey string) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}
	id, err := uuid.Parse(walletID)
	if err != nil {
		return PostingResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PostingResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		balance int64
		status  string
	)
	err = tx.QueryRow(ctx, `SELECT balance, status FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&balance, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return PostingResult{}, ErrWalletNotFound
	}
	if err != nil {
		return PostingResult{}, err
	}

	var (
		existingID      uuid.UUID
		existingBalance int64
	)
	err = tx.QueryRow(ctx, `SELECT id, balance_after FROM ledger_entries
        WHERE wallet_id = $1 AND category = $2 AND reference_key = $3`,
		id, category, referenceKey).Scan(&existingID, &existingBalance)
	if err == nil {
		return PostingResult{EntryID: existingID.String(), BalanceAfter: existingBalance}, ErrDuplicateReference
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PostingResult{}, err
	}

	if status != statusActive {
		return PostingResult{}, ErrWalletInactive
	}

	if direction == DirectionDebit {
		if balance < amount {
			return PostingResult{}, ErrInsufficientFunds
		}
		balance -= amount
	} else {
		balance += amount
	}

	entryID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO ledger_entries (id, wallet_id, direction, amount, balance_after, category, reference_key, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entryID, id, direction, amount, balance, category, referenceKey, time.Now().UTC()); err != nil {
		return PostingResult{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, version = version + 1 WHERE id = $2`, balance, id); err != nil {
		return PostingResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PostingResult{}, err
	}

	return PostingResult{EntryID: entryID.String(), BalanceAfter: balance}, nil
}
