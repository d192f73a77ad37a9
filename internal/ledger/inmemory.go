package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type walletState struct {
	balance int64
	active  bool
	version uint64
}

type inMemoryLedger struct {
	mu       sync.RWMutex
	wallets  map[string]*walletState
	entries  map[string][]Entry
	postings map[string]PostingResult
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and local development without Postgres.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets:  make(map[string]*walletState),
		entries:  make(map[string][]Entry),
		postings: make(map[string]PostingResult),
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, walletID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.wallets[walletID]; !exists {
		l.wallets[walletID] = &walletState{active: true}
	}
	return nil
}

func (l *inMemoryLedger) SetActive(_ context.Context, walletID string, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	w.active = active
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, walletID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wallets[walletID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	return w.balance, nil
}

func (l *inMemoryLedger) Entries(_ context.Context, walletID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.wallets[walletID]; !ok {
		return nil, ErrWalletNotFound
	}
	entries := make([]Entry, len(l.entries[walletID]))
	copy(entries, l.entries[walletID])
	return entries, nil
}

func (l *inMemoryLedger) Credit(_ context.Context, walletID string, amount int64, category, referenceKey string) (PostingResult, error) {
	return l.post(walletID, DirectionCredit, amount, category, referenceKey)
}

func (l *inMemoryLedger) Debit(_ context.Context, walletID string, amount int64, category, referenceKey string) (PostingResult, error) {
	return l.post(walletID, DirectionDebit, amount, category, referenceKey)
}

func (l *inMemoryLedger) post(walletID, direction string, amount int64, category, referenceKey string) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := postingKey(walletID, category, referenceKey)
	if res, exists := l.postings[key]; exists {
		return res, ErrDuplicateReference
	}

	w, ok := l.wallets[walletID]
	if !ok {
		return PostingResult{}, ErrWalletNotFound
	}
	if !w.active {
		return PostingResult{}, ErrWalletInactive
	}

	if direction == DirectionDebit && w.balance < amount {
		return PostingResult{}, ErrInsufficientFunds
	}

	if direction == DirectionDebit {
		w.balance -= amount
	} else {
		w.balance += amount
	}
	w.version++

	entry := Entry{
		ID:           uuid.NewString(),
		WalletID:     walletID,
		Direction:    direction,
		Amount:       amount,
		BalanceAfter: w.balance,
		Category:     category,
		ReferenceKey: referenceKey,
		CreatedAt:    time.Now().UTC(),
	}
	l.entries[walletID] = append(l.entries[walletID], entry)

	res := PostingResult{EntryID: entry.ID, BalanceAfter: w.balance}
	l.postings[key] = res
	return res, nil
}
