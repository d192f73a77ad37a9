package topup

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.Mutex
	storage map[string]BalanceRequest
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]BalanceRequest)}
}

func (r *memoryRepository) Create(_ context.Context, req BalanceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[req.ID] = req
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (BalanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.storage[id]
	if !ok {
		return BalanceRequest{}, ErrNotFound
	}
	return req, nil
}

func (r *memoryRepository) ListByWallet(_ context.Context, walletID string) ([]BalanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reqs []BalanceRequest
	for _, req := range r.storage {
		if req.WalletID == walletID {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}

func (r *memoryRepository) Decide(_ context.Context, id, status, adminID, note string, decidedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.storage[id]
	if !ok || req.Status != StatusPending {
		return false, nil
	}
	req.Status = status
	req.AdminID = adminID
	req.Note = note
	t := decidedAt.UTC()
	req.DecidedAt = &t
	r.storage[id] = req
	return true, nil
}
