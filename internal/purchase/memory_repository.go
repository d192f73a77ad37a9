package purchase

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.Mutex
	storage map[string]ServicePurchase
	order   []string
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]ServicePurchase)}
}

func (r *memoryRepository) Create(_ context.Context, p ServicePurchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[p.ID]; exists {
		return nil
	}
	r.storage[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (ServicePurchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.storage[id]
	if !ok {
		return ServicePurchase{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) ListByWallet(_ context.Context, walletID string) ([]ServicePurchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purchases []ServicePurchase
	for _, id := range r.order {
		if p := r.storage[id]; p.WalletID == walletID {
			purchases = append(purchases, p)
		}
	}
	sort.Slice(purchases, func(i, j int) bool { return purchases[i].CreatedAt.After(purchases[j].CreatedAt) })
	return purchases, nil
}

func (r *memoryRepository) List(_ context.Context) ([]ServicePurchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purchases := make([]ServicePurchase, 0, len(r.order))
	for _, id := range r.order {
		purchases = append(purchases, r.storage[id])
	}
	return purchases, nil
}
