package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Package
}

// NewMemoryRepository constructs an in-memory catalog for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Package)}
}

func (r *memoryRepository) Create(_ context.Context, pkg Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[pkg.ID]; exists {
		return errors.New("package exists")
	}
	r.storage[pkg.ID] = pkg
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.storage[id]
	if !ok {
		return Package{}, ErrNotFound
	}
	return pkg, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkgs := make([]Package, 0, len(r.storage))
	for _, pkg := range r.storage {
		pkgs = append(pkgs, pkg)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })
	return pkgs, nil
}
