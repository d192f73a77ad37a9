package voucher

import (
	"context"
	"sync"
)

const (
	stateUnissued = "unissued"
	stateReserved = "reserved"
	stateIssued   = "issued"
)

type codeRecord struct {
	packageID  string
	state      string
	purchaseID string
}

type memoryAllocator struct {
	mu       sync.Mutex
	pools    map[string][]string    // packageID -> ordered unissued codes
	codes    map[string]*codeRecord // code -> record
	issuedBy map[string]string      // purchaseID -> code
}

// NewMemoryAllocator creates an in-memory allocator for tests and local runs.
func NewMemoryAllocator() Allocator {
	return &memoryAllocator{
		pools:    make(map[string][]string),
		codes:    make(map[string]*codeRecord),
		issuedBy: make(map[string]string),
	}
}

func (a *memoryAllocator) AddCodes(_ context.Context, packageID string, codes []string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	added := 0
	for _, code := range codes {
		if _, exists := a.codes[code]; exists {
			continue
		}
		a.codes[code] = &codeRecord{packageID: packageID, state: stateUnissued}
		a.pools[packageID] = append(a.pools[packageID], code)
		added++
	}
	return added, nil
}

func (a *memoryAllocator) Reserve(_ context.Context, packageID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pool := a.pools[packageID]
	if len(pool) == 0 {
		return "", ErrOutOfStock
	}
	code := pool[0]
	a.pools[packageID] = pool[1:]
	a.codes[code].state = stateReserved
	return code, nil
}

func (a *memoryAllocator) Confirm(_ context.Context, code, purchaseID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.codes[code]
	if !ok {
		return ErrUnknownCode
	}
	if rec.state == stateIssued && rec.purchaseID == purchaseID {
		return nil
	}
	if rec.state != stateReserved {
		return ErrCodeNotReserved
	}
	rec.state = stateIssued
	rec.purchaseID = purchaseID
	a.issuedBy[purchaseID] = code
	return nil
}

func (a *memoryAllocator) Release(_ context.Context, code string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.codes[code]
	if !ok {
		return ErrUnknownCode
	}
	if rec.state != stateReserved {
		return ErrCodeNotReserved
	}
	rec.state = stateUnissued
	a.pools[rec.packageID] = append(a.pools[rec.packageID], code)
	return nil
}

func (a *memoryAllocator) IssuedFor(_ context.Context, purchaseID string) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	code, ok := a.issuedBy[purchaseID]
	return code, ok, nil
}

func (a *memoryAllocator) Remaining(_ context.Context, packageID string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pools[packageID]), nil
}
