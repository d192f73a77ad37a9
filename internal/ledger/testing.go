package ledger

// SeedBalance is a test helper that force-sets the balance for a wallet when
// using the in-memory ledger. It bypasses the entry log, so invariant checks
// should run only on postings made after seeding.
func SeedBalance(l Ledger, walletID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[walletID]; exists {
			w.balance = amount
		} else {
			mem.wallets[walletID] = &walletState{balance: amount, active: true}
		}
	}
}
