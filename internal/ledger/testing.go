package ledger

// SeedBalance is a test helper that overwrites the balance of a wallet when
// using the in-memory ledger.
func SeedBalance(l Ledger, walletID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		w, exists := mem.wallets[walletID]
		if !exists {
			return
		}
		w.Balance = amount
		mem.wallets[walletID] = w
	}
}
