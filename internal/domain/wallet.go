package domain

import "time"

// WalletStatus is the administrative state of a wallet.
type WalletStatus string

const (
	WalletActive  WalletStatus = "ACTIVE"
	WalletBlocked WalletStatus = "BLOCKED"
)

// Valid reports whether s is a known wallet status.
func (s WalletStatus) Valid() bool {
	return s == WalletActive || s == WalletBlocked
}

// Wallet is a balance-holding account owned by exactly one party. Balance is
// kept in minor currency units and never drops below zero.
type Wallet struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Balance   int64        `json:"balance"`
	Currency  string       `json:"currency"`
	Status    WalletStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Active reports whether the wallet accepts transfers.
func (w Wallet) Active() bool {
	return w.Status == WalletActive
}
