package wallet

import "time"

// Balance encapsulates available funds for a wallet.
type Balance struct {
	WalletID string    `json:"wallet_id"`
	Amount   int64     `json:"balance"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"timestamp"`
}

// Provisioning sets the opening state of new wallets.
type Provisioning struct {
	Currency               string
	InitialBalance         int64
	OperatorInitialBalance int64
}

// DefaultProvisioning opens user wallets with 50 BDT and the operator wallet
// with 100,000,000 BDT.
func DefaultProvisioning() Provisioning {
	return Provisioning{Currency: "BDT", InitialBalance: 50, OperatorInitialBalance: 100_000_000}
}
