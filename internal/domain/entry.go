package domain

import "time"

// EntryType names one of the fixed money movements.
type EntryType string

const (
	EntrySendMoney EntryType = "SEND_MONEY"
	EntryCashIn    EntryType = "CASH_IN"
	EntryCashOut   EntryType = "CASH_OUT"
	EntryAddMoney  EntryType = "ADD_MONEY"
	EntryWithdraw  EntryType = "WITHDRAW"
)

// Valid reports whether t is one of the known transfer types.
func (t EntryType) Valid() bool {
	switch t {
	case EntrySendMoney, EntryCashIn, EntryCashOut, EntryAddMoney, EntryWithdraw:
		return true
	}
	return false
}

// Initiator is the role class of the party that started a transfer.
type Initiator string

const (
	InitiatedByUser  Initiator = "USER"
	InitiatedByAgent Initiator = "AGENT"
	InitiatedByAdmin Initiator = "ADMIN"
)

// EntryStatus is the lifecycle state of a ledger entry. Synchronous transfers
// are only ever written as COMPLETED.
type EntryStatus string

const (
	EntryPending   EntryStatus = "PENDING"
	EntryCompleted EntryStatus = "COMPLETED"
	EntryFailed    EntryStatus = "FAILED"
	EntryCancelled EntryStatus = "CANCELLED"
)

// Commission is the fee breakdown recorded with an entry.
type Commission struct {
	AgentCommission    int64 `json:"agent_commission"`
	OperatorCommission int64 `json:"operator_commission"`
	SystemFee          int64 `json:"system_fee"`
}

// Total returns the sum of all fee components.
func (c Commission) Total() int64 {
	return c.AgentCommission + c.OperatorCommission + c.SystemFee
}

// IsZero reports whether no fee was charged.
func (c Commission) IsZero() bool {
	return c.AgentCommission == 0 && c.OperatorCommission == 0 && c.SystemFee == 0
}

// Entry is the immutable record of one completed transfer. Amount is the net
// value delivered to the destination wallet; fees live in Commission.
type Entry struct {
	ID           string      `json:"id"`
	FromOwnerID  string      `json:"from_owner_id"`
	ToOwnerID    string      `json:"to_owner_id"`
	FromWalletID string      `json:"from_wallet_id"`
	ToWalletID   string      `json:"to_wallet_id"`
	Amount       int64       `json:"amount"`
	Type         EntryType   `json:"type"`
	InitiatedBy  Initiator   `json:"initiated_by"`
	Status       EntryStatus `json:"status"`
	Commission   Commission  `json:"commission"`
	CreatedAt    time.Time   `json:"created_at"`
}
