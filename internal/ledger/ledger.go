package ledger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

var (
	// ErrWalletNotFound is returned when a wallet id or owner has no wallet.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists is returned when provisioning a second wallet for an owner.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrPartyNotFound is returned when a commission total is credited to an
	// unknown party.
	ErrPartyNotFound = errors.New("party not found")

	// ErrInvalidAmount rejects zero or negative balance mutations.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrWalletNotDeclared is returned when a unit of work touches a wallet it
	// did not lock up front.
	ErrWalletNotDeclared = errors.New("wallet not declared in unit of work")

	// ErrTxDone is returned when a Tx is used after its unit of work ended.
	ErrTxDone = errors.New("unit of work already finished")
)

// Ledger owns wallet balances, the append-only entry log and the per-party
// commission totals. Every balance mutation goes through a unit of work.
type Ledger interface {
	CreateWallet(ctx context.Context, w domain.Wallet) error
	Wallet(ctx context.Context, id string) (domain.Wallet, error)
	WalletByOwner(ctx context.Context, ownerID string) (domain.Wallet, error)
	SetWalletStatus(ctx context.Context, id string, status domain.WalletStatus) (domain.Wallet, error)

	// Credit and Debit are single-mutation units of work.
	Credit(ctx context.Context, id string, amount int64) (domain.Wallet, error)
	Debit(ctx context.Context, id string, amount int64) (domain.Wallet, error)

	// RunInTx locks walletIDs in ascending id order, runs fn and commits iff
	// fn returns nil. Nothing fn staged is visible to readers before commit.
	RunInTx(ctx context.Context, walletIDs []string, fn func(Tx) error) error

	Entries(ctx context.Context, q EntryQuery) (EntryPage, error)
	SumCommissions(ctx context.Context, q EntryQuery) (CommissionTotals, error)
	CommissionTotal(ctx context.Context, partyID string) (int64, error)
	Audit(ctx context.Context) (AuditReport, error)
}

// Tx is the view of the store inside one unit of work.
type Tx interface {
	Wallet(ctx context.Context, id string) (domain.Wallet, error)
	// Debit decrements the balance only if it covers amount; otherwise it
	// fails with an insufficient balance error and changes nothing.
	Debit(ctx context.Context, id string, amount int64) (domain.Wallet, error)
	Credit(ctx context.Context, id string, amount int64) (domain.Wallet, error)
	Append(ctx context.Context, e domain.Entry) (domain.Entry, error)
	AddCommission(ctx context.Context, partyID string, amount int64) error
}

// Visibility restricts an entry query to entries carrying certain fees.
type Visibility string

const (
	VisibilityAll Visibility = ""
	// VisibilityAgent keeps entries with an agent commission.
	VisibilityAgent Visibility = "AGENT"
	// VisibilityOperator keeps entries with an operator commission or system fee.
	VisibilityOperator Visibility = "OPERATOR"
	// VisibilityCommission keeps entries with any fee at all.
	VisibilityCommission Visibility = "COMMISSION"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// EntryQuery filters the entry log. Zero values mean "no filter".
type EntryQuery struct {
	OwnerID    string
	Type       domain.EntryType
	Status     domain.EntryStatus
	Visibility Visibility
	From       time.Time
	To         time.Time
	MinAmount  int64
	MaxAmount  int64
	Page       int
	Limit      int
}

// Normalize applies paging defaults and caps.
func (q EntryQuery) Normalize() EntryQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

func (q EntryQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

// Matches reports whether e passes every filter of q.
func (q EntryQuery) Matches(e domain.Entry) bool {
	if q.OwnerID != "" && e.FromOwnerID != q.OwnerID && e.ToOwnerID != q.OwnerID {
		return false
	}
	if q.Type != "" && e.Type != q.Type {
		return false
	}
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.CreatedAt.After(q.To) {
		return false
	}
	if q.MinAmount > 0 && e.Amount < q.MinAmount {
		return false
	}
	if q.MaxAmount > 0 && e.Amount > q.MaxAmount {
		return false
	}
	switch q.Visibility {
	case VisibilityAgent:
		return e.Commission.AgentCommission > 0
	case VisibilityOperator:
		return e.Commission.OperatorCommission > 0 || e.Commission.SystemFee > 0
	case VisibilityCommission:
		return !e.Commission.IsZero()
	}
	return true
}

// EntryPage is one page of entries, newest first.
type EntryPage struct {
	Entries    []domain.Entry `json:"entries"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

func newPage(q EntryQuery, entries []domain.Entry, total int) EntryPage {
	pages := 0
	if total > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	return EntryPage{Entries: entries, Total: total, Page: q.Page, Limit: q.Limit, TotalPages: pages}
}

// CommissionTotals aggregates the fee breakdown of matching entries.
type CommissionTotals struct {
	AgentCommission    int64 `json:"agent_commission"`
	OperatorCommission int64 `json:"operator_commission"`
	SystemFee          int64 `json:"system_fee"`
	Count              int   `json:"transaction_count"`
}

// AuditReport is a point-in-time consistency snapshot of the store.
type AuditReport struct {
	Wallets          int      `json:"wallets"`
	Entries          int      `json:"entries"`
	Supply           int64    `json:"supply"`
	NegativeWallets  []string `json:"negative_wallets,omitempty"`
	EntryFees        int64    `json:"entry_fees"`
	CommissionLedger int64    `json:"commission_ledger"`
}

// Healthy reports whether no wallet is below zero and the party commission
// totals agree with the fees recorded in the entry log.
func (r AuditReport) Healthy() bool {
	return len(r.NegativeWallets) == 0 && r.EntryFees == r.CommissionLedger
}

func validAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func prepareEntry(e domain.Entry, id string, now time.Time) (domain.Entry, error) {
	if !e.Type.Valid() {
		return domain.Entry{}, domain.Validation("ledger.Append", "unknown entry type %q", e.Type)
	}
	if err := validAmount(e.Amount); err != nil {
		return domain.Entry{}, err
	}
	if e.ID == "" {
		e.ID = id
	}
	if e.Status == "" {
		e.Status = domain.EntryCompleted
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return e, nil
}

// uniqueSorted returns ids deduplicated in ascending order, the global lock
// order shared by every unit of work.
func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
