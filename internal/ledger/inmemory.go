package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

type inMemoryLedger struct {
	mu          sync.RWMutex
	wallets     map[string]domain.Wallet
	owners      map[string]string
	entries     []domain.Entry
	commissions map[string]int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets:     make(map[string]domain.Wallet),
		owners:      make(map[string]string),
		commissions: make(map[string]int64),
		locks:       make(map[string]*sync.Mutex),
		now:         nowUTC,
	}
}

func (l *inMemoryLedger) walletLock(id string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// lockAll acquires the wallet locks in ascending id order and returns the
// matching release func.
func (l *inMemoryLedger) lockAll(ids []string) func() {
	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := l.walletLock(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *inMemoryLedger) CreateWallet(_ context.Context, w domain.Wallet) error {
	if w.ID == "" || w.OwnerID == "" {
		return fmt.Errorf("wallet id and owner are required")
	}
	if w.Balance < 0 {
		return fmt.Errorf("initial balance must not be negative")
	}
	if w.Status == "" {
		w.Status = domain.WalletActive
	}
	now := l.now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = w.CreatedAt

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.owners[w.OwnerID]; exists {
		return fmt.Errorf("owner %s: %w", w.OwnerID, ErrWalletExists)
	}
	if _, exists := l.wallets[w.ID]; exists {
		return fmt.Errorf("wallet %s: %w", w.ID, ErrWalletExists)
	}
	l.wallets[w.ID] = w
	l.owners[w.OwnerID] = w.ID
	return nil
}

func (l *inMemoryLedger) Wallet(_ context.Context, id string) (domain.Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wallets[id]
	if !ok {
		return domain.Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (l *inMemoryLedger) WalletByOwner(ctx context.Context, ownerID string) (domain.Wallet, error) {
	l.mu.RLock()
	id, ok := l.owners[ownerID]
	l.mu.RUnlock()
	if !ok {
		return domain.Wallet{}, ErrWalletNotFound
	}
	return l.Wallet(ctx, id)
}

func (l *inMemoryLedger) SetWalletStatus(_ context.Context, id string, status domain.WalletStatus) (domain.Wallet, error) {
	if !status.Valid() {
		return domain.Wallet{}, domain.Validation("ledger.SetWalletStatus", "unknown wallet status %q", status)
	}
	release := l.lockAll([]string{id})
	defer release()

	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[id]
	if !ok {
		return domain.Wallet{}, ErrWalletNotFound
	}
	w.Status = status
	w.UpdatedAt = l.now()
	l.wallets[id] = w
	return w, nil
}

func (l *inMemoryLedger) Credit(ctx context.Context, id string, amount int64) (domain.Wallet, error) {
	var out domain.Wallet
	err := l.RunInTx(ctx, []string{id}, func(tx Tx) error {
		w, err := tx.Credit(ctx, id, amount)
		out = w
		return err
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return out, nil
}

func (l *inMemoryLedger) Debit(ctx context.Context, id string, amount int64) (domain.Wallet, error) {
	var out domain.Wallet
	err := l.RunInTx(ctx, []string{id}, func(tx Tx) error {
		w, err := tx.Debit(ctx, id, amount)
		out = w
		return err
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return out, nil
}

func (l *inMemoryLedger) RunInTx(ctx context.Context, walletIDs []string, fn func(Tx) error) error {
	ids := uniqueSorted(walletIDs)
	release := l.lockAll(ids)
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		store:       l,
		declared:    make(map[string]struct{}, len(ids)),
		deltas:      make(map[string]int64, len(ids)),
		commissions: make(map[string]int64),
	}
	for _, id := range ids {
		tx.declared[id] = struct{}{}
	}
	defer func() { tx.done = true }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.commit(tx)
	return nil
}

// commit publishes every staged mutation of tx under the store lock so readers
// see all of the unit or none of it.
func (l *inMemoryLedger) commit(tx *memoryTx) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, delta := range tx.deltas {
		w := l.wallets[id]
		w.Balance += delta
		w.UpdatedAt = now
		l.wallets[id] = w
	}
	l.entries = append(l.entries, tx.entries...)
	for partyID, amount := range tx.commissions {
		l.commissions[partyID] += amount
	}
}

func (l *inMemoryLedger) Entries(_ context.Context, q EntryQuery) (EntryPage, error) {
	q = q.Normalize()
	matched := l.matching(q)

	total := len(matched)
	start := q.offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return newPage(q, matched[start:end], total), nil
}

// matching returns the entries passing q, newest first.
func (l *inMemoryLedger) matching(q EntryQuery) []domain.Entry {
	l.mu.RLock()
	out := make([]domain.Entry, 0)
	for i := len(l.entries) - 1; i >= 0; i-- {
		if q.Matches(l.entries[i]) {
			out = append(out, l.entries[i])
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (l *inMemoryLedger) SumCommissions(_ context.Context, q EntryQuery) (CommissionTotals, error) {
	var totals CommissionTotals
	for _, e := range l.matching(q) {
		totals.AgentCommission += e.Commission.AgentCommission
		totals.OperatorCommission += e.Commission.OperatorCommission
		totals.SystemFee += e.Commission.SystemFee
		totals.Count++
	}
	return totals, nil
}

func (l *inMemoryLedger) CommissionTotal(_ context.Context, partyID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commissions[partyID], nil
}

func (l *inMemoryLedger) Audit(_ context.Context) (AuditReport, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report := AuditReport{Wallets: len(l.wallets), Entries: len(l.entries)}
	for id, w := range l.wallets {
		report.Supply += w.Balance
		if w.Balance < 0 {
			report.NegativeWallets = append(report.NegativeWallets, id)
		}
	}
	sort.Strings(report.NegativeWallets)
	for _, e := range l.entries {
		report.EntryFees += e.Commission.Total()
	}
	for _, total := range l.commissions {
		report.CommissionLedger += total
	}
	return report, nil
}

// memoryTx stages mutations until the owning unit of work commits. It is used
// by a single goroutine.
type memoryTx struct {
	store       *inMemoryLedger
	declared    map[string]struct{}
	deltas      map[string]int64
	entries     []domain.Entry
	commissions map[string]int64
	done        bool
}

func (tx *memoryTx) check(id string) error {
	if tx.done {
		return ErrTxDone
	}
	if _, ok := tx.declared[id]; !ok {
		return fmt.Errorf("wallet %s: %w", id, ErrWalletNotDeclared)
	}
	return nil
}

// view returns the wallet as this unit sees it: committed state plus staged
// deltas. The caller holds the wallet lock, so the committed balance is stable.
func (tx *memoryTx) view(id string) (domain.Wallet, bool) {
	tx.store.mu.RLock()
	w, ok := tx.store.wallets[id]
	tx.store.mu.RUnlock()
	if !ok {
		return domain.Wallet{}, false
	}
	w.Balance += tx.deltas[id]
	return w, true
}

func (tx *memoryTx) Wallet(_ context.Context, id string) (domain.Wallet, error) {
	if err := tx.check(id); err != nil {
		return domain.Wallet{}, err
	}
	w, ok := tx.view(id)
	if !ok {
		return domain.Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (tx *memoryTx) Debit(_ context.Context, id string, amount int64) (domain.Wallet, error) {
	if err := tx.check(id); err != nil {
		return domain.Wallet{}, err
	}
	if err := validAmount(amount); err != nil {
		return domain.Wallet{}, err
	}
	w, ok := tx.view(id)
	if !ok || w.Balance < amount {
		return domain.Wallet{}, domain.InsufficientBalance("ledger.Debit", id)
	}
	tx.deltas[id] -= amount
	w.Balance -= amount
	w.UpdatedAt = tx.store.now()
	return w, nil
}

func (tx *memoryTx) Credit(_ context.Context, id string, amount int64) (domain.Wallet, error) {
	if err := tx.check(id); err != nil {
		return domain.Wallet{}, err
	}
	if err := validAmount(amount); err != nil {
		return domain.Wallet{}, err
	}
	w, ok := tx.view(id)
	if !ok {
		return domain.Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrWalletNotFound)
	}
	tx.deltas[id] += amount
	w.Balance += amount
	w.UpdatedAt = tx.store.now()
	return w, nil
}

func (tx *memoryTx) Append(_ context.Context, e domain.Entry) (domain.Entry, error) {
	if tx.done {
		return domain.Entry{}, ErrTxDone
	}
	e, err := prepareEntry(e, uuid.NewString(), tx.store.now())
	if err != nil {
		return domain.Entry{}, err
	}
	tx.entries = append(tx.entries, e)
	return e, nil
}

func (tx *memoryTx) AddCommission(_ context.Context, partyID string, amount int64) error {
	if tx.done {
		return ErrTxDone
	}
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	tx.commissions[partyID] += amount
	return nil
}
