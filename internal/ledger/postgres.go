package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

const walletColumns = `id, owner_id, balance, currency, status, created_at, updated_at`

const entryColumns = `id, from_owner_id, to_owner_id, from_wallet_id, to_wallet_id, amount, type,
        initiated_by, status, agent_commission, operator_commission, system_fee, created_at`

const uniqueViolation = "23505"

// PostgresLedger keeps wallet balances as a guarded column and appends one
// ledger_entries row per completed transfer.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// CreateWallet inserts a wallet; a second wallet for the same owner fails with
// ErrWalletExists.
func (l *PostgresLedger) CreateWallet(ctx context.Context, w domain.Wallet) error {
	if w.ID == "" || w.OwnerID == "" {
		return fmt.Errorf("wallet id and owner are required")
	}
	if w.Status == "" {
		w.Status = domain.WalletActive
	}
	_, err := l.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, currency, status)
        VALUES ($1, $2, $3, $4, $5)`, w.ID, w.OwnerID, w.Balance, w.Currency, string(w.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("owner %s: %w", w.OwnerID, ErrWalletExists)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Wallet(ctx context.Context, id string) (domain.Wallet, error) {
	return scanWallet(l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
}

func (l *PostgresLedger) WalletByOwner(ctx context.Context, ownerID string) (domain.Wallet, error) {
	return scanWallet(l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1`, ownerID))
}

func (l *PostgresLedger) SetWalletStatus(ctx context.Context, id string, status domain.WalletStatus) (domain.Wallet, error) {
	if !status.Valid() {
		return domain.Wallet{}, domain.Validation("ledger.SetWalletStatus", "unknown wallet status %q", status)
	}
	return scanWallet(l.db.QueryRow(ctx, `UPDATE wallets SET status = $2, updated_at = now()
        WHERE id = $1 RETURNING `+walletColumns, id, string(status)))
}

func (l *PostgresLedger) Credit(ctx context.Context, id string, amount int64) (domain.Wallet, error) {
	var out domain.Wallet
	err := l.RunInTx(ctx, []string{id}, func(tx Tx) error {
		w, err := tx.Credit(ctx, id, amount)
		out = w
		return err
	})
	return out, err
}

func (l *PostgresLedger) Debit(ctx context.Context, id string, amount int64) (domain.Wallet, error) {
	var out domain.Wallet
	err := l.RunInTx(ctx, []string{id}, func(tx Tx) error {
		w, err := tx.Debit(ctx, id, amount)
		out = w
		return err
	})
	return out, err
}

// RunInTx opens one database transaction, row-locks the declared wallets in id
// order and commits only if fn succeeds.
func (l *PostgresLedger) RunInTx(ctx context.Context, walletIDs []string, fn func(Tx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ids := uniqueSorted(walletIDs)
	if len(ids) > 0 {
		rows, err := tx.Query(ctx, `SELECT id FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
		if err != nil {
			return fmt.Errorf("lock wallets: %w", err)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("lock wallets: %w", err)
		}
	}

	ptx := &postgresTx{tx: tx}
	defer func() { ptx.done = true }()
	if err := fn(ptx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Entries(ctx context.Context, q EntryQuery) (EntryPage, error) {
	q = q.Normalize()
	where, args := entryFilter(q)

	var total int
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`+where, args...).Scan(&total); err != nil {
		return EntryPage{}, fmt.Errorf("count entries: %w", err)
	}

	args = append(args, q.Limit, q.offset())
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, len(args)-1, len(args))
	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return EntryPage{}, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.Entry, 0, q.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return EntryPage{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return EntryPage{}, fmt.Errorf("list entries: %w", err)
	}
	return newPage(q, entries, total), nil
}

func (l *PostgresLedger) SumCommissions(ctx context.Context, q EntryQuery) (CommissionTotals, error) {
	where, args := entryFilter(q)
	var totals CommissionTotals
	err := l.db.QueryRow(ctx, `SELECT COALESCE(SUM(agent_commission), 0), COALESCE(SUM(operator_commission), 0),
        COALESCE(SUM(system_fee), 0), COUNT(*) FROM ledger_entries`+where, args...).
		Scan(&totals.AgentCommission, &totals.OperatorCommission, &totals.SystemFee, &totals.Count)
	if err != nil {
		return CommissionTotals{}, fmt.Errorf("sum commissions: %w", err)
	}
	return totals, nil
}

func (l *PostgresLedger) CommissionTotal(ctx context.Context, partyID string) (int64, error) {
	var total int64
	err := l.db.QueryRow(ctx, `SELECT commission_total FROM parties WHERE id = $1`, partyID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("party %s: %w", partyID, ErrPartyNotFound)
		}
		return 0, err
	}
	return total, nil
}

// Audit reads every total from one repeatable-read snapshot so a transfer
// committing mid-audit cannot skew the sums against each other.
func (l *PostgresLedger) Audit(ctx context.Context) (AuditReport, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return AuditReport{}, fmt.Errorf("audit begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var report AuditReport
	if err := tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(balance), 0) FROM wallets`).
		Scan(&report.Wallets, &report.Supply); err != nil {
		return AuditReport{}, fmt.Errorf("audit wallets: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(agent_commission + operator_commission + system_fee), 0)
        FROM ledger_entries`).Scan(&report.Entries, &report.EntryFees); err != nil {
		return AuditReport{}, fmt.Errorf("audit entries: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(commission_total), 0) FROM parties`).
		Scan(&report.CommissionLedger); err != nil {
		return AuditReport{}, fmt.Errorf("audit commissions: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT id FROM wallets WHERE balance < 0 ORDER BY id`)
	if err != nil {
		return AuditReport{}, fmt.Errorf("audit negative wallets: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return AuditReport{}, err
		}
		report.NegativeWallets = append(report.NegativeWallets, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return AuditReport{}, fmt.Errorf("audit negative wallets: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return AuditReport{}, fmt.Errorf("audit commit: %w", err)
	}
	return report, nil
}

type postgresTx struct {
	tx   pgx.Tx
	done bool
}

func (t *postgresTx) Wallet(ctx context.Context, id string) (domain.Wallet, error) {
	if t.done {
		return domain.Wallet{}, ErrTxDone
	}
	return scanWallet(t.tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
}

// Debit is a single conditional update; no rows means the balance did not
// cover the amount or the wallet does not exist.
func (t *postgresTx) Debit(ctx context.Context, id string, amount int64) (domain.Wallet, error) {
	if t.done {
		return domain.Wallet{}, ErrTxDone
	}
	if err := validAmount(amount); err != nil {
		return domain.Wallet{}, err
	}
	w, err := scanWallet(t.tx.QueryRow(ctx, `UPDATE wallets SET balance = balance - $2, updated_at = now()
        WHERE id = $1 AND balance >= $2 RETURNING `+walletColumns, id, amount))
	if errors.Is(err, ErrWalletNotFound) {
		return domain.Wallet{}, domain.InsufficientBalance("ledger.Debit", id)
	}
	return w, err
}

func (t *postgresTx) Credit(ctx context.Context, id string, amount int64) (domain.Wallet, error) {
	if t.done {
		return domain.Wallet{}, ErrTxDone
	}
	if err := validAmount(amount); err != nil {
		return domain.Wallet{}, err
	}
	w, err := scanWallet(t.tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2, updated_at = now()
        WHERE id = $1 RETURNING `+walletColumns, id, amount))
	if errors.Is(err, ErrWalletNotFound) {
		return domain.Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrWalletNotFound)
	}
	return w, err
}

func (t *postgresTx) Append(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	if t.done {
		return domain.Entry{}, ErrTxDone
	}
	e, err := prepareEntry(e, uuid.NewString(), nowUTC())
	if err != nil {
		return domain.Entry{}, err
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.FromOwnerID, e.ToOwnerID, e.FromWalletID, e.ToWalletID, e.Amount, string(e.Type),
		string(e.InitiatedBy), string(e.Status), e.Commission.AgentCommission, e.Commission.OperatorCommission,
		e.Commission.SystemFee, e.CreatedAt)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("append entry: %w", err)
	}
	return e, nil
}

func (t *postgresTx) AddCommission(ctx context.Context, partyID string, amount int64) error {
	if t.done {
		return ErrTxDone
	}
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	tag, err := t.tx.Exec(ctx, `UPDATE parties SET commission_total = commission_total + $2 WHERE id = $1`, partyID, amount)
	if err != nil {
		return fmt.Errorf("add commission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("party %s: %w", partyID, ErrPartyNotFound)
	}
	return nil
}

func scanWallet(row pgx.Row) (domain.Wallet, error) {
	var w domain.Wallet
	var status string
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Currency, &status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wallet{}, ErrWalletNotFound
		}
		return domain.Wallet{}, err
	}
	w.Status = domain.WalletStatus(status)
	return w, nil
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var e domain.Entry
	var typ, initiatedBy, status string
	err := row.Scan(&e.ID, &e.FromOwnerID, &e.ToOwnerID, &e.FromWalletID, &e.ToWalletID, &e.Amount, &typ,
		&initiatedBy, &status, &e.Commission.AgentCommission, &e.Commission.OperatorCommission,
		&e.Commission.SystemFee, &e.CreatedAt)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Type = domain.EntryType(typ)
	e.InitiatedBy = domain.Initiator(initiatedBy)
	e.Status = domain.EntryStatus(status)
	return e, nil
}

// entryFilter renders the WHERE clause of q with positional arguments.
func entryFilter(q EntryQuery) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if q.OwnerID != "" {
		add("(from_owner_id = ? OR to_owner_id = ?)", q.OwnerID)
	}
	if q.Type != "" {
		add("type = ?", string(q.Type))
	}
	if q.Status != "" {
		add("status = ?", string(q.Status))
	}
	if !q.From.IsZero() {
		add("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		add("created_at <= ?", q.To)
	}
	if q.MinAmount > 0 {
		add("amount >= ?", q.MinAmount)
	}
	if q.MaxAmount > 0 {
		add("amount <= ?", q.MaxAmount)
	}
	switch q.Visibility {
	case VisibilityAgent:
		conds = append(conds, "agent_commission > 0")
	case VisibilityOperator:
		conds = append(conds, "(operator_commission > 0 OR system_fee > 0)")
	case VisibilityCommission:
		conds = append(conds, "(agent_commission > 0 OR operator_commission > 0 OR system_fee > 0)")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
