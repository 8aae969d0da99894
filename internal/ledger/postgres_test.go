package ledger

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/infra"
)

// newPostgresLedger connects to TEST_DATABASE_URL and starts from empty
// tables. The database is wiped, so point it at a throwaway instance.
func newPostgresLedger(t *testing.T) (*PostgresLedger, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := infra.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE ledger_entries, wallets, parties`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresLedger(pool), pool
}

func insertParty(t *testing.T, pool *pgxpool.Pool, id string, role domain.Role) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO parties (id, name, phone, role, pin_hash) VALUES ($1, $2, $3, $4, $5)`,
		id, "party "+id, id, string(role), []byte("hash"))
	if err != nil {
		t.Fatalf("insert party %s: %v", id, err)
	}
}

// cashOut moves amount from src, paying the agent and operator their cut
// through both wallets and the party commission totals.
func cashOut(ctx context.Context, l Ledger, src, dst, op, agentID, opID string, amount, agentCut, opCut int64) error {
	return l.RunInTx(ctx, []string{src, dst, op}, func(tx Tx) error {
		from, err := tx.Debit(ctx, src, amount)
		if err != nil {
			return err
		}
		to, err := tx.Credit(ctx, dst, amount-opCut)
		if err != nil {
			return err
		}
		if _, err := tx.Credit(ctx, op, opCut); err != nil {
			return err
		}
		_, err = tx.Append(ctx, domain.Entry{
			FromOwnerID: from.OwnerID, ToOwnerID: to.OwnerID,
			FromWalletID: src, ToWalletID: dst,
			Amount: amount - agentCut - opCut, Type: domain.EntryCashOut, InitiatedBy: domain.InitiatedByUser,
			Commission: domain.Commission{AgentCommission: agentCut, OperatorCommission: opCut},
		})
		if err != nil {
			return err
		}
		if err := tx.AddCommission(ctx, agentID, agentCut); err != nil {
			return err
		}
		return tx.AddCommission(ctx, opID, opCut)
	})
}

func TestPostgresLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	l, pool := newPostgresLedger(t)
	ctx := context.Background()

	agentID, opID := uuid.NewString(), uuid.NewString()
	insertParty(t, pool, agentID, domain.RoleAgent)
	insertParty(t, pool, opID, domain.RoleSuperAdmin)

	src, dst, op := uuid.NewString(), uuid.NewString(), uuid.NewString()
	newWallet(t, l, src, 100)
	newWallet(t, l, dst, 0)
	newWallet(t, l, op, 0)

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = cashOut(ctx, l, src, dst, op, agentID, opID, 60, 2, 1)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientBalance):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Fatalf("want one success and one insufficient balance, got %d and %d", ok, short)
	}

	if got := balanceOf(t, l, src); got != 40 {
		t.Fatalf("source balance = %d, want 40", got)
	}
	if got := balanceOf(t, l, dst); got != 59 {
		t.Fatalf("agent balance = %d, want 59", got)
	}
	if got := balanceOf(t, l, op); got != 1 {
		t.Fatalf("operator balance = %d, want 1", got)
	}

	page, err := l.Entries(ctx, EntryQuery{})
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("entries = %d, want 1", page.Total)
	}
	if total, err := l.CommissionTotal(ctx, agentID); err != nil || total != 2 {
		t.Fatalf("agent commission = %d, %v; want 2", total, err)
	}
	if total, err := l.CommissionTotal(ctx, opID); err != nil || total != 1 {
		t.Fatalf("operator commission = %d, %v; want 1", total, err)
	}

	report, err := l.Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !report.Healthy() || report.Supply != 100 || report.EntryFees != 3 {
		t.Fatalf("unexpected audit: %+v", report)
	}
}

func TestPostgresLedger_MissingCommissionPartyRollsBack(t *testing.T) {
	l, pool := newPostgresLedger(t)
	ctx := context.Background()

	opID := uuid.NewString()
	insertParty(t, pool, opID, domain.RoleSuperAdmin)
	src, dst, op := uuid.NewString(), uuid.NewString(), uuid.NewString()
	newWallet(t, l, src, 100)
	newWallet(t, l, dst, 0)
	newWallet(t, l, op, 0)

	err := cashOut(ctx, l, src, dst, op, "no-such-agent", opID, 60, 2, 1)
	if !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}
	if got := balanceOf(t, l, src); got != 100 {
		t.Fatalf("source balance = %d, want 100", got)
	}
	if got := balanceOf(t, l, dst); got != 0 {
		t.Fatalf("agent balance = %d, want 0", got)
	}
	report, err := l.Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.Entries != 0 || !report.Healthy() {
		t.Fatalf("unexpected audit: %+v", report)
	}
}
