package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/ledger"
)

func TestServiceProvisionAndBalance(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, DefaultProvisioning())

	ctx := context.Background()
	ownerID := uuid.NewString()
	wallet, err := svc.Provision(ctx, ownerID, domain.RoleUser)
	if err != nil {
		t.Fatalf("provision wallet: %v", err)
	}
	if wallet.Balance != 50 || wallet.Currency != "BDT" || !wallet.Active() {
		t.Fatalf("unexpected new wallet %+v", wallet)
	}

	fetched, err := svc.Get(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.ID != wallet.ID || fetched.OwnerID != ownerID {
		t.Fatalf("expected wallet ID %s, got %s", wallet.ID, fetched.ID)
	}

	ledger.SeedBalance(led, wallet.ID, 2_500)

	balance, err := svc.Balance(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 2_500 {
		t.Fatalf("expected balance 2500, got %d", balance.Amount)
	}
}

func TestServiceProvisionIsIdempotent(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), DefaultProvisioning())
	ctx := context.Background()

	first, err := svc.Provision(ctx, "owner-1", domain.RoleAgent)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	second, err := svc.Provision(ctx, "owner-1", domain.RoleAgent)
	if err != nil {
		t.Fatalf("second provision: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same wallet, got %s and %s", first.ID, second.ID)
	}
}

func TestServiceProvisionOperatorBalance(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), DefaultProvisioning())
	w, err := svc.Provision(context.Background(), "operator", domain.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if w.Balance != 100_000_000 {
		t.Fatalf("expected operator opening balance, got %d", w.Balance)
	}
}

func TestServiceSetStatusAndNotFound(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), DefaultProvisioning())
	ctx := context.Background()
	w, _ := svc.Provision(ctx, "owner-1", domain.RoleUser)

	blocked, err := svc.SetStatus(ctx, w.ID, domain.WalletBlocked)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if blocked.Status != domain.WalletBlocked {
		t.Fatalf("expected blocked wallet, got %s", blocked.Status)
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetByOwner(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
