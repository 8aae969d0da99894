package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/ledger"
)

// Service exposes wallet operations backed by the ledger.
type Service struct {
	ledger ledger.Ledger
	policy Provisioning
}

// NewService builds a wallet service instance.
func NewService(l ledger.Ledger, policy Provisioning) *Service {
	if policy.Currency == "" {
		policy.Currency = DefaultProvisioning().Currency
	}
	return &Service{ledger: l, policy: policy}
}

// Provision opens the wallet of ownerID with the policy initial balance for
// role. It returns the existing wallet when the owner already has one.
func (s *Service) Provision(ctx context.Context, ownerID string, role domain.Role) (domain.Wallet, error) {
	const op = "wallet.Provision"
	if ownerID == "" {
		return domain.Wallet{}, domain.Validation(op, "owner is required")
	}
	if existing, err := s.ledger.WalletByOwner(ctx, ownerID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ledger.ErrWalletNotFound) {
		return domain.Wallet{}, err
	}

	balance := s.policy.InitialBalance
	if role == domain.RoleSuperAdmin {
		balance = s.policy.OperatorInitialBalance
	}
	now := time.Now().UTC()
	w := domain.Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Balance:   balance,
		Currency:  s.policy.Currency,
		Status:    domain.WalletActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ledger.CreateWallet(ctx, w); err != nil {
		if errors.Is(err, ledger.ErrWalletExists) {
			return s.ledger.WalletByOwner(ctx, ownerID)
		}
		return domain.Wallet{}, err
	}
	return w, nil
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Wallet, error) {
	w, err := s.ledger.Wallet(ctx, id)
	return w, notFound("wallet.Get", err)
}

// GetByOwner retrieves the wallet of a party.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (domain.Wallet, error) {
	w, err := s.ledger.WalletByOwner(ctx, ownerID)
	return w, notFound("wallet.GetByOwner", err)
}

// SetStatus blocks or reactivates a wallet.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.WalletStatus) (domain.Wallet, error) {
	w, err := s.ledger.SetWalletStatus(ctx, id, status)
	return w, notFound("wallet.SetStatus", err)
}

// Balance returns the committed balance of the wallet.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: w.ID, Amount: w.Balance, Currency: w.Currency, AsOf: time.Now().UTC()}, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, ledger.ErrWalletNotFound) {
		return domain.NotFound(op, "wallet")
	}
	return err
}
