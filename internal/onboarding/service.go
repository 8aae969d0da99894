// Package onboarding provisions new parties in two explicit steps: register
// the party, then open and attach its wallet.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/party"
	"github.com/mfs-core/mfs_ledger/internal/wallet"
)

// Account is a party together with its wallet. Wallet is nil while the
// second provisioning step is outstanding.
type Account struct {
	Party  party.View     `json:"party"`
	Wallet *domain.Wallet `json:"wallet,omitempty"`
}

// Operator describes the SUPER_ADMIN that collects operator fees.
type Operator struct {
	Name  string
	Phone string
	Email string
	PIN   string
}

type Service struct {
	parties *party.Service
	wallets *wallet.Service
	logger  *slog.Logger
}

func NewService(parties *party.Service, wallets *wallet.Service, logger *slog.Logger) *Service {
	return &Service{parties: parties, wallets: wallets, logger: logger}
}

// Register creates the party and then its wallet. When the wallet step fails
// the party stays registered without a wallet, which keeps it ineligible for
// transfers until EnsureWallet succeeds.
func (s *Service) Register(ctx context.Context, in party.RegisterInput) (Account, error) {
	p, err := s.parties.Register(ctx, in)
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("party registered", slog.String("party_id", p.ID), slog.String("role", string(p.Role)))

	acct, err := s.attach(ctx, p)
	if err != nil {
		s.logger.Error("wallet provisioning failed", slog.String("party_id", p.ID), slog.Any("error", err))
		return Account{Party: party.Response(p)}, fmt.Errorf("provision wallet for %s: %w", p.ID, err)
	}
	return acct, nil
}

// EnsureWallet completes provisioning for a party that has no wallet yet. It
// is a no-op for fully provisioned parties.
func (s *Service) EnsureWallet(ctx context.Context, partyID string) (Account, error) {
	p, err := s.parties.Get(ctx, partyID)
	if err != nil {
		return Account{}, err
	}
	return s.attach(ctx, p)
}

// SeedOperator registers the operator if it does not exist yet and makes sure
// it owns a wallet.
func (s *Service) SeedOperator(ctx context.Context, op Operator) (Account, error) {
	existing, err := s.parties.GetByPhone(ctx, op.Phone)
	switch {
	case err == nil:
		if existing.Role != domain.RoleSuperAdmin {
			return Account{}, fmt.Errorf("phone %s belongs to a %s, not the operator", op.Phone, existing.Role)
		}
		return s.EnsureWallet(ctx, existing.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return Account{}, err
	}

	p, err := s.parties.Register(ctx, party.RegisterInput{
		Name:  op.Name,
		Phone: op.Phone,
		Email: op.Email,
		PIN:   op.PIN,
		Role:  domain.RoleSuperAdmin,
	})
	if err != nil {
		return Account{}, fmt.Errorf("register operator: %w", err)
	}
	if p, err = s.parties.SetVerified(ctx, p.ID, true); err != nil {
		return Account{}, err
	}
	s.logger.Info("operator registered", slog.String("party_id", p.ID))
	return s.attach(ctx, p)
}

func (s *Service) attach(ctx context.Context, p domain.Party) (Account, error) {
	w, err := s.wallets.Provision(ctx, p.ID, p.Role)
	if err != nil {
		return Account{}, err
	}
	if p.WalletID != w.ID {
		if p, err = s.parties.AttachWallet(ctx, p.ID, w.ID); err != nil {
			return Account{}, err
		}
	}
	return Account{Party: party.Response(p), Wallet: &w}, nil
}
