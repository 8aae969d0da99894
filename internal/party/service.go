package party

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

var (
	phonePattern = regexp.MustCompile(`^(?:\+8801\d{9}|01\d{9})$`)
	pinPattern   = regexp.MustCompile(`^\d{4}$`)

	// ErrInvalidCredentials hides whether the phone or the PIN was wrong.
	ErrInvalidCredentials = errors.New("invalid phone or PIN")
	// ErrInactive is returned when a deleted or non-ACTIVE party logs in.
	ErrInactive = errors.New("party is not active")
)

// CommissionSource reports the running commission total of a party. The
// ledger owns this figure.
type CommissionSource interface {
	CommissionTotal(ctx context.Context, partyID string) (int64, error)
}

// RegisterInput carries the fields of a new party.
type RegisterInput struct {
	Name  string
	Phone string
	Email string
	PIN   string
	Role  domain.Role
}

// Service manages the party lifecycle: registration, credentials and the
// onboarding flags that drive eligibility.
type Service struct {
	repo        Repository
	commissions CommissionSource
}

// NewService creates a new party service. commissions may be nil.
func NewService(repo Repository, commissions CommissionSource) *Service {
	return &Service{repo: repo, commissions: commissions}
}

// Register validates the input, hashes the PIN and stores the party. Agents
// start pending approval. No wallet is created here.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Party, error) {
	const op = "party.Register"
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Role == "" {
		in.Role = domain.RoleUser
	}

	switch {
	case len(in.Name) < 2 || len(in.Name) > 50:
		return domain.Party{}, domain.Validation(op, "name must be between 2 and 50 characters")
	case !phonePattern.MatchString(in.Phone):
		return domain.Party{}, domain.Validation(op, "invalid phone number")
	case !pinPattern.MatchString(in.PIN):
		return domain.Party{}, domain.Validation(op, "PIN must be 4 digits")
	case !in.Role.Valid():
		return domain.Party{}, domain.Validation(op, "unknown role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.PIN), bcrypt.DefaultCost)
	if err != nil {
		return domain.Party{}, err
	}

	p := domain.Party{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Role:      in.Role,
		Status:    domain.PartyActive,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}
	if p.Role == domain.RoleAgent {
		p.Approval = domain.ApprovalPending
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrExists) {
			return domain.Party{}, domain.Validation(op, "phone %s is already registered", p.Phone)
		}
		return domain.Party{}, err
	}
	return p, nil
}

// Authenticate verifies a phone and PIN pair.
func (s *Service) Authenticate(ctx context.Context, phone, pin string) (domain.Party, error) {
	p, err := s.repo.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Party{}, ErrInvalidCredentials
		}
		return domain.Party{}, err
	}
	if err := bcrypt.CompareHashAndPassword(p.PINHash, []byte(pin)); err != nil {
		return domain.Party{}, ErrInvalidCredentials
	}
	if p.Deleted || p.Status != domain.PartyActive {
		return domain.Party{}, ErrInactive
	}
	return p, nil
}

// Get returns a party with its current commission total.
func (s *Service) Get(ctx context.Context, id string) (domain.Party, error) {
	p, err := s.find(ctx, "party.Get", id)
	if err != nil {
		return domain.Party{}, err
	}
	if s.commissions != nil {
		total, err := s.commissions.CommissionTotal(ctx, p.ID)
		if err != nil {
			return domain.Party{}, err
		}
		p.CommissionTotal = total
	}
	return p, nil
}

// GetByPhone looks a party up by phone number.
func (s *Service) GetByPhone(ctx context.Context, phone string) (domain.Party, error) {
	p, err := s.repo.FindByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return domain.Party{}, domain.NotFound("party.GetByPhone", "party")
	}
	return p, err
}

// SetApproval changes the approval state of an agent.
func (s *Service) SetApproval(ctx context.Context, id string, approval domain.Approval) (domain.Party, error) {
	const op = "party.SetApproval"
	if !approval.Valid() {
		return domain.Party{}, domain.Validation(op, "unknown approval status %q", approval)
	}
	return s.update(ctx, op, id, func(p *domain.Party) error {
		if p.Role != domain.RoleAgent {
			return domain.Validation(op, "only agents carry an approval status")
		}
		p.Approval = approval
		return nil
	})
}

// SetStatus changes the activity status of a party.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.PartyStatus) (domain.Party, error) {
	const op = "party.SetStatus"
	if !status.Valid() {
		return domain.Party{}, domain.Validation(op, "unknown party status %q", status)
	}
	return s.update(ctx, op, id, func(p *domain.Party) error {
		p.Status = status
		return nil
	})
}

// SetVerified records the outcome of identity verification.
func (s *Service) SetVerified(ctx context.Context, id string, verified bool) (domain.Party, error) {
	return s.update(ctx, "party.SetVerified", id, func(p *domain.Party) error {
		p.Verified = verified
		return nil
	})
}

// Delete soft-deletes a party. Deleted parties are never eligible for transfers.
func (s *Service) Delete(ctx context.Context, id string) (domain.Party, error) {
	return s.update(ctx, "party.Delete", id, func(p *domain.Party) error {
		p.Deleted = true
		return nil
	})
}

// AttachWallet links a provisioned wallet to its owner.
func (s *Service) AttachWallet(ctx context.Context, id, walletID string) (domain.Party, error) {
	const op = "party.AttachWallet"
	return s.update(ctx, op, id, func(p *domain.Party) error {
		if p.WalletID != "" && p.WalletID != walletID {
			return domain.Validation(op, "party already owns wallet %s", p.WalletID)
		}
		p.WalletID = walletID
		return nil
	})
}

func (s *Service) find(ctx context.Context, op, id string) (domain.Party, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return domain.Party{}, domain.NotFound(op, "party")
	}
	return p, err
}

func (s *Service) update(ctx context.Context, op, id string, mutate func(*domain.Party) error) (domain.Party, error) {
	p, err := s.find(ctx, op, id)
	if err != nil {
		return domain.Party{}, err
	}
	if err := mutate(&p); err != nil {
		return domain.Party{}, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Party{}, domain.NotFound(op, "party")
		}
		return domain.Party{}, err
	}
	return p, nil
}
