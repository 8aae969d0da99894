package party

import (
	"context"
	"errors"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

// Requirements lists the conditions a party must meet to take part in a
// transfer. Zero fields are not checked.
type Requirements struct {
	Roles    []domain.Role
	Approved bool
	Active   bool
	Verified bool
}

// Handle is the resolved view of an eligible party.
type Handle struct {
	PartyID  string
	Role     domain.Role
	WalletID string
	Phone    string
}

// Resolver maps phone numbers and ids to eligible parties. It never mutates.
type Resolver struct {
	repo Repository
}

// NewResolver builds a resolver over the party repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve looks a party up by phone number and checks req.
func (r *Resolver) Resolve(ctx context.Context, phone string, req Requirements) (Handle, error) {
	const op = "party.Resolve"
	p, err := r.repo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Handle{}, domain.NotEligible(op, "no party with phone %s", phone)
		}
		return Handle{}, err
	}
	return eligible(op, p, req)
}

// ResolveID looks a party up by id and checks req.
func (r *Resolver) ResolveID(ctx context.Context, partyID string, req Requirements) (Handle, error) {
	const op = "party.ResolveID"
	p, err := r.repo.FindByID(ctx, partyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Handle{}, domain.NotEligible(op, "party %s not found", partyID)
		}
		return Handle{}, err
	}
	return eligible(op, p, req)
}

func eligible(op string, p domain.Party, req Requirements) (Handle, error) {
	if p.Deleted {
		return Handle{}, domain.NotEligible(op, "party %s is deleted", p.Phone)
	}
	if p.WalletID == "" {
		return Handle{}, domain.NotEligible(op, "party %s has no wallet", p.Phone)
	}
	if len(req.Roles) > 0 && !hasRole(req.Roles, p.Role) {
		return Handle{}, domain.NotEligible(op, "party %s has role %s", p.Phone, p.Role)
	}
	if req.Approved && p.Approval != domain.ApprovalApproved {
		return Handle{}, domain.NotEligible(op, "agent %s is not approved", p.Phone)
	}
	if req.Active && p.Status != domain.PartyActive {
		return Handle{}, domain.NotEligible(op, "party %s is %s", p.Phone, p.Status)
	}
	if req.Verified && !p.Verified {
		return Handle{}, domain.NotEligible(op, "party %s is not verified", p.Phone)
	}
	return Handle{PartyID: p.ID, Role: p.Role, WalletID: p.WalletID, Phone: p.Phone}, nil
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
