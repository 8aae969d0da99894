package party

import (
	"context"
	"errors"
	"testing"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

func seedParty(t *testing.T, repo Repository, p domain.Party) domain.Party {
	t.Helper()
	if p.Status == "" {
		p.Status = domain.PartyActive
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("create party: %v", err)
	}
	return p
}

func TestResolverEligibility(t *testing.T) {
	repo := NewMemoryRepository()
	r := NewResolver(repo)
	ctx := context.Background()

	seedParty(t, repo, domain.Party{ID: "agent", Phone: "a", Role: domain.RoleAgent, Approval: domain.ApprovalApproved, WalletID: "wa"})
	seedParty(t, repo, domain.Party{ID: "pending", Phone: "p", Role: domain.RoleAgent, Approval: domain.ApprovalPending, WalletID: "wp"})
	seedParty(t, repo, domain.Party{ID: "user", Phone: "u", Role: domain.RoleUser, Verified: true, WalletID: "wu"})
	seedParty(t, repo, domain.Party{ID: "unverified", Phone: "n", Role: domain.RoleUser, WalletID: "wn"})
	seedParty(t, repo, domain.Party{ID: "suspended", Phone: "s", Role: domain.RoleUser, Verified: true, Status: domain.PartySuspended, WalletID: "ws"})
	seedParty(t, repo, domain.Party{ID: "deleted", Phone: "d", Role: domain.RoleUser, Deleted: true, WalletID: "wd"})
	seedParty(t, repo, domain.Party{ID: "walletless", Phone: "w", Role: domain.RoleUser})
	seedParty(t, repo, domain.Party{ID: "blocked", Phone: "b", Role: domain.RoleAgent, Approval: domain.ApprovalApproved, Status: domain.PartyBlocked, WalletID: "wb"})

	agentReq := Requirements{Roles: []domain.Role{domain.RoleAgent}, Approved: true}
	activeAgentReq := Requirements{Roles: []domain.Role{domain.RoleAgent}, Approved: true, Active: true}
	cashInReq := Requirements{Roles: []domain.Role{domain.RoleUser}, Active: true, Verified: true}

	tests := []struct {
		phone    string
		req      Requirements
		eligible bool
	}{
		{"a", agentReq, true},
		{"p", agentReq, false},
		{"u", agentReq, false},
		{"a", activeAgentReq, true},
		{"b", agentReq, true},
		{"b", activeAgentReq, false},
		{"u", cashInReq, true},
		{"n", cashInReq, false},
		{"s", cashInReq, false},
		{"s", Requirements{Roles: []domain.Role{domain.RoleUser}}, true},
		{"d", Requirements{}, false},
		{"w", Requirements{}, false},
		{"missing", Requirements{}, false},
	}
	for _, tt := range tests {
		h, err := r.Resolve(ctx, tt.phone, tt.req)
		if tt.eligible {
			if err != nil {
				t.Fatalf("phone %s: expected eligible, got %v", tt.phone, err)
			}
			if h.Phone != tt.phone || h.WalletID == "" {
				t.Fatalf("phone %s: unexpected handle %+v", tt.phone, h)
			}
			continue
		}
		if !errors.Is(err, domain.ErrPartyNotEligible) {
			t.Fatalf("phone %s: expected not eligible, got %v", tt.phone, err)
		}
	}

	h, err := r.ResolveID(ctx, "agent", agentReq)
	if err != nil {
		t.Fatalf("resolve id: %v", err)
	}
	if h.Role != domain.RoleAgent || h.WalletID != "wa" {
		t.Fatalf("unexpected handle %+v", h)
	}
	if _, err := r.ResolveID(ctx, "nobody", Requirements{}); !errors.Is(err, domain.ErrPartyNotEligible) {
		t.Fatalf("expected not eligible, got %v", err)
	}
}
