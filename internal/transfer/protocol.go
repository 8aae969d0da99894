package transfer

import (
	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/party"
)

// protocol lists who may start a transfer type and what the counterparty
// must satisfy. The caller always pays; the counterparty always receives.
// The caller is re-read on every transfer, so a party blocked after login is
// rejected even while its token is still valid.
type protocol struct {
	source       party.Requirements
	destination  party.Requirements
	sourceActive bool
	destActive   bool
}

var adminRoles = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}

var protocols = map[domain.EntryType]protocol{
	domain.EntryAddMoney: {
		source:      party.Requirements{Roles: adminRoles, Active: true},
		destination: party.Requirements{Roles: []domain.Role{domain.RoleAgent}, Approved: true, Active: true},
		destActive:  true,
	},
	domain.EntryWithdraw: {
		source:      party.Requirements{Roles: []domain.Role{domain.RoleAgent}, Approved: true, Active: true},
		destination: party.Requirements{Roles: adminRoles},
	},
	domain.EntrySendMoney: {
		source:       party.Requirements{Roles: []domain.Role{domain.RoleUser}, Active: true},
		destination:  party.Requirements{Roles: []domain.Role{domain.RoleUser}, Active: true},
		sourceActive: true,
		destActive:   true,
	},
	domain.EntryCashIn: {
		source:       party.Requirements{Roles: []domain.Role{domain.RoleAgent}, Approved: true, Active: true},
		destination:  party.Requirements{Roles: []domain.Role{domain.RoleUser}, Active: true, Verified: true},
		sourceActive: true,
		destActive:   true,
	},
	domain.EntryCashOut: {
		source:       party.Requirements{Roles: []domain.Role{domain.RoleUser}, Active: true},
		destination:  party.Requirements{Roles: []domain.Role{domain.RoleAgent}, Approved: true, Active: true},
		sourceActive: true,
		destActive:   true,
	},
}

func (p protocol) allows(role domain.Role) bool {
	for _, r := range p.source.Roles {
		if r == role {
			return true
		}
	}
	return false
}
