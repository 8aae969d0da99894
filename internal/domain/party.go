package domain

import "time"

// Role is the authorization class of a party.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAgent      Role = "AGENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Initiator maps a role onto the initiator recorded in ledger entries. The
// operator acts as an admin.
func (r Role) Initiator() Initiator {
	switch r {
	case RoleAgent:
		return InitiatedByAgent
	case RoleAdmin, RoleSuperAdmin:
		return InitiatedByAdmin
	default:
		return InitiatedByUser
	}
}

// PartyStatus is the activity flag of a party.
type PartyStatus string

const (
	PartyActive    PartyStatus = "ACTIVE"
	PartyInactive  PartyStatus = "INACTIVE"
	PartySuspended PartyStatus = "SUSPENDED"
	PartyBlocked   PartyStatus = "BLOCKED"
)

// Valid reports whether s is a known party status.
func (s PartyStatus) Valid() bool {
	switch s {
	case PartyActive, PartyInactive, PartySuspended, PartyBlocked:
		return true
	}
	return false
}

// Approval is the onboarding state of an agent.
type Approval string

const (
	ApprovalNone      Approval = ""
	ApprovalPending   Approval = "PENDING"
	ApprovalApproved  Approval = "APPROVED"
	ApprovalRejected  Approval = "REJECTED"
	ApprovalSuspended Approval = "SUSPENDED"
)

// Valid reports whether a is a known approval state for an agent.
func (a Approval) Valid() bool {
	switch a {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalSuspended:
		return true
	}
	return false
}

// Party is a user, agent, admin or operator known to the platform.
type Party struct {
	ID              string
	Name            string
	Phone           string
	Email           string
	Role            Role
	Status          PartyStatus
	Verified        bool
	Deleted         bool
	Approval        Approval
	CommissionTotal int64
	WalletID        string
	PINHash         []byte
	CreatedAt       time.Time
}

// Caller is an authenticated party as supplied by the auth layer.
type Caller struct {
	PartyID string
	Role    Role
}
