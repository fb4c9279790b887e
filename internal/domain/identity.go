package domain

import "time"

// Role enumerates staff roles across the custody chain.
type Role string

const (
	RoleAcquisition   Role = "ACQUISITION"
	RoleTransport     Role = "TRANSPORT"
	RoleProcessing    Role = "PROCESSING"
	RoleDisposal      Role = "DISPOSAL"
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleStaff         Role = "STAFF"
)

// ProvisionableRoles are the roles a provisioning token may carry. Plain
// STAFF accounts are never provisioned through tokens.
var ProvisionableRoles = []Role{
	RoleAcquisition,
	RoleTransport,
	RoleProcessing,
	RoleDisposal,
	RoleAdministrator,
}

// Valid reports whether the role is a known member of the enum.
func (r Role) Valid() bool {
	switch r {
	case RoleAcquisition, RoleTransport, RoleProcessing, RoleDisposal, RoleAdministrator, RoleStaff:
		return true
	}
	return false
}

// Provisionable reports whether a token may be minted for the role.
func (r Role) Provisionable() bool {
	for _, role := range ProvisionableRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity models a staff member authenticated by phone + biometric sample.
// BiometricHash holds the salted bcrypt digest of the enrollment sample and
// must never be exposed in read responses.
type Identity struct {
	ID            string
	Phone         string
	Name          string
	Role          Role
	Designation   string
	BiometricHash string
	Active        bool
	LastLoginAt   *time.Time
	LastLoginIP   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
