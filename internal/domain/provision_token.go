package domain

import "time"

// ProvisionToken is a one-time, role-scoped credential used to bootstrap a
// staff identity. A token flips unused -> used exactly once; once used or
// past ExpiresAt it is permanently unredeemable.
type ProvisionToken struct {
	ID        string
	Token     string
	Role      Role
	Used      bool
	IssuedBy  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *ProvisionToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
