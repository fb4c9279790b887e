package dto

import (
	"time"

	"github.com/spec-kit/custody-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Phone           string `json:"phone"`
	BiometricSample string `json:"biometric_sample"`
}

// RegisterRequest payload. Token is the one-time provisioning token.
type RegisterRequest struct {
	Token           string `json:"token"`
	Phone           string `json:"phone"`
	Name            string `json:"name"`
	Designation     string `json:"designation"`
	BiometricSample string `json:"biometric_sample"`
}

// GenerateTokenRequest payload.
type GenerateTokenRequest struct {
	Role domain.Role `json:"role"`
}

// VerifyFingerprintRequest payload.
type VerifyFingerprintRequest struct {
	BiometricSample string `json:"biometric_sample"`
}

// SealSampleRequest payload for counterparty capture.
type SealSampleRequest struct {
	BiometricSample string `json:"biometric_sample"`
}

// AuthResponse carries an issued bearer session.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProvisionTokenResponse describes an issued or inspected token.
type ProvisionTokenResponse struct {
	Token     string      `json:"token"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// IdentityResponse is the safe view of an identity. The biometric hash is
// deliberately absent.
type IdentityResponse struct {
	ID          string      `json:"id"`
	Phone       string      `json:"phone"`
	Name        string      `json:"name"`
	Role        domain.Role `json:"role"`
	Designation string      `json:"designation,omitempty"`
	Active      bool        `json:"active"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewIdentityResponse maps a domain identity to its safe view.
func NewIdentityResponse(identity *domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:          identity.ID,
		Phone:       identity.Phone,
		Name:        identity.Name,
		Role:        identity.Role,
		Designation: identity.Designation,
		Active:      identity.Active,
		LastLoginAt: identity.LastLoginAt,
		CreatedAt:   identity.CreatedAt,
	}
}

// NewIdentityResponses maps a slice of identities.
func NewIdentityResponses(identities []domain.Identity) []IdentityResponse {
	out := make([]IdentityResponse, len(identities))
	for i := range identities {
		out[i] = NewIdentityResponse(&identities[i])
	}
	return out
}
