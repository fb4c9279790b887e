package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/custody-service/internal/domain"
)

// Token purposes. Sessions authenticate requests; attestations prove a
// biometric check passed moments ago.
const (
	purposeSession     = "session"
	purposeAttestation = "attestation"
)

var (
	// ErrTokenInvalid covers malformed or tampered tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired marks tokens past their expiry. Terminal; no renewal.
	ErrTokenExpired = errors.New("token expired")
)

// TokenManager issues and validates signed session and attestation tokens.
type TokenManager struct {
	secret         []byte
	sessionTTL     time.Duration
	attestationTTL time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, sessionTTL, attestationTTL time.Duration) *TokenManager {
	if sessionTTL <= 0 {
		sessionTTL = 8 * time.Hour
	}
	if attestationTTL <= 0 {
		attestationTTL = 15 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), sessionTTL: sessionTTL, attestationTTL: attestationTTL}
}

// SessionClaims describes the session JWT payload. The jti (RegisteredClaims
// ID) keys the revocation set.
type SessionClaims struct {
	IdentityID string      `json:"sub"`
	Role       domain.Role `json:"role"`
	Purpose    string      `json:"purpose"`
	jwt.RegisteredClaims
}

// AttestationClaims describes a verified-biometric proof payload.
type AttestationClaims struct {
	IdentityID string `json:"sub"`
	Purpose    string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateSession builds and signs a session token for the identity.
func (tm *TokenManager) GenerateSession(identity *domain.Identity) (string, *SessionClaims, error) {
	now := time.Now()
	claims := &SessionClaims{
		IdentityID: identity.ID,
		Role:       identity.Role,
		Purpose:    purposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, claims, nil
}

// ParseSession validates signature and expiry and returns session claims.
func (tm *TokenManager) ParseSession(tokenStr string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, tm.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Purpose != purposeSession {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateAttestation signs a short-lived proof that the identity passed a
// biometric comparison. The proof carries no biometric data.
func (tm *TokenManager) GenerateAttestation(identityID string) (string, error) {
	now := time.Now()
	claims := &AttestationClaims{
		IdentityID: identityID,
		Purpose:    purposeAttestation,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identityID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.attestationTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ParseAttestation validates an attestation proof and returns its claims.
func (tm *TokenManager) ParseAttestation(tokenStr string) (*AttestationClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &AttestationClaims{}, tm.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*AttestationClaims)
	if !ok || !parsed.Valid || claims.Purpose != purposeAttestation {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// SessionTTL returns the configured session lifetime.
func (tm *TokenManager) SessionTTL() time.Duration {
	return tm.sessionTTL
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return tm.secret, nil
}
