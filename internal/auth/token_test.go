package auth

import (
	"testing"
	"time"

	"github.com/spec-kit/custody-service/internal/domain"
)

func testIdentity() *domain.Identity {
	return &domain.Identity{
		ID:     "11111111-1111-1111-1111-111111111111",
		Phone:  "+2348000000001",
		Name:   "Test Staff",
		Role:   domain.RoleAcquisition,
		Active: true,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, time.Minute)
	identity := testIdentity()

	token, claims, err := tm.GenerateSession(identity)
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti on session claims")
	}

	parsed, err := tm.ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if parsed.IdentityID != identity.ID {
		t.Fatalf("subject = %q, want %q", parsed.IdentityID, identity.ID)
	}
	if parsed.Role != identity.Role {
		t.Fatalf("role = %q, want %q", parsed.Role, identity.Role)
	}
	if parsed.ID != claims.ID {
		t.Fatalf("jti = %q, want %q", parsed.ID, claims.ID)
	}
}

func TestSessionExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Nanosecond, time.Minute)
	token, _, err := tm.GenerateSession(testIdentity())
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := tm.ParseSession(token); err != ErrTokenExpired {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestSessionRejectsTampering(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, time.Minute)
	other := NewTokenManager("different-secret", time.Hour, time.Minute)

	token, _, err := other.GenerateSession(testIdentity())
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}
	if _, err := tm.ParseSession(token); err != ErrTokenInvalid {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
	if _, err := tm.ParseSession("not-a-token"); err != ErrTokenInvalid {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestAttestationPurposeIsolation(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, time.Minute)
	identity := testIdentity()

	proof, err := tm.GenerateAttestation(identity.ID)
	if err != nil {
		t.Fatalf("generate attestation: %v", err)
	}

	claims, err := tm.ParseAttestation(proof)
	if err != nil {
		t.Fatalf("parse attestation: %v", err)
	}
	if claims.IdentityID != identity.ID {
		t.Fatalf("subject = %q, want %q", claims.IdentityID, identity.ID)
	}

	// An attestation proof must never pass as a session, nor the reverse.
	if _, err := tm.ParseSession(proof); err == nil {
		t.Fatal("attestation accepted as session")
	}
	session, _, err := tm.GenerateSession(identity)
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}
	if _, err := tm.ParseAttestation(session); err == nil {
		t.Fatal("session accepted as attestation")
	}
}
