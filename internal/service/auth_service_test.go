package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/config"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/events"
	"github.com/spec-kit/custody-service/internal/repository"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:              "test-secret",
			SessionTTLHours:        1,
			ProvisionTokenTTLHours: 1,
			AttestationTTLMinutes:  5,
			BcryptCost:             bcrypt.MinCost,
		},
	}
}

type authFixture struct {
	svc     *AuthService
	mem     *repository.Memory
	revoked *auth.MemoryRevocationStore
	admin   *domain.Identity
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mem := repository.NewMemory()
	revoked := auth.NewMemoryRevocationStore(time.Minute)
	t.Cleanup(revoked.Stop)

	svc := NewAuthService(testConfig(), AuthDependencies{
		IdentityRepo:       mem.Identities(),
		ProvisionTokenRepo: mem.ProvisionTokens(),
		RevocationStore:    revoked,
		Dispatcher:         events.NewInMemoryDispatcher(),
		Logger:             zap.NewNop(),
	})

	hash, err := auth.HashSample("admin-sample", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash sample: %v", err)
	}
	admin := &domain.Identity{
		Phone:         "+2348000000000",
		Name:          "Root Admin",
		Role:          domain.RoleAdministrator,
		BiometricHash: hash,
		Active:        true,
	}
	if err := mem.Identities().Create(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &authFixture{svc: svc, mem: mem, revoked: revoked, admin: admin}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("code = %s, want %s (message: %s)", domainErr.Code, code, domainErr.Message)
	}
}

func TestGenerateTokenRequiresAdministrator(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	staff := &domain.Identity{ID: "x", Role: domain.RoleAcquisition, Active: true}
	_, err := f.svc.GenerateToken(ctx, staff, domain.RoleTransport)
	assertCode(t, err, "FORBIDDEN")

	token, err := f.svc.GenerateToken(ctx, f.admin, domain.RoleTransport)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token.Role != domain.RoleTransport {
		t.Fatalf("role = %s, want TRANSPORT", token.Role)
	}
	if token.Token == "" {
		t.Fatal("expected a token value")
	}
}

func TestGenerateTokenRejectsUnprovisionableRole(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.GenerateToken(context.Background(), f.admin, domain.RoleStaff)
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestRegisterHappyPath(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	token, err := f.svc.GenerateToken(ctx, f.admin, domain.RoleAcquisition)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	identity, err := f.svc.Register(ctx, RegisterParams{
		Phone:           "+2348000000001",
		Name:            "Field Buyer",
		Designation:     "Buyer",
		BiometricSample: "buyer-sample",
		Token:           token.Token,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if identity.Role != domain.RoleAcquisition {
		t.Fatalf("role = %s, want role from token", identity.Role)
	}
	if !identity.Active {
		t.Fatal("new identity should be active")
	}
	if identity.BiometricHash == "buyer-sample" {
		t.Fatal("raw sample stored as hash")
	}
}

func TestRegisterTokenSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	token, err := f.svc.GenerateToken(ctx, f.admin, domain.RoleTransport)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, results[n] = f.svc.Register(ctx, RegisterParams{
				Phone:           "+234800000010" + string(rune('0'+n)),
				Name:            "Hauler",
				BiometricSample: "hauler-sample",
				Token:           token.Token,
			})
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}

	// A later attempt reports the token as consumed, not missing.
	_, err = f.svc.Register(ctx, RegisterParams{
		Phone:           "+2348000000199",
		Name:            "Late Hauler",
		BiometricSample: "late-sample",
		Token:           token.Token,
	})
	assertCode(t, err, "CONFLICT")
}

func TestRegisterUnknownToken(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterParams{
		Phone:           "+2348000000002",
		Name:            "Nobody",
		BiometricSample: "sample",
		Token:           "does-not-exist",
	})
	assertCode(t, err, "NOT_FOUND")
}

func TestRegisterExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	expired := &domain.ProvisionToken{
		Token:     "expired-token",
		Role:      domain.RoleDisposal,
		IssuedBy:  f.admin.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := f.mem.ProvisionTokens().Create(ctx, expired); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	_, err := f.svc.Register(ctx, RegisterParams{
		Phone:           "+2348000000003",
		Name:            "Too Late",
		BiometricSample: "sample",
		Token:           expired.Token,
	})
	assertCode(t, err, "CONFLICT")
}

func TestRegisterDuplicatePhone(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	token, _ := f.svc.GenerateToken(ctx, f.admin, domain.RoleProcessing)
	_, err := f.svc.Register(ctx, RegisterParams{
		Phone:           f.admin.Phone,
		Name:            "Imposter",
		BiometricSample: "sample",
		Token:           token.Token,
	})
	assertCode(t, err, "CONFLICT")

	// The pre-check fails before redemption, so the token survives.
	if _, err := f.svc.VerifyProvisionToken(ctx, token.Token); err != nil {
		t.Fatalf("token should still be redeemable: %v", err)
	}
}

func TestVerifyProvisionToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	token, _ := f.svc.GenerateToken(ctx, f.admin, domain.RoleDisposal)
	peeked, err := f.svc.VerifyProvisionToken(ctx, token.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if peeked.Role != domain.RoleDisposal {
		t.Fatalf("role = %s, want DISPOSAL", peeked.Role)
	}
	if peeked.Used {
		t.Fatal("verification must not consume the token")
	}

	_, err = f.svc.VerifyProvisionToken(ctx, "missing")
	assertCode(t, err, "NOT_FOUND")

	_, err = f.svc.Register(ctx, RegisterParams{
		Phone: "+2348000000004", Name: "Seller", BiometricSample: "s", Token: token.Token,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = f.svc.VerifyProvisionToken(ctx, token.Token)
	assertCode(t, err, "CONFLICT")
}

func TestLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	identity, token, exp, err := f.svc.Login(ctx, f.admin.Phone, "admin-sample", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if identity.ID != f.admin.ID {
		t.Fatalf("identity = %s, want %s", identity.ID, f.admin.ID)
	}
	if !exp.After(time.Now()) {
		t.Fatal("session expiry must be in the future")
	}
	claims, err := f.svc.SessionManager().ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if claims.Role != domain.RoleAdministrator {
		t.Fatalf("role claim = %s, want ADMINISTRATOR", claims.Role)
	}

	stored, err := f.mem.Identities().GetByID(ctx, f.admin.ID)
	if err != nil {
		t.Fatalf("reload identity: %v", err)
	}
	if stored.LastLoginIP == nil || *stored.LastLoginIP != "10.0.0.1" {
		t.Fatal("login ip not recorded")
	}

	_, _, _, err = f.svc.Login(ctx, f.admin.Phone, "wrong-sample", "10.0.0.1")
	assertCode(t, err, "BIOMETRIC_MISMATCH")

	_, _, _, err = f.svc.Login(ctx, "+2348099999999", "admin-sample", "10.0.0.1")
	assertCode(t, err, "NOT_FOUND")
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SetIdentityActive(ctx, f.admin.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, _, _, err := f.svc.Login(ctx, f.admin.Phone, "admin-sample", "10.0.0.1")
	assertCode(t, err, "FORBIDDEN")

	if _, err := f.svc.SetIdentityActive(ctx, f.admin.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if _, _, _, err := f.svc.Login(ctx, f.admin.Phone, "admin-sample", "10.0.0.1"); err != nil {
		t.Fatalf("login after reactivation: %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, token, _, err := f.svc.Login(ctx, f.admin.Phone, "admin-sample", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := f.svc.SessionManager().ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}

	if err := f.svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoked, err := f.revoked.Contains(ctx, claims.ID)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !revoked {
		t.Fatal("session jti not in revocation set")
	}

	// Logging out twice is a no-op.
	if err := f.svc.Logout(ctx, token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestIssueAttestation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	proof, err := f.svc.IssueAttestation(ctx, f.admin, "admin-sample")
	if err != nil {
		t.Fatalf("issue attestation: %v", err)
	}
	claims, err := f.svc.SessionManager().ParseAttestation(proof)
	if err != nil {
		t.Fatalf("parse attestation: %v", err)
	}
	if claims.IdentityID != f.admin.ID {
		t.Fatalf("subject = %s, want %s", claims.IdentityID, f.admin.ID)
	}

	_, err = f.svc.IssueAttestation(ctx, f.admin, "wrong-sample")
	assertCode(t, err, "BIOMETRIC_MISMATCH")
}
