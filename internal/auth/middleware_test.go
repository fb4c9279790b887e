package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/repository"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

type middlewareFixture struct {
	app      *fiber.App
	tokens   *TokenManager
	mem      *repository.Memory
	revoked  *MemoryRevocationStore
	identity *domain.Identity
}

func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()
	mem := repository.NewMemory()
	revoked := NewMemoryRevocationStore(time.Minute)
	t.Cleanup(revoked.Stop)

	identity := &domain.Identity{
		Phone:  "+2348011111111",
		Name:   "Field Acquirer",
		Role:   domain.RoleAcquisition,
		Active: true,
	}
	if err := mem.Identities().Create(context.Background(), identity); err != nil {
		t.Fatalf("create identity: %v", err)
	}

	tokens := NewTokenManager("test-secret", time.Hour, 5*time.Minute)
	mw := NewAuthMiddleware(tokens, mem.Identities(), revoked, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
		},
	})
	app.Get("/protected", mw.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.SendString(principal.Identity.ID)
	})

	return &middlewareFixture{app: app, tokens: tokens, mem: mem, revoked: revoked, identity: identity}
}

func (f *middlewareFixture) request(t *testing.T, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func (f *middlewareFixture) session(t *testing.T) (string, *SessionClaims) {
	t.Helper()
	token, claims, err := f.tokens.GenerateSession(f.identity)
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}
	return token, claims
}

func TestMiddlewareRejectsMissingAndMalformedTokens(t *testing.T) {
	f := newMiddlewareFixture(t)

	if status := f.request(t, ""); status != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d, want 401", status)
	}
	if status := f.request(t, "Token abc"); status != http.StatusUnauthorized {
		t.Fatalf("non-bearer scheme: got %d, want 401", status)
	}
	if status := f.request(t, "Bearer not-a-jwt"); status != http.StatusForbidden {
		t.Fatalf("garbage token: got %d, want 403", status)
	}
}

func TestMiddlewareAcceptsValidSession(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, _ := f.session(t)

	if status := f.request(t, "Bearer "+token); status != http.StatusOK {
		t.Fatalf("valid session: got %d, want 200", status)
	}
}

func TestMiddlewareRevocationIsImmediate(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, claims := f.session(t)

	if status := f.request(t, "Bearer "+token); status != http.StatusOK {
		t.Fatalf("before revocation: got %d, want 200", status)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := f.revoked.Add(context.Background(), claims.ID, ttl); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// The token itself is still within its validity window; the
	// revocation set alone must block it.
	if status := f.request(t, "Bearer "+token); status != http.StatusForbidden {
		t.Fatalf("after revocation: got %d, want 403", status)
	}

	other, _ := f.session(t)
	if status := f.request(t, "Bearer "+other); status != http.StatusOK {
		t.Fatalf("fresh session after revocation: got %d, want 200", status)
	}
}

func TestMiddlewareDeactivationCutsAccessMidSession(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, _ := f.session(t)
	ctx := context.Background()

	if status := f.request(t, "Bearer "+token); status != http.StatusOK {
		t.Fatalf("active account: got %d, want 200", status)
	}

	if err := f.mem.Identities().SetActive(ctx, f.identity.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if status := f.request(t, "Bearer "+token); status != http.StatusForbidden {
		t.Fatalf("deactivated account with live token: got %d, want 403", status)
	}

	if err := f.mem.Identities().SetActive(ctx, f.identity.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if status := f.request(t, "Bearer "+token); status != http.StatusOK {
		t.Fatalf("reactivated account: got %d, want 200", status)
	}
}
