package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/config"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/events"
	"github.com/spec-kit/custody-service/internal/repository"
	"github.com/spec-kit/custody-service/internal/service"
)

type verifyTokenFixture struct {
	app   *fiber.App
	svc   *service.AuthService
	admin *domain.Identity
}

func newVerifyTokenFixture(t *testing.T) *verifyTokenFixture {
	t.Helper()
	mem := repository.NewMemory()
	revoked := auth.NewMemoryRevocationStore(time.Minute)
	t.Cleanup(revoked.Stop)

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:              "test-secret",
			SessionTTLHours:        1,
			ProvisionTokenTTLHours: 1,
			AttestationTTLMinutes:  5,
			BcryptCost:             bcrypt.MinCost,
		},
	}
	svc := service.NewAuthService(cfg, service.AuthDependencies{
		IdentityRepo:       mem.Identities(),
		ProvisionTokenRepo: mem.ProvisionTokens(),
		RevocationStore:    revoked,
		Dispatcher:         events.NewInMemoryDispatcher(),
		Logger:             zap.NewNop(),
	})

	admin := &domain.Identity{
		Phone:  "+2348000000000",
		Name:   "Root Admin",
		Role:   domain.RoleAdministrator,
		Active: true,
	}
	if err := mem.Identities().Create(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	handler := NewAuthHandler(svc)
	app := fiber.New()
	app.Get("/auth/verify-token/:token", handler.VerifyToken)

	return &verifyTokenFixture{app: app, svc: svc, admin: admin}
}

type verifyTokenBody struct {
	Success bool `json:"success"`
	Data    struct {
		Valid  bool   `json:"valid"`
		Role   string `json:"role"`
		Reason string `json:"reason"`
	} `json:"data"`
}

func (f *verifyTokenFixture) verify(t *testing.T, token string) (int, verifyTokenBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/verify-token/"+token, nil)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var body verifyTokenBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp.StatusCode, body
}

func TestVerifyTokenReportsLiveToken(t *testing.T) {
	f := newVerifyTokenFixture(t)
	ctx := context.Background()

	token, err := f.svc.GenerateToken(ctx, f.admin, domain.RoleTransport)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	status, body := f.verify(t, token.Token)
	if status != http.StatusOK {
		t.Fatalf("status: got %d, want 200", status)
	}
	if !body.Data.Valid {
		t.Fatal("live token should verify as valid")
	}
	if body.Data.Role != string(domain.RoleTransport) {
		t.Fatalf("role: got %q, want %q", body.Data.Role, domain.RoleTransport)
	}
}

func TestVerifyTokenAnswersInvalidWithoutFailing(t *testing.T) {
	f := newVerifyTokenFixture(t)
	ctx := context.Background()

	status, body := f.verify(t, "no-such-token")
	if status != http.StatusOK {
		t.Fatalf("unknown token status: got %d, want 200", status)
	}
	if body.Data.Valid {
		t.Fatal("unknown token should verify as invalid")
	}

	token, err := f.svc.GenerateToken(ctx, f.admin, domain.RoleAcquisition)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := f.svc.Register(ctx, service.RegisterParams{
		Phone:           "+2348011112222",
		Name:            "New Acquirer",
		BiometricSample: "fresh-sample",
		Token:           token.Token,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	status, body = f.verify(t, token.Token)
	if status != http.StatusOK {
		t.Fatalf("consumed token status: got %d, want 200", status)
	}
	if body.Data.Valid {
		t.Fatal("consumed token should verify as invalid")
	}
	if body.Data.Reason == "" {
		t.Fatal("invalid verdict should carry a reason")
	}
}
