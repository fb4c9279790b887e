package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/config"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/events"
	"github.com/spec-kit/custody-service/internal/repository"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// AuthService coordinates provisioning, registration, login and session
// lifecycle.
type AuthService struct {
	identities   repository.IdentityRepository
	tokens       repository.ProvisionTokenRepository
	sessions     *auth.TokenManager
	revoked      auth.RevocationStore
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	bcryptCost   int
	provisionTTL time.Duration
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	IdentityRepo       repository.IdentityRepository
	ProvisionTokenRepo repository.ProvisionTokenRepository
	RevocationStore    auth.RevocationStore
	Dispatcher         events.Dispatcher
	Logger             *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		identities:   deps.IdentityRepo,
		tokens:       deps.ProvisionTokenRepo,
		sessions:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL(), cfg.Auth.AttestationTTL()),
		revoked:      deps.RevocationStore,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		bcryptCost:   cfg.Auth.BcryptCost,
		provisionTTL: cfg.Auth.ProvisionTokenTTL(),
	}
}

// GenerateToken mints a one-time, role-scoped provisioning token. The route
// is administrator-gated; the re-check here is defensive in case the gate is
// ever bypassed.
func (s *AuthService) GenerateToken(ctx context.Context, issuer *domain.Identity, role domain.Role) (*domain.ProvisionToken, error) {
	if issuer == nil || issuer.Role != domain.RoleAdministrator {
		return nil, apperrors.NewForbidden("administrator role required to issue tokens")
	}
	if !role.Provisionable() {
		return nil, apperrors.NewValidationError("role cannot be provisioned", map[string]any{"role": role})
	}

	token := &domain.ProvisionToken{
		Token:     uuid.NewString(),
		Role:      role,
		IssuedBy:  issuer.ID,
		ExpiresAt: time.Now().Add(s.provisionTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	return token, nil
}

// VerifyProvisionToken reports whether a token is still redeemable and for
// which role. Read-only; does not consume the token.
func (s *AuthService) VerifyProvisionToken(ctx context.Context, value string) (*domain.ProvisionToken, error) {
	token, err := s.tokens.GetByToken(ctx, value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("provisioning token", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if token.Used {
		return nil, apperrors.NewConflict("provisioning token already used", nil)
	}
	if token.Expired(time.Now()) {
		return nil, apperrors.NewConflict("provisioning token expired", nil)
	}
	return token, nil
}

// RegisterParams carries staff registration input.
type RegisterParams struct {
	Phone           string
	Name            string
	Designation     string
	BiometricSample string
	Token           string
}

// Register creates a staff identity, consuming exactly one provisioning
// token. The token redemption is an atomic check-and-set: of two concurrent
// redeemers exactly one wins.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*domain.Identity, error) {
	if _, err := s.identities.GetByPhone(ctx, params.Phone); err == nil {
		return nil, apperrors.NewConflict("identity already exists for phone", nil)
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	token, err := s.tokens.Redeem(ctx, params.Token, time.Now())
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, s.classifyRedeemMiss(ctx, params.Token)
		}
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashSample(params.BiometricSample, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	identity := &domain.Identity{
		Phone:         params.Phone,
		Name:          params.Name,
		Role:          token.Role,
		Designation:   params.Designation,
		BiometricHash: hash,
		Active:        true,
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		// The token is already burned at this point; surface the failure
		// rather than silently resurrecting it.
		s.logger.Warn("identity create failed after token redemption",
			zap.String("token_id", token.ID), zap.Error(err))
		if err == repository.ErrDuplicate {
			return nil, apperrors.NewConflict("identity already exists for phone", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventIdentityRegistered, identity.ID, identity.ID, events.IdentityRegisteredPayload{
		Phone: identity.Phone,
		Role:  identity.Role,
	})
	return identity, nil
}

func (s *AuthService) classifyRedeemMiss(ctx context.Context, value string) error {
	token, err := s.tokens.GetByToken(ctx, value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("provisioning token", nil)
		}
		return apperrors.MapError(err)
	}
	if token.Used {
		return apperrors.NewConflict("provisioning token already used", nil)
	}
	return apperrors.NewConflict("provisioning token expired", nil)
}

// Login authenticates a phone + biometric sample pair and issues a session.
func (s *AuthService) Login(ctx context.Context, phone, sample, ip string) (*domain.Identity, string, time.Time, error) {
	identity, err := s.identities.GetByPhone(ctx, phone)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.logger.Warn("login attempt for unknown contact", zap.String("ip", ip))
			return nil, "", time.Time{}, apperrors.NewNotFound("identity", nil)
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !identity.Active {
		s.logger.Warn("login attempt on inactive account",
			zap.String("identity_id", identity.ID), zap.String("ip", ip))
		return nil, "", time.Time{}, apperrors.NewForbidden("account not active")
	}
	if err := auth.CompareSample(identity.BiometricHash, sample); err != nil {
		s.logger.Warn("biometric mismatch at login",
			zap.String("identity_id", identity.ID), zap.String("ip", ip))
		return nil, "", time.Time{}, apperrors.NewBiometricMismatch()
	}

	token, claims, err := s.sessions.GenerateSession(identity)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	if err := s.identities.RecordLogin(ctx, identity.ID, ip, time.Now()); err != nil {
		// Login bookkeeping is best effort; the session is already valid.
		s.logger.Warn("failed to record login", zap.String("identity_id", identity.ID), zap.Error(err))
	}

	return identity, token, claims.ExpiresAt.Time, nil
}

// Logout revokes the presented session until its natural expiry. Idempotent;
// revoking an already-revoked or expired session is a no-op.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.sessions.ParseSession(rawToken)
	if err != nil {
		if err == auth.ErrTokenExpired {
			return nil
		}
		return apperrors.NewForbidden("invalid session token")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoked.Add(ctx, claims.ID, ttl); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// IssueAttestation compares a fresh sample against the caller's stored hash
// and, on match, returns a short-lived signed proof for custody hand-offs.
func (s *AuthService) IssueAttestation(ctx context.Context, identity *domain.Identity, sample string) (string, error) {
	if err := auth.CompareSample(identity.BiometricHash, sample); err != nil {
		s.logger.Warn("biometric mismatch at attestation",
			zap.String("identity_id", identity.ID))
		return "", apperrors.NewBiometricMismatch()
	}
	proof, err := s.sessions.GenerateAttestation(identity.ID)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return proof, nil
}

// SetIdentityActive toggles an account. Deactivation cuts access on the next
// authenticated request because the middleware re-checks the flag.
func (s *AuthService) SetIdentityActive(ctx context.Context, id string, active bool) (*domain.Identity, error) {
	if err := s.identities.SetActive(ctx, id, active); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("identity", nil)
		}
		return nil, apperrors.MapError(err)
	}
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return identity, nil
}

// ListIdentities returns identities for the admin surface.
func (s *AuthService) ListIdentities(ctx context.Context, filter repository.IdentityFilter) ([]domain.Identity, error) {
	identities, err := s.identities.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return identities, nil
}

// SealCounterpartySample hashes a counterparty's captured sample into an
// attestation digest without retaining the sample.
func (s *AuthService) SealCounterpartySample(sample string) (string, error) {
	seal, err := auth.SealCounterparty(sample, s.bcryptCost)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return seal, nil
}

// SessionManager exposes the underlying token manager for middleware usage.
func (s *AuthService) SessionManager() *auth.TokenManager {
	return s.sessions
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, recordID, actorID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RecordID:  recordID,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
