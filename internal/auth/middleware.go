package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/repository"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

const principalKey = "auth_principal"
const rawTokenKey = "auth_raw_token"

// Principal represents the authenticated caller.
type Principal struct {
	Identity *domain.Identity
	Claims   *SessionClaims
}

// AuthMiddleware validates bearer sessions and loads principals.
type AuthMiddleware struct {
	tokens     *TokenManager
	identities repository.IdentityRepository
	revoked    RevocationStore
	logger     *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, identities repository.IdentityRepository, revoked RevocationStore, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, identities: identities, revoked: revoked, logger: logger}
}

// Handle enforces authentication for protected routes. Order matters:
// signature/expiry, then revocation, then an identity re-check so a
// deactivated account loses access mid-session.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("access token missing")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseSession(parts[1])
	if err != nil {
		if err == ErrTokenExpired {
			return apperrors.NewForbidden("session expired")
		}
		return apperrors.NewForbidden("invalid session token")
	}

	revoked, err := m.revoked.Contains(c.Context(), claims.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if revoked {
		m.logger.Warn("revoked session presented",
			zap.String("identity_id", claims.IdentityID),
			zap.String("ip", c.IP()))
		return apperrors.NewForbidden("session revoked")
	}

	identity, err := m.identities.GetByID(c.Context(), claims.IdentityID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewForbidden("identity no longer exists")
		}
		return apperrors.MapError(err)
	}
	if !identity.Active {
		m.logger.Warn("inactive account presented valid session",
			zap.String("identity_id", identity.ID),
			zap.String("ip", c.IP()))
		return apperrors.NewForbidden("account not active")
	}

	c.Locals(principalKey, &Principal{Identity: identity, Claims: claims})
	c.Locals(rawTokenKey, parts[1])
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RawTokenFromContext retrieves the bearer value presented on this request.
func RawTokenFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(rawTokenKey)
	if val == nil {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}
