package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/api/dto"
	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/service"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// AuthHandler exposes credential and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Phone == "" || req.BiometricSample == "" {
		return apperrors.NewValidationError("phone and biometric_sample required", nil)
	}

	identity, token, exp, err := h.auth.Login(c.Context(), req.Phone, req.BiometricSample, c.IP())
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, fiber.Map{
		"identity": dto.NewIdentityResponse(identity),
		"auth":     dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	raw, ok := auth.RawTokenFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.Context(), raw); err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"message": "session revoked"})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := map[string]any{}
	if req.Token == "" {
		details["token"] = "required"
	}
	if req.Phone == "" {
		details["phone"] = "required"
	}
	if req.Name == "" {
		details["name"] = "required"
	}
	if req.BiometricSample == "" {
		details["biometric_sample"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("missing required fields", details)
	}

	identity, err := h.auth.Register(c.Context(), service.RegisterParams{
		Phone:           req.Phone,
		Name:            req.Name,
		Designation:     req.Designation,
		BiometricSample: req.BiometricSample,
		Token:           req.Token,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewIdentityResponse(identity))
}

// GenerateToken handles POST /auth/generate-token. Administrator only.
func (h *AuthHandler) GenerateToken(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.GenerateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	token, err := h.auth.GenerateToken(c.Context(), principal.Identity, req.Role)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.ProvisionTokenResponse{
		Token:     token.Token,
		Role:      token.Role,
		ExpiresAt: token.ExpiresAt,
	})
}

// VerifyToken handles GET /auth/verify-token/:token. A missing, used or
// expired token is a negative answer, not a request failure: the client
// polls this before showing the registration form.
func (h *AuthHandler) VerifyToken(c *fiber.Ctx) error {
	token, err := h.auth.VerifyProvisionToken(c.Context(), c.Params("token"))
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) &&
			(domainErr.Code == "NOT_FOUND" || domainErr.Code == "CONFLICT") {
			return respond(c, http.StatusOK, fiber.Map{
				"valid":  false,
				"reason": domainErr.Message,
			})
		}
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{
		"valid":      true,
		"role":       token.Role,
		"expires_at": token.ExpiresAt,
	})
}

// VerifyFingerprint handles POST /auth/verify-fingerprint. On a biometric
// match the caller receives a short-lived attestation proof for custody
// writes.
func (h *AuthHandler) VerifyFingerprint(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.VerifyFingerprintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.BiometricSample == "" {
		return apperrors.NewValidationError("biometric_sample required", nil)
	}

	proof, err := h.auth.IssueAttestation(c.Context(), principal.Identity, req.BiometricSample)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"attestation": proof})
}

// SealSample handles POST /auth/seal-sample. Seals a counterparty's captured
// sample into an attestation digest; the raw sample is never stored.
func (h *AuthHandler) SealSample(c *fiber.Ctx) error {
	var req dto.SealSampleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.BiometricSample == "" {
		return apperrors.NewValidationError("biometric_sample required", nil)
	}

	seal, err := h.auth.SealCounterpartySample(req.BiometricSample)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"seal": seal})
}
