package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/api/dto"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/observability"
	"github.com/spec-kit/custody-service/internal/repository"
	"github.com/spec-kit/custody-service/internal/service"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// AdminHandler exposes the administrator surface: staff management, chain
// reports and system metrics.
type AdminHandler struct {
	auth    *service.AuthService
	custody *service.CustodyService
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, custody *service.CustodyService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{auth: authService, custody: custody, metrics: metrics}
}

// ListIdentities handles GET /admin/identities.
func (h *AdminHandler) ListIdentities(c *fiber.Ctx) error {
	filter := repository.IdentityFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if raw := c.Query("role"); raw != "" {
		role := domain.Role(raw)
		if !role.Valid() {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": raw})
		}
		filter.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewValidationError("active must be a boolean", map[string]any{"active": raw})
		}
		filter.Active = &active
	}

	identities, err := h.auth.ListIdentities(c.Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewIdentityResponses(identities))
}

// SetIdentityActive handles PATCH /admin/identities/:id/active.
func (h *AdminHandler) SetIdentityActive(c *fiber.Ctx) error {
	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	identity, err := h.auth.SetIdentityActive(c.Context(), c.Params("id"), req.Active)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewIdentityResponse(identity))
}

// ChainOfCustody handles GET /admin/chain/:acquisitionId.
func (h *AdminHandler) ChainOfCustody(c *fiber.Ctx) error {
	chain, err := h.custody.TraceChain(c.Context(), c.Params("acquisitionId"))
	if err != nil {
		return err
	}

	response := dto.ChainOfCustodyResponse{
		Acquisition: dto.NewAcquisitionResponse(chain.Acquisition),
		Complete:    chain.Complete,
	}
	if chain.Transport != nil {
		transport := dto.NewTransportResponse(chain.Transport)
		response.Transport = &transport
	}
	if chain.Processing != nil {
		processing := dto.NewProcessingResponse(chain.Processing)
		response.Processing = &processing
	}
	if len(chain.Disposals) > 0 {
		response.Disposals = dto.NewDisposalResponses(chain.Disposals)
	}
	return respond(c, http.StatusOK, response)
}

// Metrics handles GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	requests, errorCounts := h.metrics.Snapshot()
	return respond(c, http.StatusOK, fiber.Map{
		"requests": requests,
		"errors":   errorCounts,
	})
}
