package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/api/dto"
	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/service"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// ProcessingHandler exposes the factory custody stage.
type ProcessingHandler struct {
	custody *service.CustodyService
}

// NewProcessingHandler constructs handler.
func NewProcessingHandler(custody *service.CustodyService) *ProcessingHandler {
	return &ProcessingHandler{custody: custody}
}

// Create handles POST /processings. Consumes the transport predecessor.
func (h *ProcessingHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateProcessingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.CreateProcessing(c.Context(), principal.Identity, service.CreateProcessingParams{
		TransportID:       req.TransportID,
		QuantityProcessed: req.QuantityProcessed,
		OilExtracted:      req.OilExtracted,
		MealExtracted:     req.MealExtracted,
		ProcessingCost:    req.ProcessingCost,
		StartedAt:         req.StartedAt,
		EndedAt:           req.EndedAt,
		Quality: domain.QualityMetrics{
			MoistureContent: req.MoistureContent,
			FreeFattyAcid:   req.FreeFattyAcid,
		},
		Attestations: service.Attestations{
			StaffProof:       req.StaffAttestation,
			CounterpartySeal: req.CounterpartyAttestation,
		},
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewProcessingResponse(record))
}

// Get handles GET /processings/:id.
func (h *ProcessingHandler) Get(c *fiber.Ctx) error {
	record, err := h.custody.GetProcessing(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewProcessingResponse(record))
}

// List handles GET /processings.
func (h *ProcessingHandler) List(c *fiber.Ctx) error {
	filter, err := parseRangeFilter(c)
	if err != nil {
		return err
	}
	records, err := h.custody.ListProcessings(c.Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewProcessingResponses(records))
}

// Review handles PATCH /processings/:id/review.
func (h *ProcessingHandler) Review(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.ReviewProcessing(c.Context(), principal.Identity, c.Params("id"), req.Approve)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewProcessingResponse(record))
}

// Package handles PATCH /processings/:id/package.
func (h *ProcessingHandler) Package(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	record, err := h.custody.MarkProcessingPackaged(c.Context(), principal.Identity, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewProcessingResponse(record))
}

// UpdateQuality handles PATCH /processings/:id/quality.
func (h *ProcessingHandler) UpdateQuality(c *fiber.Ctx) error {
	var req dto.QualityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.custody.UpdateQuality(c.Context(), c.Params("id"), domain.QualityMetrics{
		MoistureContent: req.MoistureContent,
		FreeFattyAcid:   req.FreeFattyAcid,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewProcessingResponse(record))
}
