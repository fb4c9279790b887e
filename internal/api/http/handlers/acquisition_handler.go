package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/api/dto"
	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/service"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// AcquisitionHandler exposes the first custody stage.
type AcquisitionHandler struct {
	custody *service.CustodyService
}

// NewAcquisitionHandler constructs handler.
func NewAcquisitionHandler(custody *service.CustodyService) *AcquisitionHandler {
	return &AcquisitionHandler{custody: custody}
}

// Create handles POST /acquisitions.
func (h *AcquisitionHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateAcquisitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.CreateAcquisition(c.Context(), principal.Identity, service.CreateAcquisitionParams{
		SupplierName:    req.SupplierName,
		SupplierPhone:   req.SupplierPhone,
		Quantity:        req.Quantity,
		Unit:            req.Unit,
		Price:           req.Price,
		PaymentProofRef: req.PaymentProofRef,
		GoodsPhotoRefs:  req.GoodsPhotoRefs,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Attestations: service.Attestations{
			StaffProof:       req.StaffAttestation,
			CounterpartySeal: req.CounterpartyAttestation,
		},
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewAcquisitionResponse(record))
}

// Get handles GET /acquisitions/:id.
func (h *AcquisitionHandler) Get(c *fiber.Ctx) error {
	record, err := h.custody.GetAcquisition(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAcquisitionResponse(record))
}

// List handles GET /acquisitions.
func (h *AcquisitionHandler) List(c *fiber.Ctx) error {
	filter, err := parseRangeFilter(c)
	if err != nil {
		return err
	}
	records, err := h.custody.ListAcquisitions(c.Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAcquisitionResponses(records))
}

// Review handles PATCH /acquisitions/:id/review.
func (h *AcquisitionHandler) Review(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.ReviewAcquisition(c.Context(), principal.Identity, c.Params("id"), req.Approve)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAcquisitionResponse(record))
}

// Correct handles PATCH /acquisitions/:id/correct. Administrator only.
func (h *AcquisitionHandler) Correct(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CorrectionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.CorrectAcquisition(c.Context(), principal.Identity, c.Params("id"), req.Corrections)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAcquisitionResponse(record))
}
