package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/api/dto"
	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/repository"
	"github.com/spec-kit/custody-service/internal/service"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// DisposalHandler exposes the final custody stage.
type DisposalHandler struct {
	custody *service.CustodyService
}

// NewDisposalHandler constructs handler.
func NewDisposalHandler(custody *service.CustodyService) *DisposalHandler {
	return &DisposalHandler{custody: custody}
}

// Create handles POST /disposals. Draws product down from the processing
// batch.
func (h *DisposalHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateDisposalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.CreateDisposal(c.Context(), principal.Identity, service.CreateDisposalParams{
		ProcessingID:    req.ProcessingID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		ProductType:     req.ProductType,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
		Attestations: service.Attestations{
			StaffProof:       req.StaffAttestation,
			CounterpartySeal: req.CounterpartyAttestation,
		},
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewDisposalResponse(record))
}

// Get handles GET /disposals/:id.
func (h *DisposalHandler) Get(c *fiber.Ctx) error {
	record, err := h.custody.GetDisposal(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDisposalResponse(record))
}

// List handles GET /disposals. Supports an optional product_type filter on
// top of the shared range parameters.
func (h *DisposalHandler) List(c *fiber.Ctx) error {
	rangeFilter, err := parseRangeFilter(c)
	if err != nil {
		return err
	}
	filter := repository.DisposalFilter{RangeFilter: rangeFilter}
	if raw := c.Query("product_type"); raw != "" {
		productType := domain.ProductType(raw)
		switch productType {
		case domain.ProductOil, domain.ProductMeal, domain.ProductBoth:
		default:
			return apperrors.NewValidationError("unknown product type", map[string]any{"product_type": raw})
		}
		filter.ProductType = &productType
	}

	records, err := h.custody.ListDisposals(c.Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDisposalResponses(records))
}

// Fulfil handles PATCH /disposals/:id/fulfil.
func (h *DisposalHandler) Fulfil(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	record, err := h.custody.FulfilDisposal(c.Context(), principal.Identity, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDisposalResponse(record))
}

// Cancel handles PATCH /disposals/:id/cancel.
func (h *DisposalHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	record, err := h.custody.CancelDisposal(c.Context(), principal.Identity, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDisposalResponse(record))
}

// UpdatePayment handles PATCH /disposals/:id/payment.
func (h *DisposalHandler) UpdatePayment(c *fiber.Ctx) error {
	var req dto.PaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.custody.UpdatePaymentStatus(c.Context(), c.Params("id"), req.PaymentStatus)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDisposalResponse(record))
}
