package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/api/dto"
	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/service"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// TransportHandler exposes the haulage custody stage.
type TransportHandler struct {
	custody *service.CustodyService
}

// NewTransportHandler constructs handler.
func NewTransportHandler(custody *service.CustodyService) *TransportHandler {
	return &TransportHandler{custody: custody}
}

// Create handles POST /transports. Consumes the acquisition predecessor.
func (h *TransportHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTransportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.CreateTransport(c.Context(), principal.Identity, service.CreateTransportParams{
		AcquisitionID:       req.AcquisitionID,
		ReceiverName:        req.ReceiverName,
		ReceiverPhone:       req.ReceiverPhone,
		ReceiverDesignation: req.ReceiverDesignation,
		QuantityReceived:    req.QuantityReceived,
		TransportCost:       req.TransportCost,
		DriverName:          req.DriverName,
		DriverPhone:         req.DriverPhone,
		VehicleNumber:       req.VehicleNumber,
		BorderCrossing:      req.BorderCrossing,
		Attestations: service.Attestations{
			StaffProof:       req.StaffAttestation,
			CounterpartySeal: req.CounterpartyAttestation,
		},
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewTransportResponse(record))
}

// Get handles GET /transports/:id.
func (h *TransportHandler) Get(c *fiber.Ctx) error {
	record, err := h.custody.GetTransport(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTransportResponse(record))
}

// List handles GET /transports.
func (h *TransportHandler) List(c *fiber.Ctx) error {
	filter, err := parseRangeFilter(c)
	if err != nil {
		return err
	}
	records, err := h.custody.ListTransports(c.Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTransportResponses(records))
}

// Review handles PATCH /transports/:id/review.
func (h *TransportHandler) Review(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.custody.ReviewTransport(c.Context(), principal.Identity, c.Params("id"), req.Approve)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTransportResponse(record))
}

// Deliver handles PATCH /transports/:id/deliver.
func (h *TransportHandler) Deliver(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	record, err := h.custody.MarkTransportDelivered(c.Context(), principal.Identity, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTransportResponse(record))
}

// UpdateBorderCrossing handles PATCH /transports/:id/border-crossing.
func (h *TransportHandler) UpdateBorderCrossing(c *fiber.Ctx) error {
	var req dto.BorderCrossingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.custody.UpdateBorderCrossing(c.Context(), c.Params("id"), req.BorderCrossing)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTransportResponse(record))
}
