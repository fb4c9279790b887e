package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/events"
	"github.com/spec-kit/custody-service/internal/repository"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// CustodyService owns the four-stage custody ledger: acquisition, transport,
// processing, disposal. Every create requires a dual attestation and consumes
// (or draws down) its predecessor atomically.
type CustodyService struct {
	acquisitions repository.AcquisitionRepository
	transports   repository.TransportRepository
	processings  repository.ProcessingRepository
	disposals    repository.DisposalRepository
	tokens       *auth.TokenManager
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// CustodyDependencies encapsulates requirements for the custody service.
type CustodyDependencies struct {
	AcquisitionRepo repository.AcquisitionRepository
	TransportRepo   repository.TransportRepository
	ProcessingRepo  repository.ProcessingRepository
	DisposalRepo    repository.DisposalRepository
	TokenManager    *auth.TokenManager
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// NewCustodyService builds the service.
func NewCustodyService(deps CustodyDependencies) *CustodyService {
	return &CustodyService{
		acquisitions: deps.AcquisitionRepo,
		transports:   deps.TransportRepo,
		processings:  deps.ProcessingRepo,
		disposals:    deps.DisposalRepo,
		tokens:       deps.TokenManager,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
	}
}

// Attestations carries the dual biometric proofs presented with every custody
// write: a signed staff proof and the counterparty's sealed sample digest.
type Attestations struct {
	StaffProof       string
	CounterpartySeal string
}

// validate checks the attestation pair structurally. The staff proof must be
// a live attestation issued to the acting staff member; the counterparty seal
// must be a well-formed digest. The ledger never re-runs a biometric
// comparison here.
func (s *CustodyService) validate(att Attestations, staffID string) error {
	claims, err := s.tokens.ParseAttestation(att.StaffProof)
	if err != nil {
		if err == auth.ErrTokenExpired {
			return apperrors.NewForbidden("staff attestation expired")
		}
		return apperrors.NewForbidden("invalid staff attestation")
	}
	if claims.IdentityID != staffID {
		s.logger.Warn("attestation subject mismatch",
			zap.String("staff_id", staffID),
			zap.String("attested_id", claims.IdentityID))
		return apperrors.NewForbidden("attestation was not issued to the acting staff member")
	}
	if !auth.ValidSeal(att.CounterpartySeal) {
		return apperrors.NewValidationError("counterparty attestation is not a valid seal", nil)
	}
	return nil
}

// -------- acquisition --------

// CreateAcquisitionParams carries acquisition stage input.
type CreateAcquisitionParams struct {
	SupplierName    string
	SupplierPhone   string
	Quantity        float64
	Unit            domain.QuantityUnit
	Price           float64
	PaymentProofRef string
	GoodsPhotoRefs  []string
	Latitude        float64
	Longitude       float64
	Attestations    Attestations
}

// CreateAcquisition opens a new custody chain.
func (s *CustodyService) CreateAcquisition(ctx context.Context, actor *domain.Identity, params CreateAcquisitionParams) (*domain.AcquisitionRecord, error) {
	details := map[string]any{}
	if params.SupplierName == "" {
		details["supplier_name"] = "required"
	}
	if params.Quantity <= 0 {
		details["quantity"] = "must be positive"
	}
	if params.Price < 0 {
		details["price"] = "must not be negative"
	}
	switch params.Unit {
	case domain.UnitKG, domain.UnitBags, domain.UnitTons:
	default:
		details["unit"] = "must be one of KG, BAGS, TONS"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid acquisition record", details)
	}
	if err := s.validate(params.Attestations, actor.ID); err != nil {
		return nil, err
	}

	record := &domain.AcquisitionRecord{
		StaffID:                 actor.ID,
		SupplierName:            params.SupplierName,
		SupplierPhone:           params.SupplierPhone,
		Quantity:                params.Quantity,
		Unit:                    params.Unit,
		Price:                   params.Price,
		PaymentProofRef:         params.PaymentProofRef,
		GoodsPhotoRefs:          params.GoodsPhotoRefs,
		Latitude:                params.Latitude,
		Longitude:               params.Longitude,
		StaffAttestation:        params.Attestations.StaffProof,
		CounterpartyAttestation: params.Attestations.CounterpartySeal,
		Status:                  domain.AcquisitionStatusPending,
	}
	if err := s.acquisitions.Create(ctx, record); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventAcquisitionCreated, record.ID, actor.ID, events.StageRecordPayload{
		Stage:    "acquisition",
		Quantity: record.Quantity,
		Amount:   record.Price,
	})
	return record, nil
}

// GetAcquisition fetches a single acquisition record.
func (s *CustodyService) GetAcquisition(ctx context.Context, id string) (*domain.AcquisitionRecord, error) {
	record, err := s.acquisitions.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("acquisition record", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return record, nil
}

// ListAcquisitions lists acquisition records.
func (s *CustodyService) ListAcquisitions(ctx context.Context, filter repository.RangeFilter) ([]domain.AcquisitionRecord, error) {
	records, err := s.acquisitions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// ReviewAcquisition moves a pending acquisition to VERIFIED or REJECTED.
// Forward-only: any other current status is a conflict.
func (s *CustodyService) ReviewAcquisition(ctx context.Context, actor *domain.Identity, id string, approve bool) (*domain.AcquisitionRecord, error) {
	next := domain.AcquisitionStatusVerified
	if !approve {
		next = domain.AcquisitionStatusRejected
	}
	err := s.acquisitions.AdvanceStatus(ctx, id, []domain.AcquisitionStatus{domain.AcquisitionStatusPending}, next)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "acquisition record", "acquisition is no longer pending")
	}
	s.publishStatusChange(ctx, actor.ID, id, "acquisition", string(domain.AcquisitionStatusPending), string(next))
	return s.GetAcquisition(ctx, id)
}

// acquisitionCorrectable maps correction request fields to their columns.
// Anything outside this whitelist is rejected.
var acquisitionCorrectable = map[string]string{
	"quantity":      "quantity",
	"price":         "price",
	"supplier_name": "supplier_name",
}

// CorrectAcquisition applies whitelisted corrections to an acquisition that
// has not yet been consumed, marking it CORRECTED.
func (s *CustodyService) CorrectAcquisition(ctx context.Context, actor *domain.Identity, id string, corrections map[string]any) (*domain.AcquisitionRecord, error) {
	if len(corrections) == 0 {
		return nil, apperrors.NewValidationError("no corrections supplied", nil)
	}
	fields := make(map[string]any, len(corrections))
	for key, value := range corrections {
		column, ok := acquisitionCorrectable[key]
		if !ok {
			return nil, apperrors.NewValidationError("field is not correctable", map[string]any{"field": key})
		}
		switch key {
		case "quantity", "price":
			num, ok := value.(float64)
			if !ok || num < 0 {
				return nil, apperrors.NewValidationError("correction must be a non-negative number", map[string]any{"field": key})
			}
		case "supplier_name":
			str, ok := value.(string)
			if !ok || str == "" {
				return nil, apperrors.NewValidationError("correction must be a non-empty string", map[string]any{"field": key})
			}
		}
		fields[column] = value
	}

	eligible := []domain.AcquisitionStatus{domain.AcquisitionStatusPending, domain.AcquisitionStatusVerified}
	record, err := s.acquisitions.Correct(ctx, id, fields, eligible)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "acquisition record", "acquisition can no longer be corrected")
	}
	s.logger.Info("acquisition corrected",
		zap.String("record_id", id),
		zap.String("actor_id", actor.ID),
		zap.Int("fields", len(fields)))
	return record, nil
}

// -------- transport --------

// CreateTransportParams carries transport stage input.
type CreateTransportParams struct {
	AcquisitionID       string
	ReceiverName        string
	ReceiverPhone       string
	ReceiverDesignation string
	QuantityReceived    float64
	TransportCost       float64
	DriverName          string
	DriverPhone         string
	VehicleNumber       string
	BorderCrossing      domain.BorderCrossing
	Attestations        Attestations
}

// CreateTransport consumes a verified acquisition exactly once: the
// predecessor flips to IN_TRANSIT in the same transaction as the insert, so
// of two concurrent haulers exactly one wins.
func (s *CustodyService) CreateTransport(ctx context.Context, actor *domain.Identity, params CreateTransportParams) (*domain.TransportRecord, error) {
	details := map[string]any{}
	if params.AcquisitionID == "" {
		details["acquisition_id"] = "required"
	}
	if params.QuantityReceived <= 0 {
		details["quantity_received"] = "must be positive"
	}
	if params.ReceiverName == "" {
		details["receiver_name"] = "required"
	}
	switch params.BorderCrossing {
	case domain.CrossingSeme, domain.CrossingIdiroko, domain.CrossingOther, "":
	default:
		details["border_crossing"] = "must be one of SEME, IDIROKO, OTHER"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid transport record", details)
	}
	if err := s.validate(params.Attestations, actor.ID); err != nil {
		return nil, err
	}

	record := &domain.TransportRecord{
		AcquisitionID:           params.AcquisitionID,
		StaffID:                 actor.ID,
		ReceiverName:            params.ReceiverName,
		ReceiverPhone:           params.ReceiverPhone,
		ReceiverDesignation:     params.ReceiverDesignation,
		QuantityReceived:        params.QuantityReceived,
		TransportCost:           params.TransportCost,
		DriverName:              params.DriverName,
		DriverPhone:             params.DriverPhone,
		VehicleNumber:           params.VehicleNumber,
		BorderCrossing:          params.BorderCrossing,
		StaffAttestation:        params.Attestations.StaffProof,
		CounterpartyAttestation: params.Attestations.CounterpartySeal,
		Status:                  domain.TransportStatusPending,
	}
	if err := s.transports.Create(ctx, record, domain.AcquisitionAdvanceEligible); err != nil {
		return nil, s.mapAdvanceErr(err, "acquisition record", "acquisition has already been consumed or is not verified")
	}

	s.publish(ctx, events.EventTransportCreated, record.ID, actor.ID, events.StageRecordPayload{
		Stage:         "transport",
		PredecessorID: record.AcquisitionID,
		Quantity:      record.QuantityReceived,
		Amount:        record.TransportCost,
	})
	return record, nil
}

// GetTransport fetches a single transport record.
func (s *CustodyService) GetTransport(ctx context.Context, id string) (*domain.TransportRecord, error) {
	record, err := s.transports.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("transport record", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return record, nil
}

// ListTransports lists transport records.
func (s *CustodyService) ListTransports(ctx context.Context, filter repository.RangeFilter) ([]domain.TransportRecord, error) {
	records, err := s.transports.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// ReviewTransport moves a pending transport to VERIFIED or REJECTED.
func (s *CustodyService) ReviewTransport(ctx context.Context, actor *domain.Identity, id string, approve bool) (*domain.TransportRecord, error) {
	next := domain.TransportStatusVerified
	if !approve {
		next = domain.TransportStatusRejected
	}
	err := s.transports.AdvanceStatus(ctx, id, []domain.TransportStatus{domain.TransportStatusPending}, next)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "transport record", "transport is no longer pending")
	}
	s.publishStatusChange(ctx, actor.ID, id, "transport", string(domain.TransportStatusPending), string(next))
	return s.GetTransport(ctx, id)
}

// MarkTransportDelivered records arrival at the processing site.
func (s *CustodyService) MarkTransportDelivered(ctx context.Context, actor *domain.Identity, id string) (*domain.TransportRecord, error) {
	err := s.transports.AdvanceStatus(ctx, id,
		[]domain.TransportStatus{domain.TransportStatusVerified}, domain.TransportStatusDelivered)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "transport record", "transport is not in a deliverable state")
	}
	s.publishStatusChange(ctx, actor.ID, id, "transport",
		string(domain.TransportStatusVerified), string(domain.TransportStatusDelivered))
	return s.GetTransport(ctx, id)
}

// UpdateBorderCrossing amends the recorded crossing point on a transport.
func (s *CustodyService) UpdateBorderCrossing(ctx context.Context, id string, crossing domain.BorderCrossing) (*domain.TransportRecord, error) {
	switch crossing {
	case domain.CrossingSeme, domain.CrossingIdiroko, domain.CrossingOther:
	default:
		return nil, apperrors.NewValidationError("unknown border crossing", map[string]any{"border_crossing": crossing})
	}
	if err := s.transports.UpdateBorderCrossing(ctx, id, crossing); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("transport record", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return s.GetTransport(ctx, id)
}

// -------- processing --------

// CreateProcessingParams carries processing stage input.
type CreateProcessingParams struct {
	TransportID       string
	QuantityProcessed float64
	OilExtracted      float64
	MealExtracted     float64
	ProcessingCost    float64
	StartedAt         time.Time
	EndedAt           time.Time
	Quality           domain.QualityMetrics
	Attestations      Attestations
}

// CreateProcessing consumes a delivered transport exactly once and opens the
// batch whose extracted balances later disposals draw down.
func (s *CustodyService) CreateProcessing(ctx context.Context, actor *domain.Identity, params CreateProcessingParams) (*domain.ProcessingRecord, error) {
	details := map[string]any{}
	if params.TransportID == "" {
		details["transport_id"] = "required"
	}
	if params.QuantityProcessed <= 0 {
		details["quantity_processed"] = "must be positive"
	}
	if params.OilExtracted < 0 || params.MealExtracted < 0 {
		details["extraction"] = "extracted quantities must not be negative"
	}
	if params.OilExtracted+params.MealExtracted > params.QuantityProcessed {
		details["extraction"] = "extracted quantities exceed processed input"
	}
	if !params.EndedAt.After(params.StartedAt) {
		details["ended_at"] = "must be after started_at"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid processing record", details)
	}
	if err := s.validate(params.Attestations, actor.ID); err != nil {
		return nil, err
	}

	record := &domain.ProcessingRecord{
		TransportID:             params.TransportID,
		StaffID:                 actor.ID,
		QuantityProcessed:       params.QuantityProcessed,
		OilExtracted:            params.OilExtracted,
		MealExtracted:           params.MealExtracted,
		ProcessingCost:          params.ProcessingCost,
		StartedAt:               params.StartedAt,
		EndedAt:                 params.EndedAt,
		Quality:                 params.Quality,
		StaffAttestation:        params.Attestations.StaffProof,
		CounterpartyAttestation: params.Attestations.CounterpartySeal,
		Status:                  domain.ProcessingStatusPending,
	}
	if err := s.processings.Create(ctx, record, domain.TransportAdvanceEligible); err != nil {
		return nil, s.mapAdvanceErr(err, "transport record", "transport has already been processed or is not verified")
	}

	s.publish(ctx, events.EventProcessingCreated, record.ID, actor.ID, events.StageRecordPayload{
		Stage:         "processing",
		PredecessorID: record.TransportID,
		Quantity:      record.QuantityProcessed,
		Amount:        record.ProcessingCost,
	})
	return record, nil
}

// GetProcessing fetches a single processing record.
func (s *CustodyService) GetProcessing(ctx context.Context, id string) (*domain.ProcessingRecord, error) {
	record, err := s.processings.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("processing record", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return record, nil
}

// ListProcessings lists processing records.
func (s *CustodyService) ListProcessings(ctx context.Context, filter repository.RangeFilter) ([]domain.ProcessingRecord, error) {
	records, err := s.processings.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// ReviewProcessing moves a pending batch to VERIFIED or REJECTED.
func (s *CustodyService) ReviewProcessing(ctx context.Context, actor *domain.Identity, id string, approve bool) (*domain.ProcessingRecord, error) {
	next := domain.ProcessingStatusVerified
	if !approve {
		next = domain.ProcessingStatusRejected
	}
	err := s.processings.AdvanceStatus(ctx, id, []domain.ProcessingStatus{domain.ProcessingStatusPending}, next)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "processing record", "processing batch is no longer pending")
	}
	s.publishStatusChange(ctx, actor.ID, id, "processing", string(domain.ProcessingStatusPending), string(next))
	return s.GetProcessing(ctx, id)
}

// MarkProcessingPackaged records that a verified batch is packed for sale.
func (s *CustodyService) MarkProcessingPackaged(ctx context.Context, actor *domain.Identity, id string) (*domain.ProcessingRecord, error) {
	err := s.processings.AdvanceStatus(ctx, id,
		[]domain.ProcessingStatus{domain.ProcessingStatusVerified}, domain.ProcessingStatusPackaged)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "processing record", "processing batch is not in a packageable state")
	}
	s.publishStatusChange(ctx, actor.ID, id, "processing",
		string(domain.ProcessingStatusVerified), string(domain.ProcessingStatusPackaged))
	return s.GetProcessing(ctx, id)
}

// UpdateQuality attaches lab measurements to a batch.
func (s *CustodyService) UpdateQuality(ctx context.Context, id string, quality domain.QualityMetrics) (*domain.ProcessingRecord, error) {
	if quality.MoistureContent == nil && quality.FreeFattyAcid == nil {
		return nil, apperrors.NewValidationError("no quality metrics supplied", nil)
	}
	if err := s.processings.UpdateQuality(ctx, id, quality); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("processing record", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return s.GetProcessing(ctx, id)
}

// -------- disposal --------

// CreateDisposalParams carries disposal stage input.
type CreateDisposalParams struct {
	ProcessingID    string
	CustomerName    string
	CustomerPhone   string
	ProductType     domain.ProductType
	Quantity        float64
	UnitPrice       float64
	PaymentMethod   domain.PaymentMethod
	DeliveryAddress string
	Attestations    Attestations
}

// CreateDisposal sells product out of a processing batch. The draw-down of
// the batch balances and the insert happen in one transaction, so the
// balances can never go negative however many sales race.
func (s *CustodyService) CreateDisposal(ctx context.Context, actor *domain.Identity, params CreateDisposalParams) (*domain.DisposalRecord, error) {
	details := map[string]any{}
	if params.ProcessingID == "" {
		details["processing_id"] = "required"
	}
	if params.CustomerName == "" {
		details["customer_name"] = "required"
	}
	if params.Quantity <= 0 {
		details["quantity"] = "must be positive"
	}
	if params.UnitPrice < 0 {
		details["unit_price"] = "must not be negative"
	}
	switch params.ProductType {
	case domain.ProductOil, domain.ProductMeal, domain.ProductBoth:
	default:
		details["product_type"] = "must be one of OIL, MEAL, BOTH"
	}
	switch params.PaymentMethod {
	case domain.PaymentCash, domain.PaymentTransfer, domain.PaymentCheque, domain.PaymentCredit:
	default:
		details["payment_method"] = "must be one of CASH, TRANSFER, CHEQUE, CREDIT"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid disposal record", details)
	}
	if err := s.validate(params.Attestations, actor.ID); err != nil {
		return nil, err
	}

	var oil, meal float64
	switch params.ProductType {
	case domain.ProductOil:
		oil = params.Quantity
	case domain.ProductMeal:
		meal = params.Quantity
	case domain.ProductBoth:
		oil = params.Quantity
		meal = params.Quantity
	}

	record := &domain.DisposalRecord{
		ProcessingID:            params.ProcessingID,
		StaffID:                 actor.ID,
		CustomerName:            params.CustomerName,
		CustomerPhone:           params.CustomerPhone,
		ProductType:             params.ProductType,
		Quantity:                params.Quantity,
		UnitPrice:               params.UnitPrice,
		TotalAmount:             params.Quantity * params.UnitPrice,
		PaymentMethod:           params.PaymentMethod,
		PaymentStatus:           domain.PaymentStatusPending,
		DeliveryAddress:         params.DeliveryAddress,
		InvoiceNumber:           newInvoiceNumber(),
		StaffAttestation:        params.Attestations.StaffProof,
		CounterpartyAttestation: params.Attestations.CounterpartySeal,
		Status:                  domain.DisposalStatusPending,
	}
	err := s.disposals.Create(ctx, record, oil, meal, domain.ProcessingDisposalEligible)
	if err != nil {
		if err == repository.ErrInsufficientBalance {
			return nil, apperrors.NewInsufficientInventory("processing batch has insufficient product remaining",
				map[string]any{"processing_id": params.ProcessingID, "product_type": params.ProductType, "quantity": params.Quantity})
		}
		return nil, s.mapAdvanceErr(err, "processing record", "processing batch is not available for disposal")
	}

	s.publish(ctx, events.EventDisposalCreated, record.ID, actor.ID, events.StageRecordPayload{
		Stage:         "disposal",
		PredecessorID: record.ProcessingID,
		Quantity:      record.Quantity,
		Amount:        record.TotalAmount,
	})
	return record, nil
}

// GetDisposal fetches a single disposal record.
func (s *CustodyService) GetDisposal(ctx context.Context, id string) (*domain.DisposalRecord, error) {
	record, err := s.disposals.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("disposal record", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return record, nil
}

// ListDisposals lists disposal records.
func (s *CustodyService) ListDisposals(ctx context.Context, filter repository.DisposalFilter) ([]domain.DisposalRecord, error) {
	records, err := s.disposals.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// FulfilDisposal marks a pending sale as handed over.
func (s *CustodyService) FulfilDisposal(ctx context.Context, actor *domain.Identity, id string) (*domain.DisposalRecord, error) {
	err := s.disposals.AdvanceStatus(ctx, id,
		[]domain.DisposalStatus{domain.DisposalStatusPending}, domain.DisposalStatusFulfilled)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "disposal record", "disposal is no longer pending")
	}
	s.publishStatusChange(ctx, actor.ID, id, "disposal",
		string(domain.DisposalStatusPending), string(domain.DisposalStatusFulfilled))
	return s.GetDisposal(ctx, id)
}

// CancelDisposal voids a pending sale. The drawn-down batch balance is not
// restored; reconciling a cancelled draw is an administrator correction.
func (s *CustodyService) CancelDisposal(ctx context.Context, actor *domain.Identity, id string) (*domain.DisposalRecord, error) {
	err := s.disposals.AdvanceStatus(ctx, id,
		[]domain.DisposalStatus{domain.DisposalStatusPending}, domain.DisposalStatusCancelled)
	if err != nil {
		return nil, s.mapAdvanceErr(err, "disposal record", "disposal is no longer pending")
	}
	s.publishStatusChange(ctx, actor.ID, id, "disposal",
		string(domain.DisposalStatusPending), string(domain.DisposalStatusCancelled))
	return s.GetDisposal(ctx, id)
}

// UpdatePaymentStatus advances settlement bookkeeping on a disposal.
func (s *CustodyService) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.DisposalRecord, error) {
	switch status {
	case domain.PaymentStatusPending, domain.PaymentStatusPartial, domain.PaymentStatusComplete:
	default:
		return nil, apperrors.NewValidationError("unknown payment status", map[string]any{"payment_status": status})
	}
	if err := s.disposals.UpdatePaymentStatus(ctx, id, status); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("disposal record", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return s.GetDisposal(ctx, id)
}

// -------- chain report --------

// ChainOfCustody is the stitched view of one chain, from field purchase to
// final sale. Later stages are nil until they exist.
type ChainOfCustody struct {
	Acquisition *domain.AcquisitionRecord
	Transport   *domain.TransportRecord
	Processing  *domain.ProcessingRecord
	Disposals   []domain.DisposalRecord
	Complete    bool
}

// TraceChain reconstructs the custody chain rooted at an acquisition.
func (s *CustodyService) TraceChain(ctx context.Context, acquisitionID string) (*ChainOfCustody, error) {
	acquisition, err := s.GetAcquisition(ctx, acquisitionID)
	if err != nil {
		return nil, err
	}
	chain := &ChainOfCustody{Acquisition: acquisition}

	transport, err := s.transports.GetByAcquisition(ctx, acquisitionID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return chain, nil
		}
		return nil, apperrors.MapError(err)
	}
	chain.Transport = transport

	processing, err := s.processings.GetByTransport(ctx, transport.ID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return chain, nil
		}
		return nil, apperrors.MapError(err)
	}
	chain.Processing = processing

	disposals, err := s.disposals.ListByProcessing(ctx, processing.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	chain.Disposals = disposals
	chain.Complete = len(disposals) > 0
	return chain, nil
}

// -------- shared --------

func (s *CustodyService) mapAdvanceErr(err error, resource, conflictMsg string) error {
	switch err {
	case pgx.ErrNoRows:
		return apperrors.NewNotFound(resource, nil)
	case repository.ErrStatusConflict:
		return apperrors.NewConflict(conflictMsg, nil)
	default:
		return apperrors.MapError(err)
	}
}

func (s *CustodyService) publishStatusChange(ctx context.Context, actorID, recordID, stage, from, to string) {
	s.publishEvent(ctx, events.EventStageStatusChanged, recordID, actorID, events.StageStatusChangedPayload{
		Stage:     stage,
		OldStatus: from,
		NewStatus: to,
	})
}

func (s *CustodyService) publish(ctx context.Context, eventType events.EventType, recordID, actorID string, payload events.StageRecordPayload) {
	s.publishEvent(ctx, eventType, recordID, actorID, payload)
}

func (s *CustodyService) publishEvent(ctx context.Context, eventType events.EventType, recordID, actorID string, payload interface{}) {
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

func newInvoiceNumber() string {
	return fmt.Sprintf("INV-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
