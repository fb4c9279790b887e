package dto

import (
	"time"

	"github.com/spec-kit/custody-service/internal/domain"
)

// AttestationRequest carries the dual biometric proofs for a custody write.
type AttestationRequest struct {
	StaffAttestation        string `json:"staff_attestation"`
	CounterpartyAttestation string `json:"counterparty_attestation"`
}

// CreateAcquisitionRequest payload.
type CreateAcquisitionRequest struct {
	SupplierName    string              `json:"supplier_name"`
	SupplierPhone   string              `json:"supplier_phone"`
	Quantity        float64             `json:"quantity"`
	Unit            domain.QuantityUnit `json:"unit"`
	Price           float64             `json:"price"`
	PaymentProofRef string              `json:"payment_proof_ref"`
	GoodsPhotoRefs  []string            `json:"goods_photo_refs"`
	Latitude        float64             `json:"latitude"`
	Longitude       float64             `json:"longitude"`
	AttestationRequest
}

// ReviewRequest approves or rejects a pending record.
type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// CorrectionRequest carries whitelisted field corrections.
type CorrectionRequest struct {
	Corrections map[string]any `json:"corrections"`
}

// CreateTransportRequest payload.
type CreateTransportRequest struct {
	AcquisitionID       string                `json:"acquisition_id"`
	ReceiverName        string                `json:"receiver_name"`
	ReceiverPhone       string                `json:"receiver_phone"`
	ReceiverDesignation string                `json:"receiver_designation"`
	QuantityReceived    float64               `json:"quantity_received"`
	TransportCost       float64               `json:"transport_cost"`
	DriverName          string                `json:"driver_name"`
	DriverPhone         string                `json:"driver_phone"`
	VehicleNumber       string                `json:"vehicle_number"`
	BorderCrossing      domain.BorderCrossing `json:"border_crossing"`
	AttestationRequest
}

// BorderCrossingRequest payload.
type BorderCrossingRequest struct {
	BorderCrossing domain.BorderCrossing `json:"border_crossing"`
}

// CreateProcessingRequest payload.
type CreateProcessingRequest struct {
	TransportID       string    `json:"transport_id"`
	QuantityProcessed float64   `json:"quantity_processed"`
	OilExtracted      float64   `json:"oil_extracted"`
	MealExtracted     float64   `json:"meal_extracted"`
	ProcessingCost    float64   `json:"processing_cost"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"`
	MoistureContent   *float64  `json:"moisture_content,omitempty"`
	FreeFattyAcid     *float64  `json:"free_fatty_acid,omitempty"`
	AttestationRequest
}

// QualityRequest payload.
type QualityRequest struct {
	MoistureContent *float64 `json:"moisture_content,omitempty"`
	FreeFattyAcid   *float64 `json:"free_fatty_acid,omitempty"`
}

// CreateDisposalRequest payload.
type CreateDisposalRequest struct {
	ProcessingID    string               `json:"processing_id"`
	CustomerName    string               `json:"customer_name"`
	CustomerPhone   string               `json:"customer_phone"`
	ProductType     domain.ProductType   `json:"product_type"`
	Quantity        float64              `json:"quantity"`
	UnitPrice       float64              `json:"unit_price"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	DeliveryAddress string               `json:"delivery_address"`
	AttestationRequest
}

// PaymentStatusRequest payload.
type PaymentStatusRequest struct {
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

// SetActiveRequest payload for account toggling.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// AcquisitionResponse view.
type AcquisitionResponse struct {
	ID            string                   `json:"id"`
	StaffID       string                   `json:"staff_id"`
	SupplierName  string                   `json:"supplier_name"`
	SupplierPhone string                   `json:"supplier_phone,omitempty"`
	Quantity      float64                  `json:"quantity"`
	Unit          domain.QuantityUnit      `json:"unit"`
	Price         float64                  `json:"price"`
	GoodsPhotos   []string                 `json:"goods_photo_refs,omitempty"`
	Latitude      float64                  `json:"latitude"`
	Longitude     float64                  `json:"longitude"`
	Status        domain.AcquisitionStatus `json:"status"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// NewAcquisitionResponse maps a record.
func NewAcquisitionResponse(r *domain.AcquisitionRecord) AcquisitionResponse {
	return AcquisitionResponse{
		ID:            r.ID,
		StaffID:       r.StaffID,
		SupplierName:  r.SupplierName,
		SupplierPhone: r.SupplierPhone,
		Quantity:      r.Quantity,
		Unit:          r.Unit,
		Price:         r.Price,
		GoodsPhotos:   r.GoodsPhotoRefs,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// NewAcquisitionResponses maps a slice.
func NewAcquisitionResponses(records []domain.AcquisitionRecord) []AcquisitionResponse {
	out := make([]AcquisitionResponse, len(records))
	for i := range records {
		out[i] = NewAcquisitionResponse(&records[i])
	}
	return out
}

// TransportResponse view.
type TransportResponse struct {
	ID               string                 `json:"id"`
	AcquisitionID    string                 `json:"acquisition_id"`
	StaffID          string                 `json:"staff_id"`
	ReceiverName     string                 `json:"receiver_name"`
	QuantityReceived float64                `json:"quantity_received"`
	TransportCost    float64                `json:"transport_cost"`
	DriverName       string                 `json:"driver_name,omitempty"`
	VehicleNumber    string                 `json:"vehicle_number,omitempty"`
	BorderCrossing   domain.BorderCrossing  `json:"border_crossing,omitempty"`
	Status           domain.TransportStatus `json:"status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewTransportResponse maps a record.
func NewTransportResponse(r *domain.TransportRecord) TransportResponse {
	return TransportResponse{
		ID:               r.ID,
		AcquisitionID:    r.AcquisitionID,
		StaffID:          r.StaffID,
		ReceiverName:     r.ReceiverName,
		QuantityReceived: r.QuantityReceived,
		TransportCost:    r.TransportCost,
		DriverName:       r.DriverName,
		VehicleNumber:    r.VehicleNumber,
		BorderCrossing:   r.BorderCrossing,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// NewTransportResponses maps a slice.
func NewTransportResponses(records []domain.TransportRecord) []TransportResponse {
	out := make([]TransportResponse, len(records))
	for i := range records {
		out[i] = NewTransportResponse(&records[i])
	}
	return out
}

// ProcessingResponse view.
type ProcessingResponse struct {
	ID                string                  `json:"id"`
	TransportID       string                  `json:"transport_id"`
	StaffID           string                  `json:"staff_id"`
	QuantityProcessed float64                 `json:"quantity_processed"`
	OilExtracted      float64                 `json:"oil_extracted"`
	MealExtracted     float64                 `json:"meal_extracted"`
	ProcessingCost    float64                 `json:"processing_cost"`
	StartedAt         time.Time               `json:"started_at"`
	EndedAt           time.Time               `json:"ended_at"`
	DurationHours     float64                 `json:"duration_hours"`
	MoistureContent   *float64                `json:"moisture_content,omitempty"`
	FreeFattyAcid     *float64                `json:"free_fatty_acid,omitempty"`
	Status            domain.ProcessingStatus `json:"status"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// NewProcessingResponse maps a record.
func NewProcessingResponse(r *domain.ProcessingRecord) ProcessingResponse {
	return ProcessingResponse{
		ID:                r.ID,
		TransportID:       r.TransportID,
		StaffID:           r.StaffID,
		QuantityProcessed: r.QuantityProcessed,
		OilExtracted:      r.OilExtracted,
		MealExtracted:     r.MealExtracted,
		ProcessingCost:    r.ProcessingCost,
		StartedAt:         r.StartedAt,
		EndedAt:           r.EndedAt,
		DurationHours:     r.DurationHours(),
		MoistureContent:   r.Quality.MoistureContent,
		FreeFattyAcid:     r.Quality.FreeFattyAcid,
		Status:            r.Status,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// NewProcessingResponses maps a slice.
func NewProcessingResponses(records []domain.ProcessingRecord) []ProcessingResponse {
	out := make([]ProcessingResponse, len(records))
	for i := range records {
		out[i] = NewProcessingResponse(&records[i])
	}
	return out
}

// DisposalResponse view.
type DisposalResponse struct {
	ID              string                `json:"id"`
	ProcessingID    string                `json:"processing_id"`
	StaffID         string                `json:"staff_id"`
	CustomerName    string                `json:"customer_name"`
	CustomerPhone   string                `json:"customer_phone,omitempty"`
	ProductType     domain.ProductType    `json:"product_type"`
	Quantity        float64               `json:"quantity"`
	UnitPrice       float64               `json:"unit_price"`
	TotalAmount     float64               `json:"total_amount"`
	PaymentMethod   domain.PaymentMethod  `json:"payment_method"`
	PaymentStatus   domain.PaymentStatus  `json:"payment_status"`
	DeliveryAddress string                `json:"delivery_address,omitempty"`
	InvoiceNumber   string                `json:"invoice_number"`
	Status          domain.DisposalStatus `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// NewDisposalResponse maps a record.
func NewDisposalResponse(r *domain.DisposalRecord) DisposalResponse {
	return DisposalResponse{
		ID:              r.ID,
		ProcessingID:    r.ProcessingID,
		StaffID:         r.StaffID,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		ProductType:     r.ProductType,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		TotalAmount:     r.TotalAmount,
		PaymentMethod:   r.PaymentMethod,
		PaymentStatus:   r.PaymentStatus,
		DeliveryAddress: r.DeliveryAddress,
		InvoiceNumber:   r.InvoiceNumber,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// NewDisposalResponses maps a slice.
func NewDisposalResponses(records []domain.DisposalRecord) []DisposalResponse {
	out := make([]DisposalResponse, len(records))
	for i := range records {
		out[i] = NewDisposalResponse(&records[i])
	}
	return out
}

// ChainOfCustodyResponse is the stitched report for one chain.
type ChainOfCustodyResponse struct {
	Acquisition AcquisitionResponse `json:"acquisition"`
	Transport   *TransportResponse  `json:"transport,omitempty"`
	Processing  *ProcessingResponse `json:"processing,omitempty"`
	Disposals   []DisposalResponse  `json:"disposals,omitempty"`
	Complete    bool                `json:"complete"`
}
