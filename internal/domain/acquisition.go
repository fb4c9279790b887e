package domain

import "time"

// AcquisitionStatus enumerates lifecycle states for acquisition records.
// Transitions are forward-only: once status leaves PENDING it never returns.
type AcquisitionStatus string

const (
	AcquisitionStatusPending   AcquisitionStatus = "PENDING"
	AcquisitionStatusVerified  AcquisitionStatus = "VERIFIED"
	AcquisitionStatusRejected  AcquisitionStatus = "REJECTED"
	AcquisitionStatusCorrected AcquisitionStatus = "CORRECTED"
	AcquisitionStatusInTransit AcquisitionStatus = "IN_TRANSIT"
)

// AcquisitionAdvanceEligible lists the statuses from which a transport record
// may consume an acquisition.
var AcquisitionAdvanceEligible = []AcquisitionStatus{
	AcquisitionStatusVerified,
	AcquisitionStatusCorrected,
}

// QuantityUnit enumerates measurement units for acquired goods.
type QuantityUnit string

const (
	UnitKG   QuantityUnit = "KG"
	UnitBags QuantityUnit = "BAGS"
	UnitTons QuantityUnit = "TONS"
)

// AcquisitionRecord is the first link of a custody chain: goods bought from
// a supplier in the field. Both attestations are verified-biometric proofs,
// never raw samples.
type AcquisitionRecord struct {
	ID                      string
	StaffID                 string
	SupplierName            string
	SupplierPhone           string
	Quantity                float64
	Unit                    QuantityUnit
	Price                   float64
	PaymentProofRef         string
	GoodsPhotoRefs          []string
	Latitude                float64
	Longitude               float64
	StaffAttestation        string
	CounterpartyAttestation string
	Status                  AcquisitionStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
