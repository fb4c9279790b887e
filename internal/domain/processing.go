package domain

import "time"

// ProcessingStatus enumerates lifecycle states for processing records.
type ProcessingStatus string

const (
	ProcessingStatusPending  ProcessingStatus = "PENDING"
	ProcessingStatusVerified ProcessingStatus = "VERIFIED"
	ProcessingStatusRejected ProcessingStatus = "REJECTED"
	ProcessingStatusPackaged ProcessingStatus = "PACKAGED"
)

// ProcessingDisposalEligible lists the statuses from which disposal records
// may draw down a processing batch. Disposal does not change the batch
// status; it only decrements the extracted balances.
var ProcessingDisposalEligible = []ProcessingStatus{
	ProcessingStatusVerified,
	ProcessingStatusPackaged,
}

// QualityMetrics captures optional lab measurements for a processed batch.
type QualityMetrics struct {
	MoistureContent *float64
	FreeFattyAcid   *float64
}

// ProcessingRecord is a factory batch extracted from a delivered transport.
// OilExtracted and MealExtracted are running balances drawn down by disposal.
type ProcessingRecord struct {
	ID                      string
	TransportID             string
	StaffID                 string
	QuantityProcessed       float64
	OilExtracted            float64
	MealExtracted           float64
	ProcessingCost          float64
	StartedAt               time.Time
	EndedAt                 time.Time
	Quality                 QualityMetrics
	StaffAttestation        string
	CounterpartyAttestation string
	Status                  ProcessingStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DurationHours returns the batch run time in hours.
func (p *ProcessingRecord) DurationHours() float64 {
	return p.EndedAt.Sub(p.StartedAt).Hours()
}
