package domain

import "time"

// TransportStatus enumerates lifecycle states for transport records.
type TransportStatus string

const (
	TransportStatusPending   TransportStatus = "PENDING"
	TransportStatusVerified  TransportStatus = "VERIFIED"
	TransportStatusRejected  TransportStatus = "REJECTED"
	TransportStatusDelivered TransportStatus = "DELIVERED"
	TransportStatusProcessed TransportStatus = "PROCESSED"
)

// TransportAdvanceEligible lists the statuses from which a processing record
// may consume a transport.
var TransportAdvanceEligible = []TransportStatus{
	TransportStatusVerified,
	TransportStatusDelivered,
}

// BorderCrossing enumerates known crossing points along the haul route.
type BorderCrossing string

const (
	CrossingSeme    BorderCrossing = "SEME"
	CrossingIdiroko BorderCrossing = "IDIROKO"
	CrossingOther   BorderCrossing = "OTHER"
)

// TransportRecord carries goods from an acquisition to the processing site.
// Creating one consumes its acquisition predecessor exactly once.
type TransportRecord struct {
	ID                      string
	AcquisitionID           string
	StaffID                 string
	ReceiverName            string
	ReceiverPhone           string
	ReceiverDesignation     string
	QuantityReceived        float64
	TransportCost           float64
	DriverName              string
	DriverPhone             string
	VehicleNumber           string
	BorderCrossing          BorderCrossing
	StaffAttestation        string
	CounterpartyAttestation string
	Status                  TransportStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
