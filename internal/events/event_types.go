package events

import (
	"time"

	"github.com/spec-kit/custody-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIdentityRegistered EventType = "identity_registered"
	EventAcquisitionCreated EventType = "acquisition_created"
	EventTransportCreated   EventType = "transport_created"
	EventProcessingCreated  EventType = "processing_created"
	EventDisposalCreated    EventType = "disposal_created"
	EventStageStatusChanged EventType = "stage_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RecordID  string      `json:"record_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IdentityRegisteredPayload payload.
type IdentityRegisteredPayload struct {
	Phone string      `json:"phone"`
	Role  domain.Role `json:"role"`
}

// StageRecordPayload payload shared by stage-creation events.
type StageRecordPayload struct {
	Stage         string  `json:"stage"`
	PredecessorID string  `json:"predecessor_id,omitempty"`
	Quantity      float64 `json:"quantity"`
	Amount        float64 `json:"amount"`
}

// StageStatusChangedPayload payload.
type StageStatusChangedPayload struct {
	Stage     string `json:"stage"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}
