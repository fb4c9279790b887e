package worker

import (
	"github.com/spec-kit/custody-service/internal/events"
	"github.com/spec-kit/custody-service/internal/service"
)

// RegisterNotificationHandlers wires the notification service to the events
// that warrant a receipt.
func RegisterNotificationHandlers(dispatcher events.Dispatcher, notifications *service.NotificationService) {
	for _, eventType := range []events.EventType{
		events.EventAcquisitionCreated,
		events.EventTransportCreated,
		events.EventProcessingCreated,
		events.EventDisposalCreated,
	} {
		dispatcher.Subscribe(eventType, notifications.HandleStageCreated)
	}
	dispatcher.Subscribe(events.EventIdentityRegistered, notifications.HandleIdentityRegistered)
}
