package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/custody-service/internal/config"
	"github.com/spec-kit/custody-service/internal/events"
)

// NotificationService turns custody events into receipt notifications for the
// back office. Delivery is fire-and-forget; a failed notification never fails
// the write that triggered it.
type NotificationService struct {
	sender    ReceiptSender
	from      string
	recipient string
	logger    *zap.Logger
}

// ReceiptSender delivers a rendered receipt. The default implementation logs
// the receipt; a real mail gateway satisfies the same interface.
type ReceiptSender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// NewNotificationService builds the service with the default log sender.
func NewNotificationService(cfg config.Config, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		sender:    &logSender{logger: logger},
		from:      cfg.Notification.EmailFrom,
		recipient: cfg.Notification.ReceiptRecipient,
		logger:    logger,
	}
}

// WithSender swaps the delivery mechanism.
func (s *NotificationService) WithSender(sender ReceiptSender) *NotificationService {
	s.sender = sender
	return s
}

// HandleStageCreated renders and sends a receipt for a newly created custody
// record.
func (s *NotificationService) HandleStageCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StageRecordPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Custody receipt: %s record %s", payload.Stage, event.RecordID)
	body := fmt.Sprintf("Stage: %s\nRecord: %s\nRecorded by: %s\nQuantity: %.2f\nAmount: %.2f\nAt: %s\n",
		payload.Stage, event.RecordID, event.ActorID, payload.Quantity, payload.Amount,
		event.Timestamp.Format("2006-01-02 15:04:05"))

	if err := s.sender.Send(ctx, s.from, s.recipient, subject, body); err != nil {
		s.logger.Warn("receipt delivery failed",
			zap.String("record_id", event.RecordID),
			zap.String("stage", payload.Stage),
			zap.Error(err))
	}
	return nil
}

// HandleIdentityRegistered notifies the back office of a new staff account.
func (s *NotificationService) HandleIdentityRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IdentityRegisteredPayload)
	if !ok {
		return nil
	}
	subject := "New staff registration"
	body := fmt.Sprintf("Identity: %s\nRole: %s\nAt: %s\n",
		event.RecordID, payload.Role, event.Timestamp.Format("2006-01-02 15:04:05"))

	if err := s.sender.Send(ctx, s.from, s.recipient, subject, body); err != nil {
		s.logger.Warn("registration notice delivery failed",
			zap.String("identity_id", event.RecordID),
			zap.Error(err))
	}
	return nil
}

type logSender struct {
	logger *zap.Logger
}

func (l *logSender) Send(_ context.Context, from, to, subject, _ string) error {
	l.logger.Info("receipt dispatched",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
