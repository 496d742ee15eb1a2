package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-access-service/internal/config"
	"github.com/spec-kit/staff-access-service/internal/events"
)

// NotificationService records access-control events for operators. It is a
// secondary subscriber next to the propagation router; a real deployment
// would forward to email/webhooks here.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccessChanged, n.handleAccessChanged)
	n.dispatcher.Subscribe(events.EventStaffCreated, n.handleStaffCreated)
	n.dispatcher.Subscribe(events.EventStaffStatusChanged, n.handleStaffStatusChanged)
}

func (n *NotificationService) handleAccessChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccessChangeEvent)
	if !ok {
		return nil
	}
	n.logger.Info("AccessChanged",
		zap.String("staff_id", event.StaffID),
		zap.Strings("added", payload.Added.Names()),
		zap.Strings("removed", payload.Removed.Names()))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStaffCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("StaffCreated", zap.String("staff_id", event.StaffID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStaffStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("StaffStatusChanged", zap.String("staff_id", event.StaffID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("staff_id", event.StaffID),
		zap.String("event_type", string(event.Type)))
}
