package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PicoRmin/TicketingBot-sub000/internal/config"
	"github.com/PicoRmin/TicketingBot-sub000/internal/events"
	"github.com/PicoRmin/TicketingBot-sub000/internal/sla"
)

// NotificationService is the delivery boundary for domain events and SLA
// alerts. Delivery is fire-and-forget: failures are logged and never fed
// back into the engine.
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
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketMessageAdded)
	n.dispatcher.Subscribe(events.EventSLAAlert, n.handleSLAAlert)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event, "")
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketMessageAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event, "")
	return nil
}

func (n *NotificationService) handleSLAAlert(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAAlertPayload)
	if !ok {
		n.logger.Warn("unexpected sla alert payload", zap.String("ticket_id", event.TicketID))
		return nil
	}
	message := FormatAlertMessage(payload)
	n.logger.Info("SLAAlert",
		zap.String("ticket_id", event.TicketID),
		zap.String("kind", string(payload.Kind)),
		zap.String("rule", payload.RuleName),
		zap.String("message", message))
	n.sendEmailNotificationStub(ctx, event, message)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// FormatAlertMessage renders the human-readable alert line carried to chat
// and email channels.
func FormatAlertMessage(p events.SLAAlertPayload) string {
	switch p.Kind {
	case sla.AlertResponseWarning:
		return fmt.Sprintf("first response due in %s (rule %q)", formatDuration(p.Remaining), p.RuleName)
	case sla.AlertResponseBreach:
		return fmt.Sprintf("response deadline missed by %s (rule %q)", formatDuration(p.Overdue), p.RuleName)
	case sla.AlertResolutionWarning:
		return fmt.Sprintf("resolution due in %s (rule %q)", formatDuration(p.Remaining), p.RuleName)
	case sla.AlertResolutionBreach:
		return fmt.Sprintf("resolution deadline missed by %s (rule %q)", formatDuration(p.Overdue), p.RuleName)
	case sla.AlertEscalation:
		return fmt.Sprintf("ticket escalated after %s open (rule %q)", formatDuration(p.Elapsed), p.RuleName)
	default:
		return fmt.Sprintf("sla alert %s (rule %q)", p.Kind, p.RuleName)
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	return d.Round(time.Minute).String()
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, message string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.String("message", message))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
