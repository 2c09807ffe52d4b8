package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/events"
	"github.com/fieldops/dispatch/internal/notify"
	"github.com/fieldops/dispatch/internal/observability"
)

// NotificationService turns domain events into outbound messages. Delivery is
// attempted once; failures are logged and counted.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      UserGetter
	sender     notify.Sender
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// UserGetter loads an operator by id.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   UserGetter
	Sender     notify.Sender
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		sender:     deps.Sender,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketSLAViolated, n.handleSLAViolated)
}

var errNoPhone = errors.New("technician has no phone")

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	technician, err := n.users.GetByID(ctx, payload.TechnicianID)
	if err != nil {
		n.metrics.RecordNotification("failed")
		return err
	}
	if technician.Phone == nil || *technician.Phone == "" {
		n.metrics.RecordNotification("skipped")
		n.logger.Debug("assignment notification skipped",
			zap.String("ticket_id", event.TicketID),
			zap.String("technician_id", technician.ID),
			zap.Error(errNoPhone))
		return nil
	}

	body := notify.AssignmentMessage{
		Code:          payload.Code,
		Type:          payload.Type,
		ClientName:    payload.ClientName,
		ClientPhone:   payload.ClientPhone,
		ClientAddress: payload.ClientAddress,
		Description:   payload.Description,
	}.Render()

	if err := n.sender.Send(ctx, *technician.Phone, body); err != nil {
		n.metrics.RecordNotification("failed")
		n.logger.Warn("assignment notification failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("technician_id", technician.ID),
			zap.Error(err))
		return nil
	}
	n.metrics.RecordNotification("sent")
	n.logger.Info("assignment notification sent",
		zap.String("ticket_id", event.TicketID),
		zap.String("technician_id", technician.ID))
	return nil
}

func (n *NotificationService) handleSLAViolated(ctx context.Context, event events.Event) error {
	n.logger.Warn("sla violated",
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
