package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
)

// Notifier turns ticket events into log lines; outbound delivery
// (e-mail, webhooks) is an external collaborator and stays stubbed.
type Notifier struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotifier creates the notifier.
func NewNotifier(dispatcher events.Dispatcher, logger *zap.Logger) *Notifier {
	return &Notifier{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *Notifier) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handle("TicketCreated"))
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handle("TicketStatusChanged"))
	n.dispatcher.Subscribe(events.EventTicketPriorityChanged, n.handle("TicketPriorityChanged"))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handle("TicketAssigned"))
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handle("TicketCommentAdded"))
	n.dispatcher.Subscribe(events.EventTicketsCleared, n.handle("TicketsCleared"))
}

func (n *Notifier) handle(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		n.logger.Info(name,
			zap.String("ticket_id", event.TicketID),
			zap.String("actor", event.Actor.ID),
			zap.Any("payload", event.Payload))
		return nil
	}
}
