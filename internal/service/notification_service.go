package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/events"
	"github.com/spec-kit/cityfix-service/internal/queue"
)

// NotificationService fans domain events out: every event is logged, and
// forwarded to the RabbitMQ event queue when one is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  *queue.Publisher
	logger     *zap.Logger
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(dispatcher events.Dispatcher, publisher *queue.Publisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to all event types.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventIssueCreated,
		events.EventIssueUpvoted,
		events.EventIssueStatusChanged,
		events.EventIssueAssigned,
		events.EventIssueBoosted,
		events.EventIssueRejected,
		events.EventUserUpgraded,
	} {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("domain event",
		zap.String("type", string(event.Type)),
		zap.String("issue_id", event.IssueID),
		zap.String("actor", event.Actor))

	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, event); err != nil {
			n.logger.Warn("event queue publish failed",
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
	return nil
}
