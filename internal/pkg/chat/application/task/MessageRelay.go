package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	qport "chat-relay/internal/infrastructure/queue/port"
	"chat-relay/internal/infrastructure/telemetry"
	chat "chat-relay/internal/pkg/chat/application/domain"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// MessageRelay hands committed messages to the broker for realtime delivery.
// Publishing is best effort: failures are logged and counted, never returned.
type MessageRelay struct {
	Client         qport.Client
	Queue          string
	MaxRetry       int
	Window         time.Duration // processing window per delivery attempt
	Retention      time.Duration
	PublishTimeout time.Duration

	log     *zap.Logger
	metrics *telemetry.Metrics
}

func NewMessageRelay(client qport.Client, log *zap.Logger, metrics *telemetry.Metrics) *MessageRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageRelay{
		Client:         client,
		Queue:          "delivery",
		MaxRetry:       5,
		Window:         10 * time.Second,
		Retention:      time.Hour,
		PublishTimeout: 3 * time.Second,
		log:            log,
		metrics:        metrics,
	}
}

var _ usecase.MessagePublisher = (*MessageRelay)(nil)

// PublishMessageCreated enqueues a chat:message_created task for m. It runs
// detached from the caller's cancellation since the message is already committed.
func (r *MessageRelay) PublishMessageCreated(ctx context.Context, m chat.Message) {
	t, err := NewMessageCreatedTask(m)
	if err != nil {
		r.metrics.PublishFailed()
		r.log.Error("encode message_created", zap.String("message_id", m.ID), zap.Error(err))
		return
	}

	ctx = context.WithoutCancel(ctx)
	if r.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.PublishTimeout)
		defer cancel()
	}

	id, err := r.Client.Enqueue(ctx, t, qport.EnqueueOption{
		Queue:     r.Queue,
		MaxRetry:  r.MaxRetry,
		Timeout:   r.Window,
		Retention: r.Retention,
	})
	if err != nil {
		r.metrics.PublishFailed()
		r.log.Error("publish message_created",
			zap.String("message_id", m.ID),
			zap.String("conversation_id", m.ConversationID),
			zap.Error(err))
		return
	}
	r.metrics.PublishSucceeded()
	r.log.Debug("message_created enqueued", zap.String("message_id", m.ID), zap.String("task_id", id))
}
