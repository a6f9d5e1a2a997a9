package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	cport "chat-relay/internal/infrastructure/cache/port"
	qport "chat-relay/internal/infrastructure/queue/port"
	"chat-relay/internal/infrastructure/telemetry"
	chat "chat-relay/internal/pkg/chat/application/domain"
	"chat-relay/internal/pkg/chat/application/usecase"
)

// Emitter pushes a frame to every connection joined to a conversation room.
type Emitter interface {
	Emit(conversationID string, payload []byte) (int, error)
}

const dedupeKeyPrefix = "delivered:"

// DeliverMessageTask consumes chat:message_created tasks and fans each message
// out to its conversation room. A nil return acknowledges the task; any other
// error makes the broker requeue it.
type DeliverMessageTask struct {
	Authority *usecase.MembershipAuthority
	Emitter   Emitter
	Cache     cport.Cache // optional; nil disables dedupe
	DedupeTTL time.Duration
	Window    time.Duration

	log     *zap.Logger
	metrics *telemetry.Metrics
}

func NewDeliverMessageTask(authority *usecase.MembershipAuthority, emitter Emitter, cache cport.Cache, log *zap.Logger, metrics *telemetry.Metrics) *DeliverMessageTask {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeliverMessageTask{
		Authority: authority,
		Emitter:   emitter,
		Cache:     cache,
		DedupeTTL: 10 * time.Minute,
		Window:    10 * time.Second,
		log:       log,
		metrics:   metrics,
	}
}

// Register binds the handler to srv.
func (d *DeliverMessageTask) Register(srv qport.Server) {
	srv.Register(MessageCreatedTaskType, d.Handle)
}

func (d *DeliverMessageTask) Handle(ctx context.Context, t qport.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.Delivery(telemetry.OutcomeRequeued, 0)
			d.log.Error("deliver message panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("deliver message: panic: %v", r)
		}
	}()

	m, err := decodeMessageCreated(t)
	if err != nil {
		d.metrics.Delivery(telemetry.OutcomeMalformed, 0)
		d.log.Warn("discarding malformed message_created task", zap.Error(err))
		return qport.SkipRetry(err)
	}

	if d.Window > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Window)
		defer cancel()
	}
	log := d.log.With(zap.String("message_id", m.ID), zap.String("conversation_id", m.ConversationID))

	if d.delivered(ctx, log, m.ID) {
		d.metrics.Delivery(telemetry.OutcomeDuplicate, 0)
		log.Debug("message already delivered")
		return nil
	}

	if _, err := d.Authority.Authorize(ctx, m.ConversationID, m.SenderID); err != nil {
		if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrAccessDenied) {
			d.metrics.Delivery(telemetry.OutcomeDropped, 0)
			log.Info("dropping message: sender no longer in conversation", zap.String("sender_id", m.SenderID), zap.Error(err))
			return nil
		}
		d.metrics.Delivery(telemetry.OutcomeRequeued, 0)
		log.Warn("membership check failed, requeueing", zap.Error(err))
		return err
	}

	frame, err := encodeMessageFrame(m)
	if err != nil {
		d.metrics.Delivery(telemetry.OutcomeMalformed, 0)
		return qport.SkipRetry(err)
	}

	n, err := d.Emitter.Emit(m.ConversationID, frame)
	if err != nil {
		d.metrics.Delivery(telemetry.OutcomeRequeued, 0)
		log.Warn("fan-out failed, requeueing", zap.Error(err))
		return fmt.Errorf("emit %s: %w", m.ID, err)
	}

	d.markDelivered(ctx, log, m.ID)
	d.metrics.Delivery(telemetry.OutcomeDelivered, n)
	log.Debug("message delivered", zap.Int("sockets", n))
	return nil
}

// delivered reports a dedupe hit. Cache failures count as a miss.
func (d *DeliverMessageTask) delivered(ctx context.Context, log *zap.Logger, messageID string) bool {
	if d.Cache == nil {
		return false
	}
	_, err := d.Cache.Get(ctx, dedupeKeyPrefix+messageID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, cport.ErrMiss):
		return false
	default:
		log.Warn("dedupe lookup failed", zap.Error(err))
		return false
	}
}

func (d *DeliverMessageTask) markDelivered(ctx context.Context, log *zap.Logger, messageID string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Set(ctx, dedupeKeyPrefix+messageID, "1", d.DedupeTTL); err != nil {
		log.Warn("dedupe mark failed", zap.Error(err))
	}
}
