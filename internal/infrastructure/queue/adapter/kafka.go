package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"chat-relay/internal/infrastructure/queue/port"
)

const (
	headerTaskType = "task-type"
	headerTaskID   = "task-id"
)

// KafkaConfig configures the kafka-go broker. All task types share one topic;
// the task type travels in a message header.
type KafkaConfig struct {
	Brokers  string // CSV host:port list
	Topic    string
	GroupID  string
	MaxRetry int           // in-process redeliveries before the offset is committed anyway
	Backoff  time.Duration // base delay between redeliveries
}

func (c KafkaConfig) brokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ===================== Client =====================

// KafkaClient implements port.Client with a synchronous kafka-go Writer.
// Tasks sharing a Key land on the same partition.
type KafkaClient struct {
	w *kafka.Writer
}

func NewKafkaClient(cfg KafkaConfig) (*KafkaClient, error) {
	brokers := cfg.brokerList()
	if len(brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	return &KafkaClient{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}, nil
}

var _ port.Client = (*KafkaClient)(nil)

func (k *KafkaClient) Enqueue(ctx context.Context, t port.Task, _ ...port.EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("kafka: task type is required")
	}
	id := uuid.NewString()
	if err := k.w.WriteMessages(ctx, messageFromTask(id, t)); err != nil {
		return "", fmt.Errorf("kafka: write: %w", err)
	}
	return id, nil
}

func (k *KafkaClient) Close() error { return k.w.Close() }

func messageFromTask(id string, t port.Task) kafka.Message {
	return kafka.Message{
		Key:   []byte(t.Key),
		Value: t.Payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: headerTaskType, Value: []byte(t.Type)},
			{Key: headerTaskID, Value: []byte(id)},
		},
	}
}

func taskFromMessage(m kafka.Message) (port.Task, string) {
	t := port.Task{Key: string(m.Key), Payload: m.Value}
	var id string
	for _, h := range m.Headers {
		switch h.Key {
		case headerTaskType:
			t.Type = string(h.Value)
		case headerTaskID:
			id = string(h.Value)
		}
	}
	return t, id
}

// ===================== Server =====================

// KafkaServer implements port.Server over a consumer-group Reader. An offset is
// committed only after its handler acknowledges, skips, or exhausts MaxRetry.
type KafkaServer struct {
	cfg      KafkaConfig
	reader   *kafka.Reader
	log      *zap.Logger
	mu       sync.RWMutex
	handlers map[string]port.Handler
	cancel   context.CancelFunc
}

func NewKafkaServer(cfg KafkaConfig, log *zap.Logger) (*KafkaServer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	brokers := cfg.brokerList()
	if len(brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka: brokers, topic and group id are required")
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 10
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return &KafkaServer{
		cfg: cfg,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		log:      log,
		handlers: make(map[string]port.Handler),
	}, nil
}

var _ port.Server = (*KafkaServer)(nil)

func (s *KafkaServer) Register(taskType string, h port.Handler) {
	s.mu.Lock()
	s.handlers[taskType] = h
	s.mu.Unlock()
}

// Run fetches, handles and commits messages until ctx is canceled.
func (s *KafkaServer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		_ = s.reader.Close()
	}()

	s.log.Info("kafka consumer started",
		zap.String("group", s.cfg.GroupID),
		zap.String("topic", s.cfg.Topic),
	)
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("kafka fetch", zap.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}

		if !s.handle(ctx, m) {
			return nil
		}
		if err := s.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			s.log.Warn("kafka commit", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// handle redelivers m to its handler until it acks, skips or runs out of retries.
// It returns false only when ctx ends first; the offset then stays uncommitted.
func (s *KafkaServer) handle(ctx context.Context, m kafka.Message) bool {
	t, id := taskFromMessage(m)
	s.mu.RLock()
	h := s.handlers[t.Type]
	s.mu.RUnlock()
	if h == nil {
		s.log.Warn("kafka: no handler, skipping", zap.String("type", t.Type), zap.String("task_id", id))
		return true
	}

	for attempt := 0; ; attempt++ {
		err := h(ctx, t)
		switch {
		case err == nil:
			return true
		case errors.Is(err, port.ErrSkipRetry):
			s.log.Warn("kafka: task skipped", zap.String("type", t.Type), zap.String("task_id", id), zap.Error(err))
			return true
		case attempt >= s.cfg.MaxRetry:
			s.log.Error("kafka: retries exhausted", zap.String("type", t.Type), zap.String("task_id", id), zap.Error(err))
			return true
		}
		s.log.Warn("kafka: task failed, redelivering",
			zap.String("type", t.Type), zap.String("task_id", id), zap.Int("attempt", attempt+1), zap.Error(err))
		if !sleepCtx(ctx, backoffFor(s.cfg.Backoff, attempt)) {
			return false
		}
	}
}

func (s *KafkaServer) Stop(_ context.Context) error {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// backoffFor doubles base per attempt, capped at 30s.
func backoffFor(base time.Duration, attempt int) time.Duration {
	const maxBackoff = 30 * time.Second
	d := base
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
