package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"chat-relay/internal/infrastructure/queue/port"
)

func TestParseQueueWeights(t *testing.T) {
	got := parseQueueWeights(" delivery=6, default=2 ,low, =4,bad=x")
	assert.Equal(t, map[string]int{"delivery": 6, "default": 2, "low": 1, "bad": 1}, got)
}

func TestAsynqResultMapsSkipRetry(t *testing.T) {
	assert.NoError(t, asynqResult(nil))

	plain := errors.New("fan-out failed")
	assert.Same(t, plain, asynqResult(plain))

	skipped := asynqResult(port.SkipRetry(errors.New("bad payload")))
	assert.ErrorIs(t, skipped, asynq.SkipRetry)
}

func TestAsynqOptionsFromMergedOption(t *testing.T) {
	opts := asynqOptions(port.EnqueueOption{Queue: "delivery", MaxRetry: 4, Timeout: 10 * time.Second, Retention: time.Hour})
	assert.Len(t, opts, 4)
	assert.Empty(t, asynqOptions(port.EnqueueOption{}))
}

func TestAsynqConfigRequiresURL(t *testing.T) {
	_, err := NewAsynqClient(AsynqConfig{})
	assert.Error(t, err)
	_, err = NewAsynqServer(AsynqConfig{RedisURL: "::not a url"}, nil)
	assert.Error(t, err)
}

func TestKafkaMessageRoundTripKeepsTypeAndKey(t *testing.T) {
	in := port.Task{Type: "chat:message_created", Key: "conv-1", Payload: []byte(`{}`)}
	task, id := taskFromMessage(messageFromTask("task-1", in))
	assert.Equal(t, in, task)
	assert.Equal(t, "task-1", id)
}

func TestKafkaConfigValidation(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, KafkaConfig{Brokers: " a:1, ,b:2"}.brokerList())

	_, err := NewKafkaClient(KafkaConfig{Brokers: "a:1"})
	assert.Error(t, err)
	_, err = NewKafkaServer(KafkaConfig{Brokers: "a:1", Topic: "t"}, nil)
	assert.Error(t, err)
}

func TestBackoffForIsCapped(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoffFor(100*time.Millisecond, 0))
	assert.Equal(t, 400*time.Millisecond, backoffFor(100*time.Millisecond, 2))
	assert.Equal(t, 30*time.Second, backoffFor(time.Second, 20))
}
