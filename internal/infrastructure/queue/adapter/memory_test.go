package adapter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/infrastructure/queue/port"
)

func startBroker(t *testing.T) *MemoryBroker {
	t.Helper()
	b := NewMemoryBroker(nil)
	b.Backoff = 5 * time.Millisecond
	return b
}

func run(t *testing.T, b *MemoryBroker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestMemoryBrokerAcksOnSuccess(t *testing.T) {
	b := startBroker(t)
	got := make(chan port.Task, 1)
	b.Register("t", func(ctx context.Context, task port.Task) error {
		got <- task
		return nil
	})
	run(t, b)

	id, err := b.Enqueue(context.Background(), port.Task{Type: "t", Payload: []byte("x")})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case task := <-got:
		assert.Equal(t, []byte("x"), task.Payload)
	case <-time.After(time.Second):
		t.Fatal("task not delivered")
	}
	assert.Eventually(t, func() bool { return b.Stats().Acked == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBrokerRequeuesFailedTaskUntilSuccess(t *testing.T) {
	b := startBroker(t)
	var calls atomic.Int32
	b.Register("t", func(ctx context.Context, task port.Task) error {
		if calls.Add(1) < 3 {
			return errors.New("room unavailable")
		}
		return nil
	})
	run(t, b)

	_, err := b.Enqueue(context.Background(), port.Task{Type: "t"}, port.EnqueueOption{MaxRetry: 5})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return b.Stats().Acked == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 2, b.Stats().Requeued)
}

func TestMemoryBrokerDropsSkipRetryAndExhausted(t *testing.T) {
	b := startBroker(t)
	b.Register("poison", func(ctx context.Context, task port.Task) error {
		return port.SkipRetry(errors.New("malformed"))
	})
	b.Register("broken", func(ctx context.Context, task port.Task) error {
		return errors.New("always")
	})
	run(t, b)

	_, err := b.Enqueue(context.Background(), port.Task{Type: "poison"})
	require.NoError(t, err)
	_, err = b.Enqueue(context.Background(), port.Task{Type: "broken"}, port.EnqueueOption{MaxRetry: 1})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return b.Stats().Dropped == 2 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, b.Stats().Requeued)
	assert.Zero(t, b.Stats().Acked)
}

func TestMemoryBrokerRecoversHandlerPanic(t *testing.T) {
	b := startBroker(t)
	var calls atomic.Int32
	b.Register("t", func(ctx context.Context, task port.Task) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	})
	run(t, b)

	_, err := b.Enqueue(context.Background(), port.Task{Type: "t"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return b.Stats().Acked == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBrokerAppliesProcessingWindow(t *testing.T) {
	b := startBroker(t)
	deadlines := make(chan bool, 1)
	b.Register("t", func(ctx context.Context, task port.Task) error {
		_, ok := ctx.Deadline()
		deadlines <- ok
		return nil
	})
	run(t, b)

	_, err := b.Enqueue(context.Background(), port.Task{Type: "t"}, port.EnqueueOption{Timeout: time.Second})
	require.NoError(t, err)
	select {
	case ok := <-deadlines:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("task not delivered")
	}
}

func TestMemoryBrokerRejectsAfterClose(t *testing.T) {
	b := startBroker(t)
	require.NoError(t, b.Close())
	_, err := b.Enqueue(context.Background(), port.Task{Type: "t"})
	assert.ErrorIs(t, err, ErrBrokerClosed)

	_, err = b.Enqueue(context.Background(), port.Task{})
	assert.Error(t, err)
}
