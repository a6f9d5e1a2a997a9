package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-relay/internal/infrastructure/queue/port"
)

// ErrBrokerClosed is returned by Enqueue after the memory broker stops.
var ErrBrokerClosed = errors.New("memory broker: closed")

type memoryTask struct {
	id      string
	task    port.Task
	opt     port.EnqueueOption
	attempt int
}

// MemoryStats counts task outcomes of a MemoryBroker.
type MemoryStats struct {
	Acked    int64
	Requeued int64
	Dropped  int64
}

// MemoryBroker is an in-process port.Client and port.Server pair for the
// single-binary setup and tests. Failed tasks are requeued after Backoff until
// MaxRetry is exhausted.
type MemoryBroker struct {
	Backoff         time.Duration
	DefaultMaxRetry int
	Concurrency     int

	log      *zap.Logger
	tasks    chan memoryTask
	mu       sync.RWMutex
	handlers map[string]port.Handler
	done     chan struct{}
	stop     sync.Once

	acked    atomic.Int64
	requeued atomic.Int64
	dropped  atomic.Int64
}

func NewMemoryBroker(log *zap.Logger) *MemoryBroker {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemoryBroker{
		Backoff:         100 * time.Millisecond,
		DefaultMaxRetry: 5,
		Concurrency:     4,
		log:             log,
		tasks:           make(chan memoryTask, 1024),
		handlers:        make(map[string]port.Handler),
		done:            make(chan struct{}),
	}
}

var (
	_ port.Client = (*MemoryBroker)(nil)
	_ port.Server = (*MemoryBroker)(nil)
)

func (b *MemoryBroker) Enqueue(ctx context.Context, t port.Task, opts ...port.EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("memory broker: task type is required")
	}
	mt := memoryTask{id: uuid.NewString(), task: t, opt: port.MergeOptions(opts...)}
	if err := b.push(ctx, mt); err != nil {
		return "", err
	}
	return mt.id, nil
}

func (b *MemoryBroker) push(ctx context.Context, mt memoryTask) error {
	select {
	case <-b.done:
		return ErrBrokerClosed
	default:
	}
	select {
	case <-b.done:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	case b.tasks <- mt:
		return nil
	}
}

// Close stops the broker; pending tasks are discarded.
func (b *MemoryBroker) Close() error {
	b.stop.Do(func() { close(b.done) })
	return nil
}

func (b *MemoryBroker) Register(taskType string, h port.Handler) {
	b.mu.Lock()
	b.handlers[taskType] = h
	b.mu.Unlock()
}

// Run processes tasks with Concurrency workers until ctx is canceled or Stop is called.
func (b *MemoryBroker) Run(ctx context.Context) error {
	workers := b.Concurrency
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-b.done:
					return
				case mt := <-b.tasks:
					b.process(ctx, mt)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (b *MemoryBroker) Stop(_ context.Context) error {
	return b.Close()
}

// Stats returns a snapshot of outcome counters.
func (b *MemoryBroker) Stats() MemoryStats {
	return MemoryStats{
		Acked:    b.acked.Load(),
		Requeued: b.requeued.Load(),
		Dropped:  b.dropped.Load(),
	}
}

func (b *MemoryBroker) process(ctx context.Context, mt memoryTask) {
	b.mu.RLock()
	h := b.handlers[mt.task.Type]
	b.mu.RUnlock()
	if h == nil {
		b.dropped.Add(1)
		b.log.Warn("memory broker: no handler", zap.String("type", mt.task.Type), zap.String("task_id", mt.id))
		return
	}

	err := b.invoke(ctx, h, mt)
	switch {
	case err == nil:
		b.acked.Add(1)
		return
	case errors.Is(err, port.ErrSkipRetry):
		b.dropped.Add(1)
		b.log.Warn("memory broker: task skipped", zap.String("type", mt.task.Type), zap.String("task_id", mt.id), zap.Error(err))
		return
	}

	maxRetry := mt.opt.MaxRetry
	if maxRetry <= 0 {
		maxRetry = b.DefaultMaxRetry
	}
	if mt.attempt >= maxRetry {
		b.dropped.Add(1)
		b.log.Error("memory broker: retries exhausted", zap.String("type", mt.task.Type), zap.String("task_id", mt.id), zap.Error(err))
		return
	}

	b.requeued.Add(1)
	b.log.Warn("memory broker: task failed, requeueing",
		zap.String("type", mt.task.Type), zap.String("task_id", mt.id), zap.Int("attempt", mt.attempt+1), zap.Error(err))
	mt.attempt++
	time.AfterFunc(b.Backoff, func() {
		if err := b.push(context.Background(), mt); err != nil {
			b.dropped.Add(1)
		}
	})
}

func (b *MemoryBroker) invoke(ctx context.Context, h port.Handler, mt memoryTask) (err error) {
	if mt.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mt.opt.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("memory broker: handler panic: %v", r)
		}
	}()
	return h(ctx, mt.task)
}
