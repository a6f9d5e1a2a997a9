package port

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Task is a broker message: a stable type name plus opaque payload bytes.
// Key groups related tasks on partitioned brokers (kafka); others ignore it.
type Task struct {
	Type    string
	Key     string
	Payload []byte
}

// Handler processes a Task. Returning nil acknowledges it; returning an error
// rejects it and asks the adapter to requeue it, unless the error wraps ErrSkipRetry.
// Handlers must be idempotent because every adapter delivers at least once.
type Handler func(ctx context.Context, task Task) error

// ErrSkipRetry marks a task that can never succeed (for example a malformed payload).
// Adapters acknowledge and discard it instead of requeueing.
var ErrSkipRetry = errors.New("queue: skip retry")

// SkipRetry wraps err so that adapters discard the task.
func SkipRetry(err error) error {
	return fmt.Errorf("%w: %v", ErrSkipRetry, err)
}

// EnqueueOption controls enqueue behavior. Adapters map supported fields to the
// backend and ignore the rest. Zero values mean "unspecified".
type EnqueueOption struct {
	Queue     string        // logical queue name
	ProcessIn time.Duration // delay before processing
	ProcessAt time.Time     // absolute schedule time, wins over ProcessIn
	MaxRetry  int           // max redeliveries after the first attempt
	Timeout   time.Duration // processing window per attempt
	UniqueTTL time.Duration // uniqueness window
	Retention time.Duration // keep completed task metadata this long
	Deadline  time.Time     // hard processing deadline
}

// Client enqueues tasks.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs handlers for registered task types.
// Run blocks until ctx is canceled or Stop is called.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

// MergeOptions folds opts left to right; later non-zero fields win.
func MergeOptions(opts ...EnqueueOption) EnqueueOption {
	var out EnqueueOption
	for _, o := range opts {
		if o.Queue != "" {
			out.Queue = o.Queue
		}
		if o.ProcessIn > 0 {
			out.ProcessIn = o.ProcessIn
		}
		if !o.ProcessAt.IsZero() {
			out.ProcessAt = o.ProcessAt
		}
		if o.MaxRetry > 0 {
			out.MaxRetry = o.MaxRetry
		}
		if o.Timeout > 0 {
			out.Timeout = o.Timeout
		}
		if o.UniqueTTL > 0 {
			out.UniqueTTL = o.UniqueTTL
		}
		if o.Retention > 0 {
			out.Retention = o.Retention
		}
		if !o.Deadline.IsZero() {
			out.Deadline = o.Deadline
		}
	}
	return out
}
