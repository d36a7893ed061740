package queue

import (
	"context"
	"time"
)

// Publisher abstracts the broker so handlers and the scheduler can run with
// a noop in tests and in broker-less dev setups.
type Publisher interface {
	Publish(ctx context.Context, key string, event any, reqID string) error
	// PublishDelayed enqueues event to be routed after delay; it returns the
	// broker message id, used as the job handle.
	PublishDelayed(ctx context.Context, key string, event any, delay time.Duration) (string, error)
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, key string, event any, reqID string) error {
	return nil
}

func (NoopPub) PublishDelayed(ctx context.Context, key string, event any, delay time.Duration) (string, error) {
	return "", nil
}

func (NoopPub) Close() error { return nil }
