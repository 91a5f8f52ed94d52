package order

import (
	"context"
	"time"
)

type PendingRepository interface {
	Put(ctx context.Context, p *PendingOrder) error
	Get(ctx context.Context, sessionID string) (*PendingOrder, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]*PendingOrder, error)
	// DeleteStale removes orders still awaiting payment that were created
	// before cutoff, and needs_retry orders last touched before failedCutoff.
	DeleteStale(ctx context.Context, cutoff, failedCutoff time.Time) (int, error)
}

type CompletedRepository interface {
	Put(ctx context.Context, c *CompletedOrder) error
	Get(ctx context.Context, sessionID string) (*CompletedOrder, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
