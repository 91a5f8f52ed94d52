package memory

import (
	"context"
	"sort"
	"time"

	domorder "example.com/map-storefront/internal/domain/order"
)

type PendingOrderRepository struct {
	m *TTLMap[domorder.PendingOrder]
}

func NewPendingOrderRepository() *PendingOrderRepository {
	return &PendingOrderRepository{m: NewTTLMap[domorder.PendingOrder]()}
}

func (r *PendingOrderRepository) Put(ctx context.Context, p *domorder.PendingOrder) error {
	if p == nil || p.SessionID == "" {
		return domorder.ErrEmptySessionID
	}
	r.m.Put(p.SessionID, *p)
	return nil
}

func (r *PendingOrderRepository) Get(ctx context.Context, sessionID string) (*domorder.PendingOrder, error) {
	p, ok := r.m.Get(sessionID)
	if !ok {
		return nil, domorder.ErrPendingOrderNotFound
	}
	return &p, nil
}

func (r *PendingOrderRepository) Delete(ctx context.Context, sessionID string) error {
	r.m.Delete(sessionID)
	return nil
}

func (r *PendingOrderRepository) List(ctx context.Context) ([]*domorder.PendingOrder, error) {
	values := r.m.Values()
	sort.Slice(values, func(i, j int) bool {
		return values[i].CreatedAt.Before(values[j].CreatedAt)
	})
	out := make([]*domorder.PendingOrder, 0, len(values))
	for i := range values {
		out = append(out, &values[i])
	}
	return out, nil
}

func (r *PendingOrderRepository) DeleteStale(ctx context.Context, cutoff, failedCutoff time.Time) (int, error) {
	return r.m.SweepFunc(func(p domorder.PendingOrder, _ time.Time) bool {
		if p.Status == domorder.PendingNeedsRetry {
			return p.UpdatedAt.Before(failedCutoff)
		}
		return p.CreatedAt.Before(cutoff)
	}), nil
}

type CompletedOrderRepository struct {
	m *TTLMap[domorder.CompletedOrder]
}

func NewCompletedOrderRepository() *CompletedOrderRepository {
	return &CompletedOrderRepository{m: NewTTLMap[domorder.CompletedOrder]()}
}

func (r *CompletedOrderRepository) Put(ctx context.Context, c *domorder.CompletedOrder) error {
	if c == nil || c.SessionID == "" {
		return domorder.ErrEmptySessionID
	}
	r.m.Put(c.SessionID, *c)
	return nil
}

func (r *CompletedOrderRepository) Get(ctx context.Context, sessionID string) (*domorder.CompletedOrder, error) {
	c, ok := r.m.Get(sessionID)
	if !ok {
		return nil, domorder.ErrCompletedOrderNotFound
	}
	return &c, nil
}

func (r *CompletedOrderRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return r.m.SweepFunc(func(c domorder.CompletedOrder, _ time.Time) bool {
		return c.CreatedAt.Before(cutoff)
	}), nil
}
