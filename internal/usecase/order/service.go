package order

import (
	"context"
	"errors"

	domorder "example.com/map-storefront/internal/domain/order"
)

type CompletedReader interface {
	Get(ctx context.Context, sessionID string) (*domorder.CompletedOrder, error)
}

type PendingLister interface {
	List(ctx context.Context) ([]*domorder.PendingOrder, error)
}

type Service struct {
	completed CompletedReader
	pending   PendingLister
}

func NewService(completed CompletedReader, pending PendingLister) *Service {
	return &Service{completed: completed, pending: pending}
}

// GetStatus never reports an unknown session as an error: not yet paid, in
// flight and silently failed all read as pending.
func (s *Service) GetStatus(ctx context.Context, sessionID string) (*domorder.Status, error) {
	if sessionID == "" {
		return nil, domorder.ErrEmptySessionID
	}
	c, err := s.completed.Get(ctx, sessionID)
	if errors.Is(err, domorder.ErrCompletedOrderNotFound) {
		return &domorder.Status{State: domorder.StatePending}, nil
	}
	if err != nil {
		return nil, err
	}

	st := &domorder.Status{State: domorder.StateCompleted}
	orderID := c.FulfillmentOrderID
	st.FulfillmentOrderID = &orderID
	if c.MockupURL != "" {
		mockup := c.MockupURL
		st.MockupURL = &mockup
	}
	return st, nil
}

// ListPending returns pending orders, optionally narrowed to one status.
func (s *Service) ListPending(ctx context.Context, status domorder.PendingStatus) ([]*domorder.PendingOrder, error) {
	all, err := s.pending.List(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	if !status.IsValid() {
		return nil, domorder.ErrInvalidPendingStatus
	}
	out := make([]*domorder.PendingOrder, 0, len(all))
	for _, p := range all {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}
