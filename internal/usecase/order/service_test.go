package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domorder "example.com/map-storefront/internal/domain/order"
	"example.com/map-storefront/internal/infra/persistence/memory"
)

type failingCompleted struct{}

func (failingCompleted) Get(ctx context.Context, sessionID string) (*domorder.CompletedOrder, error) {
	return nil, errors.New("connection refused")
}

func TestGetStatus_UnknownSessionIsPending(t *testing.T) {
	svc := NewService(memory.NewCompletedOrderRepository(), memory.NewPendingOrderRepository())

	st, err := svc.GetStatus(context.Background(), "cs_never_seen")

	require.NoError(t, err)
	require.Equal(t, domorder.StatePending, st.State)
	require.Nil(t, st.MockupURL)
	require.Nil(t, st.FulfillmentOrderID)
}

func TestGetStatus_Completed(t *testing.T) {
	completed := memory.NewCompletedOrderRepository()
	require.NoError(t, completed.Put(context.Background(), &domorder.CompletedOrder{
		SessionID: "cs_1", MockupURL: "https://m.example.test/1.png", FulfillmentOrderID: "5001", CreatedAt: time.Now(),
	}))
	svc := NewService(completed, memory.NewPendingOrderRepository())

	st, err := svc.GetStatus(context.Background(), "cs_1")

	require.NoError(t, err)
	require.Equal(t, domorder.StateCompleted, st.State)
	require.Equal(t, "https://m.example.test/1.png", *st.MockupURL)
	require.Equal(t, "5001", *st.FulfillmentOrderID)
}

func TestGetStatus_CompletedWithoutMockup(t *testing.T) {
	completed := memory.NewCompletedOrderRepository()
	require.NoError(t, completed.Put(context.Background(), &domorder.CompletedOrder{SessionID: "cs_1", FulfillmentOrderID: "5001"}))
	svc := NewService(completed, memory.NewPendingOrderRepository())

	st, err := svc.GetStatus(context.Background(), "cs_1")

	require.NoError(t, err)
	require.Nil(t, st.MockupURL)
	require.Equal(t, "5001", *st.FulfillmentOrderID)
}

func TestGetStatus_Errors(t *testing.T) {
	svc := NewService(failingCompleted{}, memory.NewPendingOrderRepository())

	_, err := svc.GetStatus(context.Background(), "")
	require.ErrorIs(t, err, domorder.ErrEmptySessionID)

	_, err = svc.GetStatus(context.Background(), "cs_1")
	require.EqualError(t, err, "connection refused")
}

func TestListPending_FiltersByStatus(t *testing.T) {
	pending := memory.NewPendingOrderRepository()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, pending.Put(ctx, &domorder.PendingOrder{SessionID: "a", Status: domorder.PendingAwaitingPayment, CreatedAt: now}))
	require.NoError(t, pending.Put(ctx, &domorder.PendingOrder{SessionID: "b", Status: domorder.PendingNeedsRetry, CreatedAt: now.Add(time.Second)}))
	svc := NewService(memory.NewCompletedOrderRepository(), pending)

	all, err := svc.ListPending(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	retry, err := svc.ListPending(ctx, domorder.PendingNeedsRetry)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	require.Equal(t, "b", retry[0].SessionID)

	_, err = svc.ListPending(ctx, "bogus")
	require.ErrorIs(t, err, domorder.ErrInvalidPendingStatus)
}
