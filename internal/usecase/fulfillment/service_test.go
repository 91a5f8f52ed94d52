package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domfulfillment "example.com/map-storefront/internal/domain/fulfillment"
	domorder "example.com/map-storefront/internal/domain/order"
	dompayment "example.com/map-storefront/internal/domain/payment"
	"example.com/map-storefront/internal/infra/persistence/memory"
)

type mockGateway struct {
	details *dompayment.SessionDetails
	err     error
}

func (m *mockGateway) GetSession(ctx context.Context, sessionID string) (*dompayment.SessionDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.details
	cp.ID = sessionID
	return &cp, nil
}

type mockProvider struct {
	mu sync.Mutex

	uploadErr error
	orderErr  error
	mockupErr error
	mockupURL string
	gate      chan struct{}

	uploads []string
	orders  []domfulfillment.OrderRequest
	mockups []string
}

func (m *mockProvider) UploadFile(ctx context.Context, dataURL, filename string) (*domfulfillment.File, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, filename)
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return &domfulfillment.File{ID: "77", URL: "https://files.example.test/" + filename}, nil
}

func (m *mockProvider) CreateOrder(ctx context.Context, req domfulfillment.OrderRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, req)
	if m.orderErr != nil {
		return "", m.orderErr
	}
	return "5001", nil
}

func (m *mockProvider) GenerateMockup(ctx context.Context, fileURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mockups = append(m.mockups, fileURL)
	if m.mockupErr != nil {
		return "", m.mockupErr
	}
	return m.mockupURL, nil
}

func (m *mockProvider) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type fixture struct {
	svc       *Service
	gateway   *mockGateway
	provider  *mockProvider
	pending   *memory.PendingOrderRepository
	completed *memory.CompletedOrderRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway: &mockGateway{details: &dompayment.SessionDetails{
			Mode:          dompayment.ModePayment,
			PaymentStatus: "paid",
			CustomerEmail: "buyer@example.com",
			Shipping: &domorder.Address{
				Name: "Ada Buyer", Line1: "1 Congress Ave", City: "Austin",
				State: "TX", PostalCode: "78701", CountryCode: "US",
			},
		}},
		provider:  &mockProvider{mockupURL: "https://mockups.example.test/lifestyle.png"},
		pending:   memory.NewPendingOrderRepository(),
		completed: memory.NewCompletedOrderRepository(),
	}
	f.svc = NewService(f.gateway, f.provider, f.pending, f.completed, time.Minute, nil)

	require.NoError(t, f.pending.Put(context.Background(), &domorder.PendingOrder{
		SessionID:    "cs_1",
		ImageDataURL: "data:image/jpeg;base64,AAAA",
		Design:       domorder.Design{CityName: "Austin", StateName: "TX", ThemeName: "copper"},
		Status:       domorder.PendingAwaitingPayment,
		CreatedAt:    time.Now(),
	}))
	return f
}

func completedEvent(sessionID string) *dompayment.Event {
	return &dompayment.Event{ID: "evt_1", Type: dompayment.EventCheckoutCompleted, SessionID: sessionID}
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.HandleEvent(context.Background(), &dompayment.Event{Type: "payment_intent.created"})

	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, out)
	require.Empty(t, f.provider.uploads)
}

func TestHandleEvent_CompletesWithMockup(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))

	require.NoError(t, err)
	require.Equal(t, OutcomeCompletedWithMockup, out)

	c, err := f.completed.Get(context.Background(), "cs_1")
	require.NoError(t, err)
	require.Equal(t, "5001", c.FulfillmentOrderID)
	require.Equal(t, "https://mockups.example.test/lifestyle.png", c.MockupURL)

	_, err = f.pending.Get(context.Background(), "cs_1")
	require.ErrorIs(t, err, domorder.ErrPendingOrderNotFound)

	req := f.provider.orders[0]
	require.Equal(t, "cs_1", req.ExternalID)
	require.Equal(t, "Custom Map Canvas - Austin, TX (copper)", req.ProductLabel)
	require.Equal(t, "https://files.example.test/map-cs_1.jpg", req.FileURL)
	require.Equal(t, "buyer@example.com", req.Recipient.Email)
}

func TestHandleEvent_MockupFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.provider.mockupErr = domfulfillment.ErrMockupFailed

	out, err := f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))

	require.NoError(t, err)
	require.Equal(t, OutcomeCompletedWithoutMockup, out)

	c, err := f.completed.Get(context.Background(), "cs_1")
	require.NoError(t, err)
	require.Empty(t, c.MockupURL)
	require.Equal(t, "5001", c.FulfillmentOrderID)
}

func TestHandleEvent_MissingPendingOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleEvent(context.Background(), completedEvent("cs_unknown"))

	require.ErrorIs(t, err, domorder.ErrPendingOrderNotFound)
	require.Empty(t, f.provider.uploads)
}

func TestHandleEvent_RedeliveryDoesNotDuplicateOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))
	require.NoError(t, err)

	_, err = f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))
	require.ErrorIs(t, err, domorder.ErrPendingOrderNotFound)
	require.Equal(t, 1, f.provider.orderCount())
}

func TestHandleEvent_MissingShippingAddress(t *testing.T) {
	f := newFixture(t)
	f.gateway.details.Shipping = &domorder.Address{Name: "No Street"}

	_, err := f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))

	require.ErrorIs(t, err, domorder.ErrMissingShippingAddress)
	require.Zero(t, f.provider.orderCount())

	p, err := f.pending.Get(context.Background(), "cs_1")
	require.NoError(t, err)
	require.Equal(t, domorder.PendingAwaitingPayment, p.Status)
}

func TestHandleEvent_SilentFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		wantStep domorder.Step
	}{
		{
			name:     "session fetch fails",
			setup:    func(f *fixture) { f.gateway.err = errors.New("gateway down") },
			wantStep: domorder.StepSession,
		},
		{
			name:     "upload fails",
			setup:    func(f *fixture) { f.provider.uploadErr = domfulfillment.ErrUploadFailed },
			wantStep: domorder.StepUpload,
		},
		{
			name:     "order creation fails",
			setup:    func(f *fixture) { f.provider.orderErr = domfulfillment.ErrOrderCreationFailed },
			wantStep: domorder.StepOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			out, err := f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))

			require.NoError(t, err)
			require.Equal(t, OutcomeSilentlyFailed, out)

			_, err = f.completed.Get(context.Background(), "cs_1")
			require.ErrorIs(t, err, domorder.ErrCompletedOrderNotFound)

			p, err := f.pending.Get(context.Background(), "cs_1")
			require.NoError(t, err)
			require.Equal(t, domorder.PendingNeedsRetry, p.Status)
			require.Equal(t, tt.wantStep, p.FailedStep)
			require.Equal(t, 1, p.Attempts)
			require.NotEmpty(t, p.LastError)
		})
	}
}

func TestHandleEvent_DetachedFromCallerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := f.svc.HandleEvent(ctx, completedEvent("cs_1"))

	require.NoError(t, err)
	require.True(t, out.Completed())
}

func TestHandleEvent_ConcurrentDeliveriesCollapse(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))
		}(i)
	}
	// Give both deliveries a chance to reach the in-flight group before the
	// first upload is released.
	time.Sleep(50 * time.Millisecond)
	close(f.provider.gate)
	wg.Wait()

	require.Equal(t, 1, f.provider.orderCount())
	require.Contains(t, outcomes, OutcomeCompletedWithMockup)
}

func TestRetry_CompletesAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.uploadErr = domfulfillment.ErrUploadFailed

	out, err := f.svc.HandleEvent(context.Background(), completedEvent("cs_1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeSilentlyFailed, out)

	f.provider.uploadErr = nil
	out, err = f.svc.Retry(context.Background(), "cs_1")

	require.NoError(t, err)
	require.Equal(t, OutcomeCompletedWithMockup, out)
	_, err = f.pending.Get(context.Background(), "cs_1")
	require.ErrorIs(t, err, domorder.ErrPendingOrderNotFound)
}

func TestRetry_GatewayErrorReturned(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = dompayment.ErrGatewayUnavailable

	_, err := f.svc.Retry(context.Background(), "cs_1")
	require.ErrorIs(t, err, dompayment.ErrGatewayUnavailable)

	_, err = f.svc.Retry(context.Background(), "cs_missing")
	require.ErrorIs(t, err, domorder.ErrPendingOrderNotFound)
}

func TestGenerateMockup_Standalone(t *testing.T) {
	f := newFixture(t)

	url, err := f.svc.GenerateMockup(context.Background(), "data:image/jpeg;base64,AAAA", "")

	require.NoError(t, err)
	require.Equal(t, "https://mockups.example.test/lifestyle.png", url)
	require.Len(t, f.provider.uploads, 1)
	require.Regexp(t, `^mockup-[0-9a-f-]{36}\.jpg$`, f.provider.uploads[0])
	require.Zero(t, f.provider.orderCount())
}

func TestGenerateMockup_PropagatesTimeout(t *testing.T) {
	f := newFixture(t)
	f.provider.mockupErr = domfulfillment.ErrMockupTimeout

	_, err := f.svc.GenerateMockup(context.Background(), "data:image/jpeg;base64,AAAA", "x.jpg")

	require.ErrorIs(t, err, domfulfillment.ErrMockupTimeout)
}
