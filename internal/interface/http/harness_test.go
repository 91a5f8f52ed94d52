package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78/webhook"
	"golang.org/x/time/rate"

	domoperator "example.com/map-storefront/internal/domain/operator"
	domorder "example.com/map-storefront/internal/domain/order"
	dompayment "example.com/map-storefront/internal/domain/payment"
	domrender "example.com/map-storefront/internal/domain/render"
	"example.com/map-storefront/internal/infra/persistence/memory"
	"example.com/map-storefront/internal/infra/printful"
	"example.com/map-storefront/internal/infra/printful/printfultest"
	"example.com/map-storefront/internal/infra/security"
	"example.com/map-storefront/internal/infra/stripegw"
	authuc "example.com/map-storefront/internal/usecase/auth"
	checkoutuc "example.com/map-storefront/internal/usecase/checkout"
	fulfillmentuc "example.com/map-storefront/internal/usecase/fulfillment"
	orderuc "example.com/map-storefront/internal/usecase/order"
	paymentuc "example.com/map-storefront/internal/usecase/payment"
	renderuc "example.com/map-storefront/internal/usecase/render"
)

const (
	testWebhookSecret = "whsec_http_test"
	testJWTSecret     = "jwt-test-secret"
	testAdminEmail    = "ops@example.com"
	testAdminPassword = "correct-horse"
)

var testImage = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("rendered-map"))

// fakeGateway stands in for the payment processor. Every session it issues
// is paid and ships to a complete address unless a test changes it.
type fakeGateway struct {
	mu        sync.Mutex
	n         int
	sessions  map[string]*dompayment.SessionDetails
	requests  []dompayment.SessionRequest
	createErr error
	getCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*dompayment.SessionDetails)}
}

func (g *fakeGateway) CreateSession(ctx context.Context, req dompayment.SessionRequest) (*dompayment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.n++
	id := fmt.Sprintf("cs_test_%d", g.n)
	g.sessions[id] = &dompayment.SessionDetails{
		ID:            id,
		Mode:          req.Mode,
		PaymentStatus: "paid",
		CustomerEmail: "buyer@example.com",
		Shipping: &domorder.Address{
			Name: "Ada Buyer", Line1: "1 Congress Ave", City: "Austin",
			State: "TX", PostalCode: "78701", CountryCode: "US",
		},
	}
	return &dompayment.Session{ID: id, URL: "https://checkout.example.test/" + id}, nil
}

func (g *fakeGateway) GetSession(ctx context.Context, sessionID string) (*dompayment.SessionDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, dompayment.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) update(sessionID string, fn func(d *dompayment.SessionDetails)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.sessions[sessionID])
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, in domrender.Request) (*domrender.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domrender.Image{DataURL: "data:image/jpeg;base64,cmVuZGVy"}, nil
}

type harnessOptions struct {
	webhookSecret string
	production    bool
	rateLimit     rate.Limit
	burst         int
}

type harness struct {
	t         *testing.T
	router    http.Handler
	gateway   *fakeGateway
	printful  *printfultest.Server
	renderer  *fakeRenderer
	pending   *memory.PendingOrderRepository
	completed *memory.CompletedOrderRepository
	tokens    *security.JWTService
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	h := &harness{
		t:         t,
		gateway:   newFakeGateway(),
		printful:  printfultest.NewServer(),
		renderer:  &fakeRenderer{},
		pending:   memory.NewPendingOrderRepository(),
		completed: memory.NewCompletedOrderRepository(),
		tokens:    security.NewJWTService(testJWTSecret, time.Hour),
	}
	t.Cleanup(h.printful.Close)

	provider := printful.NewClient(printful.Config{
		APIKey:         "pf-test",
		BaseURL:        h.printful.URL,
		VariantID:      19291,
		ProductID:      614,
		MockupInterval: time.Millisecond,
		MockupAttempts: 5,
	}, nil)

	hasher := security.NewBcryptService(4)
	hash, err := hasher.Hash(testAdminPassword)
	require.NoError(t, err)
	operators := authuc.NewStaticRepository(
		domoperator.Operator{Email: testAdminEmail, Name: "Ops", PasswordHash: hash, RoleCode: domoperator.RoleAdmin},
	)

	checkoutSvc := checkoutuc.NewService(h.gateway, h.pending, checkoutuc.Config{
		PrintPriceCents:   9400,
		Currency:          "usd",
		ShippingCountries: []string{"US", "CA"},
		SuccessURL:        "https://shop.example.test/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         "https://shop.example.test/create",
		PriceSingle:       "price_single",
		PriceSubscription: "price_sub",
	}, nil)

	api := NewAPI(Dependencies{
		AuthService:        authuc.NewService(operators, hasher, h.tokens),
		CheckoutService:    checkoutSvc,
		PaymentService:     paymentuc.NewService(h.gateway, memory.NewVerificationCache(), 0, 0, nil),
		FulfillmentService: fulfillmentuc.NewService(h.gateway, provider, h.pending, h.completed, time.Minute, nil),
		OrderService:       orderuc.NewService(h.completed, h.pending),
		RenderService:      renderuc.NewService(h.renderer, []string{"copper", "midnight"}),
		WebhookVerifier:    stripegw.NewWebhookVerifier(opts.webhookSecret, opts.production),
		TokenService:       h.tokens,
		MapboxToken:        "pk.public-token",
		RateLimit:          opts.rateLimit,
		Burst:              opts.burst,
	})
	h.router = api.Router()
	return h
}

func (h *harness) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) checkout(city, state, theme string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/checkout", map[string]string{
		"cityName":     city,
		"stateName":    state,
		"themeName":    theme,
		"imageDataUrl": testImage,
	}, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
	}
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(h.t, resp.SessionID)
	return resp.SessionID
}

func completedEventPayload(sessionID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": "evt_%s",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {"id": %q, "object": "checkout.session"}}
}`, sessionID, sessionID))
}

func signPayload(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func (h *harness) deliverWebhook(payload []byte, signature string) *httptest.ResponseRecorder {
	h.t.Helper()
	headers := map[string]string{}
	if signature != "" {
		headers["Stripe-Signature"] = signature
	}
	return h.do(http.MethodPost, "/api/webhooks/payment", payload, headers)
}

func (h *harness) orderStatus(sessionID string) map[string]any {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/api/order-status?session_id="+sessionID, nil, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (h *harness) adminToken(role domoperator.RoleCode) string {
	h.t.Helper()
	token, err := h.tokens.GenerateToken(&domoperator.Operator{Email: testAdminEmail, Name: "Ops", RoleCode: role})
	require.NoError(h.t, err)
	return token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}
