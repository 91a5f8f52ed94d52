package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	domfulfillment "example.com/map-storefront/internal/domain/fulfillment"
	domoperator "example.com/map-storefront/internal/domain/operator"
	domorder "example.com/map-storefront/internal/domain/order"
	dompayment "example.com/map-storefront/internal/domain/payment"
	domrender "example.com/map-storefront/internal/domain/render"
	"example.com/map-storefront/internal/pkg/logging"
	authuc "example.com/map-storefront/internal/usecase/auth"
	checkoutuc "example.com/map-storefront/internal/usecase/checkout"
	fulfillmentuc "example.com/map-storefront/internal/usecase/fulfillment"
	orderuc "example.com/map-storefront/internal/usecase/order"
	paymentuc "example.com/map-storefront/internal/usecase/payment"
	renderuc "example.com/map-storefront/internal/usecase/render"
)

// WebhookVerifier authenticates a raw gateway callback.
type WebhookVerifier interface {
	Verify(payload []byte, header string) (*dompayment.Event, error)
}

type API struct {
	authSvc        *authuc.Service
	checkoutSvc    *checkoutuc.Service
	paymentSvc     *paymentuc.Service
	fulfillmentSvc *fulfillmentuc.Service
	orderSvc       *orderuc.Service
	renderSvc      *renderuc.Service
	webhooks       WebhookVerifier
	tokenSvc       authuc.TokenService
	healthCheck    func(ctx context.Context) error
	mapboxToken    string
	limiter        *ipLimiter
	validator      *validator.Validate
	logger         *zap.Logger
}

type Dependencies struct {
	AuthService        *authuc.Service
	CheckoutService    *checkoutuc.Service
	PaymentService     *paymentuc.Service
	FulfillmentService *fulfillmentuc.Service
	OrderService       *orderuc.Service
	RenderService      *renderuc.Service
	WebhookVerifier    WebhookVerifier
	TokenService       authuc.TokenService
	// HealthCheck pings the order store; nil means always healthy.
	HealthCheck func(ctx context.Context) error
	MapboxToken string
	// RateLimit applies per client IP to the public write endpoints. Zero
	// disables limiting.
	RateLimit rate.Limit
	Burst     int
	Logger    *zap.Logger
}

func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	return &API{
		authSvc:        deps.AuthService,
		checkoutSvc:    deps.CheckoutService,
		paymentSvc:     deps.PaymentService,
		fulfillmentSvc: deps.FulfillmentService,
		orderSvc:       deps.OrderService,
		renderSvc:      deps.RenderService,
		webhooks:       deps.WebhookVerifier,
		tokenSvc:       deps.TokenService,
		healthCheck:    deps.HealthCheck,
		mapboxToken:    deps.MapboxToken,
		limiter:        newIPLimiter(deps.RateLimit, deps.Burst),
		validator:      validate,
		logger:         logger,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(a.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json", "text/plain"))

	r.Get("/health", a.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/payment", a.handlePaymentWebhook)
		r.Get("/order-status", a.handleOrderStatus)
		r.Get("/verify-payment", a.handleVerifyPayment)
		r.Get("/config", a.handlePublicConfig)

		r.Group(func(lr chi.Router) {
			lr.Use(a.rateLimit)
			lr.Post("/checkout", a.handleCheckout)
			lr.Post("/create-checkout", a.handleCreateCheckout)
			lr.Post("/generate-mockup", a.handleGenerateMockup)
			lr.Post("/render", a.handleRender)
			lr.Post("/admin/login", a.handleLogin)
		})

		r.Group(func(ar chi.Router) {
			ar.Use(a.authMiddleware)
			ar.Use(a.requireRoles(domoperator.RoleAdmin, domoperator.RoleSupport))

			ar.Route("/admin/orders", func(rr chi.Router) {
				rr.Get("/pending", a.handleListPending)
				rr.With(a.requireRoles(domoperator.RoleAdmin)).Post("/{sessionID}/retry", a.handleRetryFulfillment)
			})
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.healthCheck(ctx); err != nil {
			a.logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var (
	errInvalidRequest = errors.New("invalid request")
	errInternal       = errors.New("internal server error")
	errTimedOut       = errors.New("timed out")
	errPaymentService = errors.New("payment service unavailable")
	errFulfillment    = errors.New("fulfillment service unavailable")
	errRenderService  = errors.New("render service unavailable")
	errWebhookConfig  = errors.New("webhook not configured")
	errTooManyRequest = errors.New("too many requests")
)

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError writes err's message. Only package sentinels and domain
// sentinels reach here; upstream detail is logged, never written.
func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context()).With(zap.String("path", r.URL.Path))

	switch {
	case errors.Is(err, dompayment.ErrInvalidSignature):
		respondError(w, http.StatusBadRequest, dompayment.ErrInvalidSignature)
	case errors.Is(err, dompayment.ErrInvalidPayload):
		respondError(w, http.StatusBadRequest, dompayment.ErrInvalidPayload)
	case errors.Is(err, domorder.ErrPendingOrderNotFound):
		respondError(w, http.StatusBadRequest, domorder.ErrPendingOrderNotFound)
	case errors.Is(err, domorder.ErrMissingShippingAddress):
		respondError(w, http.StatusBadRequest, domorder.ErrMissingShippingAddress)
	case errors.Is(err, domorder.ErrEmptySessionID),
		errors.Is(err, domorder.ErrInvalidPendingStatus),
		errors.Is(err, dompayment.ErrInvalidPriceType),
		errors.Is(err, dompayment.ErrInvalidReturnURL),
		errors.Is(err, domrender.ErrUnknownTheme),
		errors.Is(err, domfulfillment.ErrInvalidImage):
		log.Info("rejected request", zap.Error(err))
		respondError(w, http.StatusBadRequest, errInvalidRequest)
	case errors.Is(err, domoperator.ErrInvalidCredential),
		errors.Is(err, domoperator.ErrInvalidRoleCode):
		respondError(w, http.StatusUnprocessableEntity, domoperator.ErrInvalidCredential)
	case errors.Is(err, domoperator.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, domoperator.ErrUnauthorized)
	case errors.Is(err, dompayment.ErrWebhookNotConfigured):
		log.Error("refusing unsigned webhook in production", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errWebhookConfig)
	case errors.Is(err, dompayment.ErrGatewayUnavailable),
		errors.Is(err, dompayment.ErrSessionNotFound):
		log.Error("payment gateway call failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errPaymentService)
	case errors.Is(err, domfulfillment.ErrMockupTimeout),
		errors.Is(err, domrender.ErrRenderTimeout):
		log.Warn("upstream timed out", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errTimedOut)
	case errors.Is(err, domfulfillment.ErrUploadFailed),
		errors.Is(err, domfulfillment.ErrOrderCreationFailed),
		errors.Is(err, domfulfillment.ErrMockupFailed),
		errors.Is(err, domfulfillment.ErrNotConfigured):
		log.Error("fulfillment provider call failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errFulfillment)
	case errors.Is(err, domrender.ErrRenderFailed),
		errors.Is(err, domrender.ErrNotConfigured):
		log.Error("renderer call failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errRenderService)
	default:
		log.Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errInternal)
	}
}
