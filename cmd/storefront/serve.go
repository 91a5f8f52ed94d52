package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"example.com/map-storefront/internal/config"
	domoperator "example.com/map-storefront/internal/domain/operator"
	domorder "example.com/map-storefront/internal/domain/order"
	"example.com/map-storefront/internal/infra/persistence/memory"
	"example.com/map-storefront/internal/infra/persistence/mysql"
	"example.com/map-storefront/internal/infra/persistence/postgres"
	"example.com/map-storefront/internal/infra/printful"
	"example.com/map-storefront/internal/infra/renderer"
	"example.com/map-storefront/internal/infra/security"
	"example.com/map-storefront/internal/infra/stripegw"
	httpapi "example.com/map-storefront/internal/interface/http"
	"example.com/map-storefront/internal/pkg/logging"
	authuc "example.com/map-storefront/internal/usecase/auth"
	checkoutuc "example.com/map-storefront/internal/usecase/checkout"
	fulfillmentuc "example.com/map-storefront/internal/usecase/fulfillment"
	orderuc "example.com/map-storefront/internal/usecase/order"
	paymentuc "example.com/map-storefront/internal/usecase/payment"
	renderuc "example.com/map-storefront/internal/usecase/render"
	"example.com/map-storefront/internal/usecase/retention"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the retention sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Production(), cfg.App.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

type stores struct {
	pending   domorder.PendingRepository
	completed domorder.CompletedRepository
	ping      func(ctx context.Context) error
	close     func()
}

func openStores(ctx context.Context, cfg config.StoreConfig) (*stores, error) {
	switch cfg.Driver {
	case "mysql":
		db, err := mysql.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return &stores{
			pending:   mysql.NewPendingOrderRepository(db),
			completed: mysql.NewCompletedOrderRepository(db),
			ping:      db.PingContext,
			close:     func() { _ = db.Close() },
		}, nil
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &stores{
			pending:   postgres.NewPendingOrderRepository(pool),
			completed: postgres.NewCompletedOrderRepository(pool),
			ping:      pool.Ping,
			close:     pool.Close,
		}, nil
	default:
		return &stores{
			pending:   memory.NewPendingOrderRepository(),
			completed: memory.NewCompletedOrderRepository(),
			close:     func() {},
		}, nil
	}
}

func outboundClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.Production() && cfg.Stripe.WebhookSecret == "" {
		logger.Error("stripe.webhook_secret is not set; payment webhooks will be refused")
	}

	gateway := stripegw.NewGateway(stripegw.Config{
		SecretKey: cfg.Stripe.SecretKey,
		APIURL:    cfg.Stripe.APIURL,
	})
	provider := printful.NewClient(printful.Config{
		APIKey:         cfg.Printful.APIKey,
		BaseURL:        cfg.Printful.BaseURL,
		StoreID:        cfg.Printful.StoreID,
		VariantID:      cfg.Printful.VariantID,
		ProductID:      cfg.Printful.ProductID,
		MockupInterval: cfg.Printful.MockupInterval,
		MockupAttempts: cfg.Printful.MockupAttempts,
		HTTPClient:     outboundClient(60 * time.Second),
	}, logger)
	rendererClient := renderer.NewClient(renderer.Config{
		BaseURL:      cfg.Renderer.BaseURL,
		Secret:       cfg.Renderer.Secret,
		PollInterval: cfg.Renderer.PollInterval,
		MaxAttempts:  cfg.Renderer.MaxAttempts,
		HTTPClient:   outboundClient(20 * time.Second),
	}, logger)

	verifications := memory.NewVerificationCache()
	hasher := security.NewBcryptService(0)
	tokens := security.NewJWTService(cfg.Admin.JWTSecret, cfg.Admin.JWTExpiration)

	role, err := domoperator.ParseRoleCode(cfg.Admin.Role)
	if err != nil {
		return fmt.Errorf("admin.role: %w", err)
	}
	operators := authuc.NewStaticRepository(domoperator.Operator{
		Email:        cfg.Admin.Email,
		Name:         "Operator",
		PasswordHash: cfg.Admin.PasswordHash,
		RoleCode:     role,
	})

	fulfillmentSvc := fulfillmentuc.NewService(gateway, provider, st.pending, st.completed, cfg.Fulfillment.PipelineTimeout, logger)

	api := httpapi.NewAPI(httpapi.Dependencies{
		AuthService: authuc.NewService(operators, hasher, tokens),
		CheckoutService: checkoutuc.NewService(gateway, st.pending, checkoutuc.Config{
			PrintPriceCents:    cfg.Checkout.PrintPriceCents,
			Currency:           cfg.Checkout.Currency,
			ShippingCountries:  cfg.Checkout.ShippingCountries,
			SuccessURL:         cfg.Checkout.SuccessURL,
			CancelURL:          cfg.Checkout.CancelURL,
			PriceSingle:        cfg.Stripe.PriceSingle,
			PriceSubscription:  cfg.Stripe.PriceSubscription,
			AllowedReturnHosts: cfg.Checkout.AllowedReturnHosts,
		}, logger),
		PaymentService:     paymentuc.NewService(gateway, verifications, cfg.Payment.CacheTTL, cfg.Payment.ErrorCacheTTL, logger),
		FulfillmentService: fulfillmentSvc,
		OrderService:       orderuc.NewService(st.completed, st.pending),
		RenderService:      renderuc.NewService(rendererClient, cfg.Themes),
		WebhookVerifier:    stripegw.NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Production()),
		TokenService:       tokens,
		HealthCheck:        st.ping,
		MapboxToken:        cfg.Mapbox.Token,
		RateLimit:          rate.Limit(cfg.RateLimit.RPS),
		Burst:              cfg.RateLimit.Burst,
		Logger:             logger,
	})

	sweeper := retention.NewSweeper(st.pending, st.completed, verifications, retention.Config{
		Interval:     cfg.Retention.Interval,
		PendingTTL:   cfg.Retention.PendingTTL,
		FailedTTL:    cfg.Retention.FailedTTL,
		CompletedTTL: cfg.Retention.CompletedTTL,
		CacheTTL:     cfg.Payment.CacheTTL,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           otelhttp.NewHandler(api.Router(), "storefront"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
