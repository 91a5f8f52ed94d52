package checkout

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	domorder "example.com/map-storefront/internal/domain/order"
	dompayment "example.com/map-storefront/internal/domain/payment"
)

type Gateway interface {
	CreateSession(ctx context.Context, req dompayment.SessionRequest) (*dompayment.Session, error)
}

type PendingStore interface {
	Put(ctx context.Context, p *domorder.PendingOrder) error
}

type Config struct {
	PrintPriceCents    int64
	Currency           string
	ShippingCountries  []string
	SuccessURL         string
	CancelURL          string
	PriceSingle        string
	PriceSubscription  string
	// AllowedReturnHosts lists the hosts a price checkout may send customers
	// back to. Empty means the hosts of SuccessURL and CancelURL.
	AllowedReturnHosts []string
}

type Service struct {
	gateway     Gateway
	pending     PendingStore
	cfg         Config
	returnHosts map[string]struct{}
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(gateway Gateway, pending PendingStore, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:     gateway,
		pending:     pending,
		cfg:         cfg,
		returnHosts: returnHostSet(cfg),
		logger:      logger.With(zap.String("component", "checkout")),
		now:         time.Now,
	}
}

func returnHostSet(cfg Config) map[string]struct{} {
	hosts := cfg.AllowedReturnHosts
	if len(hosts) == 0 {
		for _, raw := range []string{cfg.SuccessURL, cfg.CancelURL} {
			if u, err := url.Parse(raw); err == nil && u.Host != "" {
				hosts = append(hosts, u.Host)
			}
		}
	}
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

type DesignInput struct {
	Design       domorder.Design
	ImageDataURL string
}

// CreateDesignCheckout opens a one-time payment session for a print and
// stashes the design until the payment webhook arrives. A failed stash does
// not undo the session: the gateway already issued it.
func (s *Service) CreateDesignCheckout(ctx context.Context, in DesignInput) (*dompayment.Session, error) {
	sess, err := s.gateway.CreateSession(ctx, dompayment.SessionRequest{
		Mode: dompayment.ModePayment,
		LineItem: dompayment.LineItem{
			Name:       in.Design.ProductLabel(),
			UnitAmount: s.cfg.PrintPriceCents,
			Currency:   s.cfg.Currency,
			Quantity:   1,
		},
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata: map[string]string{
			"cityName":  in.Design.CityName,
			"stateName": in.Design.StateName,
			"themeName": in.Design.ThemeName,
		},
		ShippingCountries: s.cfg.ShippingCountries,
	})
	if err != nil {
		return nil, err
	}

	if in.ImageDataURL == "" {
		s.logger.Warn("checkout created without image; nothing to fulfil", zap.String("session_id", sess.ID))
		return sess, nil
	}

	now := s.now()
	err = s.pending.Put(ctx, &domorder.PendingOrder{
		SessionID:    sess.ID,
		ImageDataURL: in.ImageDataURL,
		Design:       in.Design,
		Status:       domorder.PendingAwaitingPayment,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		s.logger.Error("store pending order", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return sess, nil
}

// CreatePriceCheckout opens a session for one of the configured prices and
// sends the customer back to returnURL either way.
func (s *Service) CreatePriceCheckout(ctx context.Context, priceType dompayment.PriceType, returnURL string) (*dompayment.Session, error) {
	if !priceType.IsValid() {
		return nil, dompayment.ErrInvalidPriceType
	}
	base, err := s.parseReturnURL(returnURL)
	if err != nil {
		s.logger.Warn("rejected return url", zap.String("return_url", returnURL))
		return nil, err
	}

	req := dompayment.SessionRequest{
		Mode:       dompayment.ModePayment,
		LineItem:   dompayment.LineItem{PriceID: s.cfg.PriceSingle, Quantity: 1},
		SuccessURL: withQuery(base, "success", "&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  withQuery(base, "canceled", ""),
		Metadata:   map[string]string{"priceType": string(priceType)},
	}
	if priceType == dompayment.PriceSubscription {
		req.Mode = dompayment.ModeSubscription
		req.LineItem.PriceID = s.cfg.PriceSubscription
	}
	if req.LineItem.PriceID == "" {
		s.logger.Error("price id not configured", zap.String("price_type", string(priceType)))
		return nil, dompayment.ErrGatewayUnavailable
	}

	return s.gateway.CreateSession(ctx, req)
}

// parseReturnURL accepts absolute http(s) URLs on an allowlisted host only,
// so checkout cannot be used to redirect customers off the storefront.
func (s *Service) parseReturnURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" || u.User != nil {
		return nil, dompayment.ErrInvalidReturnURL
	}
	if _, ok := s.returnHosts[strings.ToLower(u.Host)]; !ok {
		return nil, dompayment.ErrInvalidReturnURL
	}
	return u, nil
}

// withQuery sets flag=true on u and appends rawSuffix to the query verbatim.
// The fragment, if any, stays after the query.
func withQuery(u *url.URL, flag, rawSuffix string) string {
	cp := *u
	q := cp.Query()
	q.Del("session_id")
	q.Set(flag, "true")
	cp.RawQuery = q.Encode() + rawSuffix
	return cp.String()
}
