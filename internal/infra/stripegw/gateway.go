// Package stripegw adapts Stripe Checkout to the storefront's payment ports.
package stripegw

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"

	domorder "example.com/map-storefront/internal/domain/order"
	dompayment "example.com/map-storefront/internal/domain/payment"
)

type Config struct {
	SecretKey string
	// APIURL overrides the Stripe API endpoint, e.g. for stripe-mock.
	APIURL string
}

type Gateway struct {
	sessions *session.Client
	key      string
}

func NewGateway(cfg Config) *Gateway {
	var backend stripe.Backend
	if cfg.APIURL != "" {
		backend = stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(cfg.APIURL),
		})
	} else {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &Gateway{
		sessions: &session.Client{B: backend, Key: cfg.SecretKey},
		key:      cfg.SecretKey,
	}
}

func (g *Gateway) CreateSession(ctx context.Context, req dompayment.SessionRequest) (*dompayment.Session, error) {
	if g.key == "" {
		return nil, fmt.Errorf("%w: secret key not configured", dompayment.ErrGatewayUnavailable)
	}

	qty := req.LineItem.Quantity
	if qty <= 0 {
		qty = 1
	}
	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(qty)}
	if req.LineItem.PriceID != "" {
		item.Price = stripe.String(req.LineItem.PriceID)
	} else {
		currency := req.LineItem.Currency
		if currency == "" {
			currency = string(stripe.CurrencyUSD)
		}
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(req.LineItem.UnitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(req.LineItem.Name),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(req.Mode)),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{item},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if len(req.ShippingCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.ShippingCountries),
		}
	}

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", dompayment.ErrGatewayUnavailable, err)
	}
	return &dompayment.Session{ID: s.ID, URL: s.URL}, nil
}

// GetSession loads the full session record with its subscription expanded.
func (g *Gateway) GetSession(ctx context.Context, sessionID string) (*dompayment.SessionDetails, error) {
	if g.key == "" {
		return nil, fmt.Errorf("%w: secret key not configured", dompayment.ErrGatewayUnavailable)
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")

	s, err := g.sessions.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return nil, dompayment.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: get checkout session: %v", dompayment.ErrGatewayUnavailable, err)
	}
	return toDetails(s), nil
}

func toDetails(s *stripe.CheckoutSession) *dompayment.SessionDetails {
	d := &dompayment.SessionDetails{
		ID:            s.ID,
		Mode:          dompayment.Mode(s.Mode),
		PaymentStatus: string(s.PaymentStatus),
	}
	if s.Subscription != nil {
		d.SubscriptionStatus = string(s.Subscription.Status)
	}

	var email, phone string
	if s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
		phone = s.CustomerDetails.Phone
	}
	d.CustomerEmail = email

	if s.ShippingDetails != nil && s.ShippingDetails.Address != nil {
		a := s.ShippingDetails.Address
		d.Shipping = &domorder.Address{
			Name:        s.ShippingDetails.Name,
			Line1:       a.Line1,
			Line2:       a.Line2,
			City:        a.City,
			State:       a.State,
			PostalCode:  a.PostalCode,
			CountryCode: a.Country,
			Email:       email,
			Phone:       phone,
		}
	}
	return d
}
