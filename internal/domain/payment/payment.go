package payment

import (
	"time"

	domorder "example.com/map-storefront/internal/domain/order"
)

type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

// EventCheckoutCompleted is the only event type the fulfillment pipeline acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// LineItem is either an inline price (UnitAmount > 0) or a gateway price id.
type LineItem struct {
	Name       string
	UnitAmount int64
	Currency   string
	PriceID    string
	Quantity   int64
}

type SessionRequest struct {
	Mode              Mode
	LineItem          LineItem
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
	ShippingCountries []string
}

type Session struct {
	ID  string
	URL string
}

// SessionDetails is the subset of the gateway's full session record the
// pipeline depends on.
type SessionDetails struct {
	ID                 string
	Mode               Mode
	PaymentStatus      string
	SubscriptionStatus string
	Shipping           *domorder.Address
	CustomerEmail      string
}

// Paid applies the storefront's paid definition: settled payment for one-time
// sessions, active or trialing subscription for subscription sessions.
func (d *SessionDetails) Paid() bool {
	if d == nil {
		return false
	}
	switch d.Mode {
	case ModeSubscription:
		return d.SubscriptionStatus == "active" || d.SubscriptionStatus == "trialing"
	default:
		return d.PaymentStatus == "paid"
	}
}

type Event struct {
	ID        string
	Type      string
	SessionID string
}

// Verification is a memoized paid/not-paid answer. Transient marks answers
// produced by a gateway failure rather than by the session's real state.
type Verification struct {
	SessionID string
	Paid      bool
	Transient bool
	CheckedAt time.Time
}

// PriceType selects one of the preconfigured gateway prices.
type PriceType string

const (
	PriceSingle       PriceType = "single"
	PriceSubscription PriceType = "subscription"
)

func (p PriceType) IsValid() bool {
	return p == PriceSingle || p == PriceSubscription
}
