package stripegw

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	dompayment "example.com/map-storefront/internal/domain/payment"
)

// WebhookVerifier checks Stripe-Signature headers. It fails closed in
// production: without a signing secret nothing is accepted.
type WebhookVerifier struct {
	secret     string
	production bool
}

func NewWebhookVerifier(secret string, production bool) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, production: production}
}

func (v *WebhookVerifier) Verify(payload []byte, header string) (*dompayment.Event, error) {
	var ev stripe.Event
	switch {
	case v.secret != "":
		e, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
			Tolerance:                webhook.DefaultTolerance,
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dompayment.ErrInvalidSignature, err)
		}
		ev = e
	case v.production:
		return nil, dompayment.ErrWebhookNotConfigured
	default:
		// Local development only: accept unsigned events.
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", dompayment.ErrInvalidPayload, err)
		}
	}
	return toEvent(ev)
}

func toEvent(ev stripe.Event) (*dompayment.Event, error) {
	out := &dompayment.Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != dompayment.EventCheckoutCompleted {
		return out, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: event has no data object", dompayment.ErrInvalidPayload)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil || obj.ID == "" {
		return nil, fmt.Errorf("%w: checkout session id missing", dompayment.ErrInvalidPayload)
	}
	out.SessionID = obj.ID
	return out, nil
}
