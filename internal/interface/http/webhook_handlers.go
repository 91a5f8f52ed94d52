package http

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"example.com/map-storefront/internal/pkg/logging"
)

const maxWebhookBody = 1 << 20

// handlePaymentWebhook acknowledges every verified event it does not reject
// outright. Failures past the shipping check are recorded on the pending
// order instead of being surfaced, so the gateway never redelivers into a
// duplicate print order.
func (a *API) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	ev, err := a.webhooks.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	outcome, err := a.fulfillmentSvc.HandleEvent(r.Context(), ev)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("payment webhook handled",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("session_id", ev.SessionID),
		zap.String("outcome", string(outcome)))

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
