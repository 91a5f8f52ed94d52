package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	dompayment "example.com/map-storefront/internal/domain/payment"
)

func TestScenarioD_UnknownSessionReadsPending(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(http.MethodGet, "/api/order-status?session_id=cs_never_seen", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"pending","mockupUrl":null,"printfulOrderId":null}`, rec.Body.String())
}

func TestOrderStatus_MissingSessionID(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(http.MethodGet, "/api/order-status", nil, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPayment(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	sessionID := h.checkout("Austin", "TX", "copper")

	rec := h.do(http.MethodGet, "/api/verify-payment?session_id="+sessionID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"paid":true}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/verify-payment?session_id=cs_missing", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"paid":false}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/verify-payment", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPayment_SubscriptionCachedWithinTTL(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := h.do(http.MethodPost, "/api/create-checkout", map[string]string{
		"priceType": "subscription",
		"returnUrl": "https://shop.example.test/account",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sessionID := "cs_test_1"
	h.gateway.update(sessionID, func(d *dompayment.SessionDetails) { d.SubscriptionStatus = "active" })

	check := func() bool {
		rec := h.do(http.MethodGet, "/api/verify-payment?session_id="+sessionID, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Paid bool `json:"paid"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Paid
	}

	require.True(t, check())
	h.gateway.update(sessionID, func(d *dompayment.SessionDetails) { d.SubscriptionStatus = "canceled" })
	require.True(t, check())
}
