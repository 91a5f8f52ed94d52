package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	domoperator "example.com/map-storefront/internal/domain/operator"
	domorder "example.com/map-storefront/internal/domain/order"
	"example.com/map-storefront/internal/infra/printful/printfultest"
)

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(http.MethodPost, "/api/admin/login", map[string]string{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token    string         `json:"token"`
		Operator map[string]any `json:"operator"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "ADMIN", resp.Operator["role_code"])

	claims, err := h.tokens.ParseToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, testAdminEmail, claims.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(http.MethodPost, "/api/admin/login", map[string]string{
		"email":    testAdminEmail,
		"password": "not-the-password",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(http.MethodGet, "/api/admin/orders/pending", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/orders/pending", nil, bearer("garbage"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListPending_OmitsImageData(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	sessionID := h.checkout("Austin", "TX", "copper")

	rec := h.do(http.MethodGet, "/api/admin/orders/pending", nil, bearer(h.adminToken(domoperator.RoleSupport)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "base64")

	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, sessionID, resp.Data[0]["session_id"])
	require.Equal(t, "awaiting_payment", resp.Data[0]["status"])

	rec = h.do(http.MethodGet, "/api/admin/orders/pending?status=bogus", nil, bearer(h.adminToken(domoperator.RoleSupport)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetry_RecoversSilentFailure(t *testing.T) {
	h := newHarness(t, harnessOptions{webhookSecret: testWebhookSecret})
	h.printful.Set(func(s *printfultest.Server) { s.OrderStatus = http.StatusInternalServerError })
	sessionID := h.checkout("Austin", "TX", "copper")

	payload := completedEventPayload(sessionID)
	rec := h.deliverWebhook(payload, signPayload(payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, rec.Code)

	p, err := h.pending.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, domorder.StepOrder, p.FailedStep)

	h.printful.Set(func(s *printfultest.Server) { s.OrderStatus = 0 })
	rec = h.do(http.MethodPost, "/api/admin/orders/"+sessionID+"/retry", nil, bearer(h.adminToken(domoperator.RoleAdmin)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"sessionId":"`+sessionID+`","outcome":"completed_with_mockup","completed":true}`, rec.Body.String())
	require.Equal(t, "completed", h.orderStatus(sessionID)["status"])
}

func TestRetry_Authorization(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(http.MethodPost, "/api/admin/orders/cs_x/retry", nil, bearer(h.adminToken(domoperator.RoleSupport)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/admin/orders/cs_x/retry", nil, bearer(h.adminToken(domoperator.RoleAdmin)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
