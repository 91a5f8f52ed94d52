package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domoperator "example.com/map-storefront/internal/domain/operator"
	domorder "example.com/map-storefront/internal/domain/order"
	authuc "example.com/map-storefront/internal/usecase/auth"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	result, err := a.authSvc.Login(r.Context(), authuc.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":    result.Token,
		"operator": mapOperator(result.Operator),
	})
}

func (a *API) handleListPending(w http.ResponseWriter, r *http.Request) {
	status := domorder.PendingStatus(r.URL.Query().Get("status"))
	orders, err := a.orderSvc.ListPending(r.Context(), status)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	resp := make([]map[string]any, 0, len(orders))
	for _, p := range orders {
		resp = append(resp, mapPendingOrder(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (a *API) handleRetryFulfillment(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	outcome, err := a.fulfillmentSvc.Retry(r.Context(), sessionID)
	if errors.Is(err, domorder.ErrPendingOrderNotFound) {
		respondError(w, http.StatusNotFound, domorder.ErrPendingOrderNotFound)
		return
	}
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"outcome":   outcome,
		"completed": outcome.Completed(),
	})
}

func mapOperator(op *domoperator.Operator) map[string]any {
	return map[string]any{
		"email":     op.Email,
		"name":      op.Name,
		"role_code": op.RoleCode,
	}
}

// mapPendingOrder leaves out the image payload; it can be megabytes.
func mapPendingOrder(p *domorder.PendingOrder) map[string]any {
	return map[string]any{
		"session_id":  p.SessionID,
		"city_name":   p.Design.CityName,
		"state_name":  p.Design.StateName,
		"theme_name":  p.Design.ThemeName,
		"status":      p.Status,
		"failed_step": p.FailedStep,
		"attempts":    p.Attempts,
		"last_error":  p.LastError,
		"created_at":  p.CreatedAt.Format(time.RFC3339),
		"updated_at":  p.UpdatedAt.Format(time.RFC3339),
	}
}
