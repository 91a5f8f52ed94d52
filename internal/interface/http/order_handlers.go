package http

import (
	"net/http"

	domorder "example.com/map-storefront/internal/domain/order"
)

type orderStatusResponse struct {
	Status          domorder.State `json:"status"`
	MockupURL       *string        `json:"mockupUrl"`
	PrintfulOrderID *string        `json:"printfulOrderId"`
}

func (a *API) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, domorder.ErrEmptySessionID)
		return
	}

	st, err := a.orderSvc.GetStatus(r.Context(), sessionID)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, orderStatusResponse{
		Status:          st.State,
		MockupURL:       st.MockupURL,
		PrintfulOrderID: st.FulfillmentOrderID,
	})
}

func (a *API) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, domorder.ErrEmptySessionID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"paid": a.paymentSvc.VerifyPayment(r.Context(), sessionID),
	})
}
