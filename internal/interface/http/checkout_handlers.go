package http

import (
	"net/http"

	domorder "example.com/map-storefront/internal/domain/order"
	dompayment "example.com/map-storefront/internal/domain/payment"
	checkoutuc "example.com/map-storefront/internal/usecase/checkout"
)

// Rendered designs arrive inline as data URLs.
const maxImageBody = 20 << 20

type checkoutRequest struct {
	CityName     string `json:"cityName" validate:"required,max=120"`
	StateName    string `json:"stateName" validate:"max=120"`
	ThemeName    string `json:"themeName" validate:"required,max=64"`
	ImageDataURL string `json:"imageDataUrl" validate:"omitempty,startswith=data:image/"`
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	var req checkoutRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	sess, err := a.checkoutSvc.CreateDesignCheckout(r.Context(), checkoutuc.DesignInput{
		Design: domorder.Design{
			CityName:  req.CityName,
			StateName: req.StateName,
			ThemeName: req.ThemeName,
		},
		ImageDataURL: req.ImageDataURL,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"url":       sess.URL,
	})
}

type createCheckoutRequest struct {
	PriceType string `json:"priceType" validate:"required"`
	ReturnURL string `json:"returnUrl" validate:"required,url"`
}

func (a *API) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	sess, err := a.checkoutSvc.CreatePriceCheckout(r.Context(), dompayment.PriceType(req.PriceType), req.ReturnURL)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": sess.URL})
}
