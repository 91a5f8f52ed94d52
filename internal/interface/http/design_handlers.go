package http

import (
	"net/http"
	"path"
	"strings"

	domrender "example.com/map-storefront/internal/domain/render"
)

type generateMockupRequest struct {
	ImageDataURL string `json:"imageDataUrl" validate:"required,startswith=data:image/"`
	Filename     string `json:"filename" validate:"max=128"`
}

func (a *API) handleGenerateMockup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	var req generateMockupRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	url, err := a.fulfillmentSvc.GenerateMockup(r.Context(), req.ImageDataURL, sanitizeFilename(req.Filename))
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"mockupUrl": url})
}

// sanitizeFilename keeps the base name and drops anything outside
// [A-Za-z0-9._-]. An empty result lets the service pick a name.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
			b.WriteRune(c)
		}
	}
	return strings.TrimLeft(b.String(), ".")
}

type renderRequest struct {
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Zoom    float64  `json:"zoom" validate:"gte=0,lte=22"`
	ThemeID string   `json:"themeId" validate:"required,max=64"`
	Width   int      `json:"width" validate:"omitempty,min=64,max=8192"`
	Height  int      `json:"height" validate:"omitempty,min=64,max=8192"`
}

func (a *API) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	img, err := a.renderSvc.Render(r.Context(), domrender.Request{
		Lat:     *req.Lat,
		Lng:     *req.Lng,
		Zoom:    req.Zoom,
		ThemeID: req.ThemeID,
		Width:   req.Width,
		Height:  req.Height,
	})
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"imageDataUrl": img.DataURL})
}

// handlePublicConfig exposes only values that are meant for the browser.
func (a *API) handlePublicConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mapboxToken": a.mapboxToken})
}
