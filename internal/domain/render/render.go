package render

import "errors"

var (
	ErrUnknownTheme  = errors.New("unknown theme")
	ErrNotConfigured = errors.New("renderer not configured")
	ErrRenderFailed  = errors.New("render failed")
	ErrRenderTimeout = errors.New("render timed out")
)

// Request describes one map view to rasterize. Values are validated before
// they reach the renderer.
type Request struct {
	Lat     float64
	Lng     float64
	Zoom    float64
	ThemeID string
	Width   int
	Height  int
}

type Image struct {
	DataURL string
}
