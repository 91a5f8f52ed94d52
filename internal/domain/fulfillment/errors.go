package fulfillment

import (
	"errors"
	"fmt"
)

var (
	ErrUploadFailed        = errors.New("file upload failed")
	ErrOrderCreationFailed = errors.New("fulfillment order creation failed")
	ErrMockupFailed        = errors.New("mockup generation failed")
	ErrMockupTimeout       = fmt.Errorf("%w: timed out", ErrMockupFailed)
	ErrInvalidImage        = errors.New("invalid image data")
	ErrNotConfigured       = errors.New("fulfillment provider not configured")
)

// ProviderError carries the upstream status and body for server-side logs.
type ProviderError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.Status, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }
