package payment

import "errors"

var (
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrWebhookNotConfigured = errors.New("webhook signing secret not configured")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrSessionNotFound      = errors.New("payment session not found")
	ErrInvalidPriceType     = errors.New("invalid price type")
	ErrInvalidReturnURL     = errors.New("invalid return url")
)
