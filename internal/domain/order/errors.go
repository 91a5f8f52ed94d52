package order

import "errors"

var (
	ErrPendingOrderNotFound   = errors.New("no order data found")
	ErrCompletedOrderNotFound = errors.New("completed order not found")
	ErrMissingShippingAddress = errors.New("missing shipping address")
	ErrEmptySessionID         = errors.New("session id is required")
	ErrInvalidPendingStatus   = errors.New("invalid pending status")
)
