package domain

import "errors"

var (
	ErrPriceNotFound   = errors.New("price not found")
	ErrHoldingNotFound = errors.New("holding not found")
	ErrInvalidHolding  = errors.New("invalid holding")
	ErrUnauthenticated = errors.New("unauthenticated")
)
