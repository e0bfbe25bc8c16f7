package issuance

import "errors"

var (
	ErrValidation     = errors.New("invalid purchase request")
	ErrNotFound       = errors.New("referenced record not found")
	ErrAmountMismatch = errors.New("confirmed amount is less than the expected total")
	ErrInternal       = errors.New("purchase could not be completed")
)
