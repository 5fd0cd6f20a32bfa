package normalizer

import "errors"

var (
	ErrMalformedQuantity = errors.New("error malformed quantity")
	ErrColumnNotFound    = errors.New("error column not found")
)
