package pipeline

import "errors"

var (
	ErrListSource = errors.New("failed to list source prefix")
	ErrInvalidKey = errors.New("key is not a convertible object")
)
