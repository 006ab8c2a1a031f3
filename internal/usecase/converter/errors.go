package converter

import "errors"

var (
	ErrNoStrategy      = errors.New("no conversion strategy for class")
	ErrUnknownClass    = errors.New("unknown format class")
	ErrStrategyPanic   = errors.New("conversion strategy panicked")
	ErrUnsupportedFile = errors.New("unsupported file extension")
)
