package document

import "errors"

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrStorageError    = errors.New("storage error")
	ErrRecordNotFound  = errors.New("conversion record not found")
	ErrDuplicateRecord = errors.New("duplicate conversion record")
	ErrInvalidKey      = errors.New("invalid object key")
)
