package document

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidFileName   = errors.New("invalid file name")
	ErrFileTooLarge      = errors.New("file too large")
	ErrDocumentNotFound  = errors.New("converted document not found")
	ErrLedgerDisabled    = errors.New("conversion ledger is disabled")
	ErrRunInProgress     = errors.New("a conversion run is already in progress")
	ErrStorageError      = errors.New("storage error")
	ErrMessageQueueError = errors.New("message queue error")
)
