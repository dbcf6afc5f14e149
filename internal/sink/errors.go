package sink

import "codeberg.org/mutker/powerwatch/internal/errors"

const (
	// Configuration Errors
	ErrInvalidPath = errors.ErrorCode("sink_invalid_path")

	// Storage Errors
	ErrStorageInit   = errors.ErrorCode("sink_storage_init_failed")
	ErrStorageAccess = errors.ErrorCode("sink_storage_access_failed")
	ErrStorageClose  = errors.ErrorCode("sink_storage_close_failed")

	// Operation Errors
	ErrWriteFailed       = errors.ErrorCode("sink_write_failed")
	ErrTransactionFailed = errors.ErrorCode("sink_transaction_failed")
)
