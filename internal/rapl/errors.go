package rapl

import "codeberg.org/mutker/powerwatch/internal/errors"

const (
	ErrInvalidZone = errors.ErrorCode("rapl_invalid_zone")
	ErrReadFailed  = errors.ErrorCode("rapl_read_failed")
	ErrScanFailed  = errors.ErrorCode("rapl_scan_failed")
)
