package collector

import "codeberg.org/mutker/powerwatch/internal/errors"

const (
	ErrInvalidSink     = errors.ErrorCode("collector_invalid_sink")
	ErrInvalidSensor   = errors.ErrorCode("collector_invalid_sensor")
	ErrInvalidInterval = errors.ErrorCode("collector_invalid_interval")
	ErrInvalidLabel    = errors.ErrorCode("collector_invalid_marker_label")
	ErrDisposed        = errors.ErrorCode("collector_disposed")
	ErrSinkFailure     = errors.ErrorCode("collector_sink_failure")
	ErrPushSetup       = errors.ErrorCode("collector_push_setup_failed")
)
