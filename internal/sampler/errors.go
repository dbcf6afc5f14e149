package sampler

import "codeberg.org/mutker/powerwatch/internal/errors"

const (
	ErrInvalidSensor   = errors.ErrorCode("sampler_invalid_sensor")
	ErrInvalidCallback = errors.ErrorCode("sampler_invalid_callback")
	ErrInvalidInterval = errors.ErrorCode("sampler_invalid_interval")
	ErrDisposed        = errors.ErrorCode("sampler_disposed")
)
