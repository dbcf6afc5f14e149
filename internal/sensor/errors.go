package sensor

import "codeberg.org/mutker/powerwatch/internal/errors"

const (
	ErrInvalidSensor     = errors.ErrorCode("sensor_invalid_sensor")
	ErrInvalidCallback   = errors.ErrorCode("sensor_invalid_callback")
	ErrInvalidResolution = errors.ErrorCode("sensor_invalid_resolution")
	ErrSampleFailed      = errors.ErrorCode("sensor_sample_failed")
)
