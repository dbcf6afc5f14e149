package nvml

import (
	"codeberg.org/mutker/powerwatch/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	// Initialization and Lifecycle Errors
	ErrNotInitialized = errors.ErrorCode("nvml_not_initialized")
	ErrInitFailed     = errors.ErrorCode("nvml_init_failed")
	ErrShutdownFailed = errors.ErrorCode("nvml_shutdown_failed")
	ErrSensorClosed   = errors.ErrorCode("nvml_sensor_closed")

	// Device Errors
	ErrDeviceNotFound    = errors.ErrorCode("nvml_device_not_found")
	ErrDeviceCountFailed = errors.ErrorCode("nvml_device_count_failed")
	ErrDeviceInfoFailed  = errors.ErrorCode("nvml_device_info_failed")
	ErrPowerReadFailed   = errors.ErrorCode("nvml_power_read_failed")
)

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e *nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// newNVMLError creates an error from an NVML return code
func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

// isSuccess checks if a Return value indicates success
func isSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}
