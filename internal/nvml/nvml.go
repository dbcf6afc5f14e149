// Package nvml exposes NVIDIA GPUs as power sensors. The NVML library is a
// process-wide resource: it is loaded lazily on the first sensor and
// reference-counted so it is shut down only when the last sensor closes.
package nvml

import (
	"sync"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

type library struct {
	mu   sync.Mutex
	refs int
}

var lib library

func (l *library) acquire() error {
	errFactory := errors.New()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.refs == 0 {
		if ret := nvml.Init(); !isSuccess(ret) {
			return errFactory.Wrap(ErrInitFailed, newNVMLError(ret))
		}
	}
	l.refs++

	return nil
}

func (l *library) release() error {
	errFactory := errors.New()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.refs == 0 {
		return errFactory.New(ErrNotInitialized)
	}

	l.refs--
	if l.refs == 0 {
		if ret := nvml.Shutdown(); !isSuccess(ret) {
			return errFactory.Wrap(ErrShutdownFailed, newNVMLError(ret))
		}
	}

	return nil
}

func deviceCount() (int, error) {
	count, ret := nvml.DeviceGetCount()
	if !isSuccess(ret) {
		return 0, errors.New().Wrap(ErrDeviceCountFailed, newNVMLError(ret))
	}

	return count, nil
}

func deviceByIndex(index int) (nvml.Device, error) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if !isSuccess(ret) {
		return nil, errors.New().Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}

	return device, nil
}
