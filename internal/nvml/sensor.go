package nvml

import (
	"fmt"
	"sync"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/logger"
	"codeberg.org/mutker/powerwatch/internal/sensor"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const milliWattsToWatts = 1000

// PowerSensor reads the total board power draw of one GPU. NVML reports
// power only, so voltage and current are zero in every measurement.
type PowerSensor struct {
	name   string
	device nvml.Device

	mu     sync.Mutex
	closed bool
}

// NewPowerSensor creates a sensor for the GPU at the given NVML index and
// acquires the shared library handle.
func NewPowerSensor(index int) (*PowerSensor, error) {
	if err := lib.acquire(); err != nil {
		return nil, err
	}

	device, err := deviceByIndex(index)
	if err != nil {
		lib.release()
		return nil, err
	}

	name := fmt.Sprintf("nvml/%d", index)
	if uuid, ret := device.GetUUID(); isSuccess(ret) {
		name = "nvml/" + uuid
	}

	if deviceName, ret := device.GetName(); isSuccess(ret) {
		logger.Debug().Str("sensor", name).Str("device", deviceName).Msg("NVML power sensor attached")
	}

	return &PowerSensor{
		name:   name,
		device: device,
	}, nil
}

// ForAll creates one power sensor per GPU visible to NVML.
func ForAll() ([]*PowerSensor, error) {
	if err := lib.acquire(); err != nil {
		return nil, err
	}
	defer lib.release()

	count, err := deviceCount()
	if err != nil {
		return nil, err
	}

	sensors := make([]*PowerSensor, 0, count)
	for i := 0; i < count; i++ {
		s, err := NewPowerSensor(i)
		if err != nil {
			for _, created := range sensors {
				created.Close()
			}
			return nil, err
		}
		sensors = append(sensors, s)
	}

	return sensors, nil
}

func (s *PowerSensor) Name() string {
	return s.name
}

func (s *PowerSensor) Sample(resolution sensor.Resolution) (sensor.Measurement, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return sensor.Measurement{}, errFactory.New(ErrSensorClosed)
	}

	milliWatts, ret := s.device.GetPowerUsage()
	if !isSuccess(ret) {
		return sensor.Measurement{}, errFactory.Wrap(ErrPowerReadFailed, newNVMLError(ret))
	}

	power := float64(milliWatts) / milliWattsToWatts

	return sensor.NewPowerMeasurement(s.name, resolution, power), nil
}

// Close releases the sensor's reference on the NVML library.
func (s *PowerSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return lib.release()
}
