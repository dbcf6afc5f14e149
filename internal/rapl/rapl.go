// Package rapl exposes Linux powercap (RAPL) zones as power sensors. A zone
// publishes a monotonically increasing energy counter in microjoules; power
// is derived from the counter delta between successive samples, taking
// counter wrap-around into account.
package rapl

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/logger"
	"codeberg.org/mutker/powerwatch/internal/sensor"
)

const (
	// DefaultRoot is where the kernel powercap framework lives.
	DefaultRoot = "/sys/class/powercap"

	energyFile   = "energy_uj"
	maxRangeFile = "max_energy_range_uj"
	nameFile     = "name"

	microJoulesPerJoule = 1e6
)

// PowerSensor reads one powercap zone. The first sample after attachment has
// no baseline yet and reports zero power.
type PowerSensor struct {
	name     string
	zonePath string
	maxRange int64

	mu         sync.Mutex
	lastEnergy int64
	lastTime   time.Time
}

// NewPowerSensor attaches to the zone directory and primes the energy
// baseline.
func NewPowerSensor(zonePath string) (*PowerSensor, error) {
	errFactory := errors.New()

	zoneName, err := readString(filepath.Join(zonePath, nameFile))
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidZone, err)
	}

	s := &PowerSensor{
		name:     "rapl/" + filepath.Base(zonePath) + "/" + zoneName,
		zonePath: zonePath,
	}

	// The wrap range is optional; without it a counter wrap is reported
	// as a zero-power sample instead of being reconstructed.
	if maxRange, err := readInt(filepath.Join(zonePath, maxRangeFile)); err == nil {
		s.maxRange = maxRange
	}

	energy, err := readInt(filepath.Join(zonePath, energyFile))
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidZone, err)
	}
	s.lastEnergy = energy
	s.lastTime = time.Now()

	logger.Debug().Str("sensor", s.name).Msg("RAPL power sensor attached")

	return s, nil
}

// ForAll attaches to every readable powercap zone under the default root.
// Zones without an energy counter (such as the bare controller directory)
// are skipped, as are zones the process may not read.
func ForAll() ([]*PowerSensor, error) {
	return forAll(DefaultRoot)
}

func forAll(root string) ([]*PowerSensor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.New().Wrap(ErrScanFailed, err)
	}

	var sensors []*PowerSensor
	for _, entry := range entries {
		zonePath := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(zonePath, energyFile)); err != nil {
			continue
		}

		s, err := NewPowerSensor(zonePath)
		if err != nil {
			logger.Warn().Err(err).Str("zone", zonePath).Msg("Skipping unreadable powercap zone")
			continue
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

	energy, err := readInt(filepath.Join(s.zonePath, energyFile))
	if err != nil {
		return sensor.Measurement{}, errFactory.Wrap(ErrReadFailed, err)
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()

	delta := energy - s.lastEnergy
	if delta < 0 && s.maxRange > 0 {
		delta += s.maxRange
	}

	var power float64
	if elapsed > 0 && delta >= 0 {
		power = float64(delta) / microJoulesPerJoule / elapsed
	}

	s.lastEnergy = energy
	s.lastTime = now

	return sensor.NewPowerMeasurement(s.name, resolution, power), nil
}

func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

func readInt(path string) (int64, error) {
	data, err := readString(path)
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(data, 10, 64)
}
