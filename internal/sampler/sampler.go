// Package sampler drives heterogeneous sensors at independent rates. Sensors
// sharing an interval are grouped into one context; each context runs its own
// sampling goroutine so that a slow sensor at one rate never stalls sensors
// at another.
package sampler

import (
	"sync"
	"time"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/sensor"
)

// Sampler partitions sensors by sampling interval and delivers every sample
// to a per-sensor callback. All methods are safe for concurrent use.
type Sampler struct {
	resolution sensor.Resolution
	mu         sync.Mutex
	contexts   []*samplingContext
	stop       chan struct{}
	disposed   bool
}

// New creates a sampler whose measurements are timestamped with the given
// resolution.
func New(resolution sensor.Resolution) (*Sampler, error) {
	errFactory := errors.New()

	if !resolution.IsValid() {
		return nil, errFactory.WithData(sensor.ErrInvalidResolution, resolution.String())
	}

	return &Sampler{
		resolution: resolution,
		stop:       make(chan struct{}),
	}, nil
}

// Add registers a sensor in the context for the given interval, creating the
// context on first use. It returns false without error when the sensor is
// already registered at that interval. The same sensor may be registered at
// several intervals to observe it at multiple rates.
func (s *Sampler) Add(sen sensor.Sensor, cb sensor.Callback, interval time.Duration) (bool, error) {
	errFactory := errors.New()

	if sen == nil || sen.Name() == "" {
		return false, errFactory.New(ErrInvalidSensor)
	}
	if cb == nil {
		return false, errFactory.New(ErrInvalidCallback)
	}
	if interval <= 0 {
		return false, errFactory.WithData(ErrInvalidInterval, interval.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return false, errFactory.New(ErrDisposed)
	}

	for _, c := range s.contexts {
		if c.interval == interval {
			return c.add(sen, cb), nil
		}
	}

	// No context for this interval yet; contexts are created lazily and
	// live for the rest of the sampler's lifetime, even when emptied.
	c := newSamplingContext(interval, s.resolution, s.stop)
	s.contexts = append(s.contexts, c)

	return c.add(sen, cb), nil
}

// Remove unregisters the sensor from every context that holds it and reports
// whether any registration was removed. Emptied contexts keep existing; their
// loops terminate on their own once they observe the empty registry.
func (s *Sampler) Remove(sen sensor.Sensor) bool {
	if sen == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return false
	}

	removed := false
	for _, c := range s.contexts {
		if c.remove(sen.Name()) {
			removed = true
		}
	}

	return removed
}

// Samples reports whether the sensor is currently registered in at least one
// context.
func (s *Sampler) Samples(sen sensor.Sensor) bool {
	if sen == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return false
	}

	for _, c := range s.contexts {
		if c.holds(sen.Name()) {
			return true
		}
	}

	return false
}

// Valid reports whether the sampler is still usable.
func (s *Sampler) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.disposed
}

// Close disposes the sampler. Every running context loop is signalled to
// drain and no goroutine outlives the sampler. Close is idempotent; mutating
// calls after Close fail with a disposed-instance error.
func (s *Sampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil
	}
	s.disposed = true
	close(s.stop)

	return nil
}
