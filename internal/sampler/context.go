package sampler

import (
	"sync"
	"time"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/sensor"
)

type contextState int

const (
	stateIdle contextState = iota
	stateRunning
	stateDraining
)

type registration struct {
	name     string
	sensor   sensor.Sensor
	callback sensor.Callback
}

// samplingContext groups the sensors sharing one sampling interval. Its loop
// runs while the registry is non-empty and ticks on an absolute deadline so
// that callback execution time does not accumulate as drift.
type samplingContext struct {
	interval   time.Duration
	resolution sensor.Resolution
	stop       <-chan struct{}

	mu      sync.Mutex
	entries []registration
	state   contextState
}

func newSamplingContext(interval time.Duration, resolution sensor.Resolution, stop <-chan struct{}) *samplingContext {
	return &samplingContext{
		interval:   interval,
		resolution: resolution,
		stop:       stop,
	}
}

func (c *samplingContext) add(sen sensor.Sensor, cb sensor.Callback) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := sen.Name()
	for _, e := range c.entries {
		if e.name == name {
			// Already being sampled at this interval; nothing to do.
			return false
		}
	}

	c.entries = append(c.entries, registration{name: name, sensor: sen, callback: cb})

	if c.state == stateIdle {
		c.state = stateRunning
		go c.run()
	}

	return true
}

func (c *samplingContext) remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.name == name {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}

	return false
}

func (c *samplingContext) holds(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.name == name {
			return true
		}
	}

	return false
}

// run executes the sampling loop. Sensors are visited in insertion order
// under the context lock. A sample fault is delivered to the failing
// sensor's callback as the failure variant and ends the tick early, so
// sensors registered after it are skipped for that iteration. The loop exits
// on its own once the registry is empty, or drains when the owning sampler
// closes.
func (c *samplingContext) run() {
	errFactory := errors.New()

	for {
		start := time.Now()

		c.mu.Lock()
		for _, e := range c.entries {
			m, err := e.sensor.Sample(c.resolution)
			if err != nil {
				e.callback(sensor.Measurement{Sensor: e.name}, errFactory.Wrap(sensor.ErrSampleFailed, err))
				break
			}
			e.callback(m, nil)
		}

		if len(c.entries) == 0 {
			c.state = stateIdle
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		select {
		case <-c.stop:
			c.mu.Lock()
			c.state = stateDraining
			c.mu.Unlock()
			return
		case <-time.After(time.Until(start.Add(c.interval))):
		}
	}
}
