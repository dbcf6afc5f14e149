// Package collector owns a fixed set of sensors, samples or receives their
// measurements, buffers them under a marker-based retention policy and
// persists them through an asynchronous writer goroutine. Producers never
// block on storage: the writer swaps the buffer out under the lock and
// serializes the batch on its own time.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/logger"
	"codeberg.org/mutker/powerwatch/internal/monitoring"
	"codeberg.org/mutker/powerwatch/internal/sensor"
	"codeberg.org/mutker/powerwatch/internal/sink"
)

const defaultFlushInterval = time.Second

// Config carries the collection parameters.
type Config struct {
	// Interval is the polling period for synchronous sensors.
	Interval time.Duration

	// Resolution tags the timestamps of polled measurements.
	Resolution sensor.Resolution

	// RequireMarker discards measurements arriving while no marker is
	// active, so idle periods do not accumulate unattributed data.
	RequireMarker bool

	// FlushInterval bounds how stale buffered data may become before the
	// writer drains it regardless of volume. Zero selects a default.
	FlushInterval time.Duration
}

type marker struct {
	label  string
	offset int
}

// Collector buffers measurements from polled and push sensors and drains
// them to an output sink. All exported methods are safe for concurrent use.
type Collector struct {
	cfg     Config
	sensors []sensor.Sensor
	polled  []sensor.Sensor
	pushed  []sensor.PushSensor
	sink    sink.Sink

	mu           sync.Mutex
	buffer       []sensor.Measurement
	markers      []marker
	spareBuffer  []sensor.Measurement
	spareMarkers []marker

	running    atomic.Bool
	haveMarker atomic.Bool
	disposed   atomic.Bool
	failed     atomic.Bool

	lifecycle sync.Mutex
	started   bool
	quit      chan struct{}
	wake      chan struct{}
	wg        sync.WaitGroup

	errMu    sync.Mutex
	writeErr error
}

// New creates a collector over the given sensors. Sensors implementing
// sensor.PushSensor deliver measurements themselves once started; all others
// are polled at the configured interval.
func New(cfg Config, snk sink.Sink, sensors ...sensor.Sensor) (*Collector, error) {
	errFactory := errors.New()

	if snk == nil {
		return nil, errFactory.New(ErrInvalidSink)
	}
	if cfg.Interval <= 0 {
		return nil, errFactory.WithData(ErrInvalidInterval, cfg.Interval.String())
	}
	if !cfg.Resolution.IsValid() {
		return nil, errFactory.WithData(sensor.ErrInvalidResolution, cfg.Resolution.String())
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}

	c := &Collector{
		cfg:  cfg,
		sink: snk,
		wake: make(chan struct{}, 1),
	}

	for _, sen := range sensors {
		if sen == nil || sen.Name() == "" {
			return nil, errFactory.New(ErrInvalidSensor)
		}

		c.sensors = append(c.sensors, sen)
		if ps, ok := sen.(sensor.PushSensor); ok {
			c.pushed = append(c.pushed, ps)
		} else {
			c.polled = append(c.polled, sen)
		}
	}

	return c, nil
}

// Start launches the polling and writer goroutines and enables push delivery
// on sensors that support it. Starting an already-started collector is a
// no-op.
func (c *Collector) Start() error {
	errFactory := errors.New()

	if c.disposed.Load() {
		return errFactory.New(ErrDisposed)
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.failed.Load() {
		return errFactory.New(ErrSinkFailure)
	}
	if c.started {
		return nil
	}

	c.quit = make(chan struct{})
	c.started = true
	c.running.Store(true)

	for i, ps := range c.pushed {
		if err := ps.EnablePush(c.receive); err != nil {
			for _, enabled := range c.pushed[:i] {
				enabled.DisablePush()
			}
			c.started = false
			c.running.Store(false)

			return errFactory.Wrap(ErrPushSetup, err)
		}
	}

	c.wg.Add(2)
	go c.collect(c.quit)
	go c.write(c.quit)

	logger.Debug().
		Int("polled", len(c.polled)).
		Int("pushed", len(c.pushed)).
		Str("interval", c.cfg.Interval.String()).
		Msg("Collector started")

	return nil
}

// Stop halts collection, waits for the final drain and joins both
// goroutines. After Stop returns, the sink reflects every measurement that
// was validly buffered. Stop is safe on stopped and disposed collectors.
func (c *Collector) Stop() error {
	c.lifecycle.Lock()
	if !c.started {
		c.lifecycle.Unlock()
		return c.writeError()
	}
	c.started = false
	c.running.Store(false)
	close(c.quit)
	c.lifecycle.Unlock()

	c.wg.Wait()

	for _, ps := range c.pushed {
		if err := ps.DisablePush(); err != nil {
			logger.Warn().Err(err).Str("sensor", ps.Name()).Msg("Failed to disable push delivery")
		}
	}

	return c.writeError()
}

// Marker records a named checkpoint at the current buffer position and
// permits buffering from here on. Markers may be set before the collector is
// started; an empty label is rejected.
func (c *Collector) Marker(label string) error {
	errFactory := errors.New()

	if c.disposed.Load() {
		return errFactory.New(ErrDisposed)
	}
	if label == "" {
		return errFactory.New(ErrInvalidLabel)
	}

	c.mu.Lock()
	c.markers = append(c.markers, marker{label: label, offset: len(c.buffer)})
	c.mu.Unlock()
	c.haveMarker.Store(true)

	c.signalWriter()

	return nil
}

// Accept buffers one measurement, subject to the retention policy. It is the
// shared entry point for the polling loop and push callbacks and only admits
// data while the collector is running.
func (c *Collector) Accept(m sensor.Measurement) {
	if !c.running.Load() {
		return
	}

	c.mu.Lock()
	if c.cfg.RequireMarker && !c.haveMarker.Load() {
		c.mu.Unlock()
		monitoring.SamplesDropped.Inc()
		return
	}
	c.buffer = append(c.buffer, m)
	monitoring.BufferDepth.Set(float64(len(c.buffer)))
	c.mu.Unlock()

	monitoring.SamplesTaken.WithLabelValues(m.Sensor).Inc()
	c.signalWriter()
}

// Size returns the number of owned sensors; zero once the collector has been
// disposed or stopped by a sink failure.
func (c *Collector) Size() int {
	if c.disposed.Load() || c.failed.Load() {
		return 0
	}

	return len(c.sensors)
}

// Valid reports whether the collector is still usable.
func (c *Collector) Valid() bool {
	return !c.disposed.Load() && !c.failed.Load()
}

// Close stops the collector and disposes it. Every subsequent mutating call
// fails with a disposed-instance error. Close is idempotent.
func (c *Collector) Close() error {
	if c.disposed.Load() {
		return nil
	}

	err := c.Stop()
	c.disposed.Store(true)

	return err
}

func (c *Collector) receive(m sensor.Measurement, err error) {
	if err != nil {
		monitoring.SampleFaults.WithLabelValues(m.Sensor).Inc()
		logger.Warn().Err(err).Str("sensor", m.Sensor).Msg("Push sensor fault")
		return
	}

	c.Accept(m)
}

func (c *Collector) signalWriter() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// collect polls the synchronous sensors. A fault on one sensor is logged and
// the tick continues with the remaining sensors; faults never terminate the
// loop.
func (c *Collector) collect(quit <-chan struct{}) {
	defer c.wg.Done()

	for c.running.Load() {
		for _, sen := range c.polled {
			m, err := sen.Sample(c.cfg.Resolution)
			if err != nil {
				monitoring.SampleFaults.WithLabelValues(sen.Name()).Inc()
				logger.Warn().Err(err).Str("sensor", sen.Name()).Msg("Sensor fault")
				continue
			}

			c.Accept(m)
		}

		select {
		case <-quit:
			return
		case <-time.After(c.cfg.Interval):
		}
	}
}

// write drains the buffer on wake-up, on the staleness ticker and one final
// time on shutdown. A sink fault is terminal: the collector transitions to a
// stopped, invalid state rather than spin on a broken destination.
func (c *Collector) write(quit <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.wake:
		case <-ticker.C:
		case <-quit:
			if err := c.drain(); err != nil {
				c.fail(err)
			}
			return
		}

		if err := c.drain(); err != nil {
			c.fail(err)
			return
		}
	}
}

// drain swaps the buffer and marker list for empty spares under the lock and
// serializes the swapped-out batch, interleaving markers at their recorded
// offsets. The hand-off avoids copying the batch while holding the lock; the
// drained containers become the spares for the next swap.
func (c *Collector) drain() error {
	c.mu.Lock()
	if len(c.buffer) == 0 && len(c.markers) == 0 {
		c.mu.Unlock()
		return nil
	}

	batch, marks := c.buffer, c.markers
	c.buffer, c.markers = c.spareBuffer[:0], c.spareMarkers[:0]
	monitoring.BufferDepth.Set(0)
	c.mu.Unlock()

	mi := 0
	for i, m := range batch {
		for mi < len(marks) && marks[mi].offset <= i {
			if err := c.sink.WriteMarker(marks[mi].label); err != nil {
				return err
			}
			mi++
		}

		if err := c.sink.WriteMeasurement(m); err != nil {
			return err
		}
	}
	for ; mi < len(marks); mi++ {
		if err := c.sink.WriteMarker(marks[mi].label); err != nil {
			return err
		}
	}

	if err := c.sink.Flush(); err != nil {
		return err
	}

	monitoring.BatchesFlushed.Inc()
	monitoring.RecordsWritten.Add(float64(len(batch)))

	c.spareBuffer, c.spareMarkers = batch[:0], marks[:0]

	return nil
}

func (c *Collector) fail(err error) {
	monitoring.SinkErrors.Inc()
	c.failed.Store(true)
	c.running.Store(false)

	c.errMu.Lock()
	if c.writeErr == nil {
		c.writeErr = errors.New().Wrap(ErrSinkFailure, err)
	}
	c.errMu.Unlock()

	logger.Error().Err(err).Msg("Output sink failure; collector stopped")
}

func (c *Collector) writeError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	return c.writeErr
}
