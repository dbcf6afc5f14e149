package sampler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/sampler"
	"codeberg.org/mutker/powerwatch/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSensor struct {
	name    string
	power   float64
	fail    atomic.Bool
	samples atomic.Int64
}

func (f *fakeSensor) Name() string { return f.name }

func (f *fakeSensor) Sample(resolution sensor.Resolution) (sensor.Measurement, error) {
	f.samples.Add(1)
	if f.fail.Load() {
		return sensor.Measurement{}, errors.New().New(errors.ErrDeviceFault)
	}

	return sensor.NewPowerMeasurement(f.name, resolution, f.power), nil
}

func discard(sensor.Measurement, error) {}

func newSampler(t *testing.T) *sampler.Sampler {
	t.Helper()

	s, err := sampler.New(sensor.ResolutionMilliseconds)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestAddValidation(t *testing.T) {
	s := newSampler(t)

	_, err := s.Add(nil, discard, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sampler.ErrInvalidSensor))

	_, err = s.Add(&fakeSensor{name: "fake/0"}, nil, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sampler.ErrInvalidCallback))

	_, err = s.Add(&fakeSensor{name: "fake/0"}, discard, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sampler.ErrInvalidInterval))
}

func TestAddDuplicateReturnsFalse(t *testing.T) {
	s := newSampler(t)
	fake := &fakeSensor{name: "fake/0"}

	added, err := s.Add(fake, discard, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(fake, discard, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, added, "second add at the same interval must be rejected")
}

func TestAddSameSensorAtTwoRates(t *testing.T) {
	s := newSampler(t)
	fake := &fakeSensor{name: "fake/0"}

	added, err := s.Add(fake, discard, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(fake, discard, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, added, "distinct intervals may independently hold the same sensor")

	assert.True(t, s.Samples(fake))
	assert.True(t, s.Remove(fake), "remove must clear the sensor from every interval")
	assert.False(t, s.Samples(fake))
}

func TestRemoveAbsentReturnsFalse(t *testing.T) {
	s := newSampler(t)

	assert.False(t, s.Remove(&fakeSensor{name: "fake/0"}))
	assert.False(t, s.Remove(nil))
}

func TestSamplesMembership(t *testing.T) {
	s := newSampler(t)
	fake := &fakeSensor{name: "fake/0"}

	assert.False(t, s.Samples(fake))

	_, err := s.Add(fake, discard, 25*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, s.Samples(fake))

	s.Remove(fake)
	assert.False(t, s.Samples(fake))
	assert.False(t, s.Samples(nil))
}

func TestCallbackCadence(t *testing.T) {
	s := newSampler(t)
	fake := &fakeSensor{name: "fake/0", power: 12}

	var ticks atomic.Int64
	_, err := s.Add(fake, func(m sensor.Measurement, err error) {
		assert.NoError(t, err)
		assert.Equal(t, "fake/0", m.Sensor)
		ticks.Add(1)
	}, 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(210 * time.Millisecond)
	s.Remove(fake)

	got := ticks.Load()
	assert.GreaterOrEqual(t, got, int64(5), "expected roughly one tick per interval")
	assert.LessOrEqual(t, got, int64(13))
}

func TestFaultEndsTickEarly(t *testing.T) {
	s := newSampler(t)

	failing := &fakeSensor{name: "fake/failing"}
	failing.fail.Store(true)
	healthy := &fakeSensor{name: "fake/healthy"}

	var faults atomic.Int64
	_, err := s.Add(failing, func(_ sensor.Measurement, err error) {
		assert.Error(t, err)
		assert.True(t, errors.HasCode(err, sensor.ErrSampleFailed))
		faults.Add(1)
	}, 10*time.Millisecond)
	require.NoError(t, err)

	_, err = s.Add(healthy, discard, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	s.Remove(failing)
	s.Remove(healthy)

	assert.Greater(t, faults.Load(), int64(0))
	assert.Zero(t, healthy.samples.Load(),
		"a fault must end the tick before later registrations are sampled")
}

func TestLoopStopsWhenEmptied(t *testing.T) {
	s := newSampler(t)
	fake := &fakeSensor{name: "fake/0"}

	_, err := s.Add(fake, discard, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.True(t, s.Remove(fake))

	// Give the loop one interval to observe the empty registry, then make
	// sure sampling has ceased.
	time.Sleep(30 * time.Millisecond)
	settled := fake.samples.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, fake.samples.Load())
}

func TestEmptiedContextRestarts(t *testing.T) {
	s := newSampler(t)
	fake := &fakeSensor{name: "fake/0"}

	_, err := s.Add(fake, discard, 10*time.Millisecond)
	require.NoError(t, err)
	s.Remove(fake)
	time.Sleep(30 * time.Millisecond)

	before := fake.samples.Load()
	added, err := s.Add(fake, discard, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, added)

	time.Sleep(50 * time.Millisecond)
	assert.Greater(t, fake.samples.Load(), before, "re-adding must restart the context loop")
}

func TestCloseDisposes(t *testing.T) {
	s, err := sampler.New(sensor.ResolutionMilliseconds)
	require.NoError(t, err)

	fake := &fakeSensor{name: "fake/0"}
	_, err = s.Add(fake, discard, 10*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, s.Valid())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close must be idempotent")
	assert.False(t, s.Valid())

	_, err = s.Add(&fakeSensor{name: "fake/1"}, discard, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sampler.ErrDisposed))
	assert.False(t, s.Samples(fake))
	assert.False(t, s.Remove(fake))

	// The context loop must drain promptly after close.
	time.Sleep(30 * time.Millisecond)
	settled := fake.samples.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, fake.samples.Load())
}

func TestInvalidResolution(t *testing.T) {
	_, err := sampler.New(sensor.Resolution("centuries"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrInvalidResolution))
}
