package sensor_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/powerwatch/internal/sensor"
	"github.com/stretchr/testify/assert"
)

func TestResolutionIsValid(t *testing.T) {
	assert.True(t, sensor.ResolutionSeconds.IsValid())
	assert.True(t, sensor.ResolutionMilliseconds.IsValid())
	assert.True(t, sensor.ResolutionMicroseconds.IsValid())
	assert.True(t, sensor.ResolutionNanoseconds.IsValid())
	assert.False(t, sensor.Resolution("fortnights").IsValid())
	assert.False(t, sensor.Resolution("").IsValid())
}

func TestFromTime(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 30, 15, 250_000_000, time.UTC)

	ts := sensor.FromTime(ref, sensor.ResolutionSeconds)
	assert.Equal(t, ref.Unix(), ts.Value)

	ts = sensor.FromTime(ref, sensor.ResolutionMilliseconds)
	assert.Equal(t, ref.UnixMilli(), ts.Value)

	ts = sensor.FromTime(ref, sensor.ResolutionMicroseconds)
	assert.Equal(t, ref.UnixMicro(), ts.Value)

	ts = sensor.FromTime(ref, sensor.ResolutionNanoseconds)
	assert.Equal(t, ref.UnixNano(), ts.Value)
}

func TestTimestampRoundTrip(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 30, 15, 250_000_000, time.UTC)

	for _, resolution := range []sensor.Resolution{
		sensor.ResolutionSeconds,
		sensor.ResolutionMilliseconds,
		sensor.ResolutionMicroseconds,
		sensor.ResolutionNanoseconds,
	} {
		ts := sensor.FromTime(ref, resolution)

		// The round trip may only lose sub-resolution precision.
		assert.LessOrEqual(t, ref.Sub(ts.Time()), resolutionOf(resolution),
			"round trip for %s", resolution)
		assert.GreaterOrEqual(t, ref.Sub(ts.Time()), time.Duration(0),
			"truncation never moves a timestamp forward for %s", resolution)
	}
}

func TestNowTracksWallClock(t *testing.T) {
	before := time.Now()
	ts := sensor.Now(sensor.ResolutionMicroseconds)
	after := time.Now()

	assert.GreaterOrEqual(t, ts.Value, before.UnixMicro())
	assert.LessOrEqual(t, ts.Value, after.UnixMicro())
}

func TestNewPowerMeasurement(t *testing.T) {
	m := sensor.NewPowerMeasurement("nvml/GPU-0", sensor.ResolutionMilliseconds, 42.5)

	assert.Equal(t, "nvml/GPU-0", m.Sensor)
	assert.InDelta(t, 42.5, m.Power, 1e-9)
	assert.Zero(t, m.Voltage)
	assert.Zero(t, m.Current)
	assert.Equal(t, sensor.ResolutionMilliseconds, m.Timestamp.Resolution)
}

func resolutionOf(r sensor.Resolution) time.Duration {
	switch r {
	case sensor.ResolutionSeconds:
		return time.Second
	case sensor.ResolutionMilliseconds:
		return time.Millisecond
	case sensor.ResolutionMicroseconds:
		return time.Microsecond
	default:
		return time.Nanosecond
	}
}
