package sensor

import "time"

// Resolution selects the unit in which timestamp values are expressed.
type Resolution string

const (
	ResolutionSeconds      Resolution = "seconds"
	ResolutionMilliseconds Resolution = "milliseconds"
	ResolutionMicroseconds Resolution = "microseconds"
	ResolutionNanoseconds  Resolution = "nanoseconds"

	DefaultResolution = ResolutionMilliseconds
)

// IsValid returns whether the resolution is one of the supported units
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionSeconds, ResolutionMilliseconds, ResolutionMicroseconds, ResolutionNanoseconds:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (r Resolution) String() string {
	return string(r)
}

func (r Resolution) divisor() int64 {
	switch r {
	case ResolutionSeconds:
		return int64(time.Second)
	case ResolutionMilliseconds:
		return int64(time.Millisecond)
	case ResolutionMicroseconds:
		return int64(time.Microsecond)
	default:
		return 1
	}
}

// Timestamp is a wall-clock instant expressed as an integer number of
// resolution units since the Unix epoch. Keeping the raw value alongside
// the unit lets sinks serialize timestamps without rescaling them.
type Timestamp struct {
	Value      int64
	Resolution Resolution
}

// Now creates a timestamp for the current wall-clock time. An invalid
// resolution falls back to nanoseconds.
func Now(resolution Resolution) Timestamp {
	return FromTime(time.Now(), resolution)
}

// FromTime converts a time.Time into a timestamp with the given resolution.
func FromTime(t time.Time, resolution Resolution) Timestamp {
	return Timestamp{
		Value:      t.UnixNano() / resolution.divisor(),
		Resolution: resolution,
	}
}

// Time converts the timestamp back into a time.Time, losing nothing beyond
// what the resolution already discarded.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, t.Value*t.Resolution.divisor())
}
