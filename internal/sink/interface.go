package sink

import "codeberg.org/mutker/powerwatch/internal/sensor"

// Sink is an append-only, sequential destination for measurement records and
// marker delimiters. The collector's writer goroutine is the only caller, so
// implementations need not be safe for concurrent use. A write failure is
// treated as terminal by the caller.
// Writes may be buffered; Flush is called at the end of every drained batch
// and must make the records durable in order.
type Sink interface {
	WriteMeasurement(m sensor.Measurement) error
	WriteMarker(label string) error
	Flush() error
	Close() error
}
