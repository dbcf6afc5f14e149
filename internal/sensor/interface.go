package sensor

// Sensor is a source of power readings. Implementations wrap a concrete
// hardware back-end (GPU counters, powercap zones, bench instruments) and
// are expected to be safe for use from a single sampling goroutine.
type Sensor interface {
	// Name returns the unique identity of the sensor. Measurements carry
	// this name so that readings from different sensors can be told apart
	// in a shared stream.
	Name() string

	// Sample takes one reading. Timestamps are created with the given
	// resolution. A device or communication fault is returned as an error;
	// the zero Measurement accompanying it carries no data.
	Sample(resolution Resolution) (Measurement, error)
}

// Callback receives one measurement or, when a sample failed, the fault in
// its place. Exactly one of the two carries information: on a non-nil error
// the measurement holds only the sensor identity. This lets consumers
// distinguish "no data this tick" from a legitimate zero reading.
type Callback func(Measurement, error)

// PushSensor is a Sensor that can additionally deliver measurements on its
// own schedule, bypassing any polling loop. While push delivery is enabled,
// the sensor invokes the callback from a goroutine of its own choosing.
type PushSensor interface {
	Sensor

	// EnablePush starts asynchronous delivery to the given callback.
	EnablePush(cb Callback) error

	// DisablePush stops asynchronous delivery. It is safe to call when
	// push delivery was never enabled.
	DisablePush() error
}
