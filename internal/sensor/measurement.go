package sensor

// Measurement is one timestamped reading attributed to a sensor. Voltage is
// in volts, current in amperes and power in watts. Back-ends that only
// report power leave voltage and current at zero. Measurements are plain
// values and safe to copy across goroutine boundaries.
type Measurement struct {
	Sensor    string
	Timestamp Timestamp
	Voltage   float64
	Current   float64
	Power     float64
}

// NewMeasurement creates a measurement timestamped now with the given
// resolution.
func NewMeasurement(name string, resolution Resolution, voltage, current, power float64) Measurement {
	return Measurement{
		Sensor:    name,
		Timestamp: Now(resolution),
		Voltage:   voltage,
		Current:   current,
		Power:     power,
	}
}

// NewPowerMeasurement creates a power-only measurement for back-ends that
// do not report voltage and current separately.
func NewPowerMeasurement(name string, resolution Resolution, power float64) Measurement {
	return NewMeasurement(name, resolution, 0, 0, power)
}
