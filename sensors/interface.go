package sensors

import "math"

// Field names a sensor reports.
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
)

// SensorData is what one physical read attempt produced. A missing field means
// the sensor did not deliver that value.
type SensorData struct {
	SensorType string             `json:"sensor_type"`
	Fields     map[string]float64 `json:"fields"`
}

// Value returns the named field. NaN is reported as absent.
func (d *SensorData) Value(field string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	v, ok := d.Fields[field]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Sensor interface that all sensors must implement.
// Read performs a single read attempt; an error and an empty result are
// treated the same way by callers.
type Sensor interface {
	Read() (*SensorData, error)
	Name() string
}
