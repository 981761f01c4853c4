package sensors

import "math/rand"

// Simulated stands in for a DHT when no hardware is attached.
// A share of reads comes back empty or out of range so the retry path
// gets exercised as well.
type Simulated struct {
	FailureRate float64
}

func (s *Simulated) Name() string {
	return ModelSimulated
}

func (s *Simulated) Read() (*SensorData, error) {
	data := &SensorData{
		SensorType: "simulated",
		Fields:     map[string]float64{},
	}

	roll := rand.Float64()
	switch {
	case roll < s.FailureRate/2:
		return data, nil
	case roll < s.FailureRate:
		data.Fields[FieldTemperature] = 200 + rand.Float64()*50.0
		data.Fields[FieldHumidity] = 40.0 + rand.Float64()*40.0
		return data, nil
	}

	data.Fields[FieldTemperature] = 20.0 + rand.Float64()*10.0
	data.Fields[FieldHumidity] = 40.0 + rand.Float64()*40.0
	return data, nil
}
