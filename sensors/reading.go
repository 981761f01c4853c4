package sensors

import (
	"strconv"
	"time"
)

// Valid measurement range.
const (
	MinTemperature = -40.0
	MaxTemperature = 125.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
)

// Reading is a validated measurement. Only a successful acquisition run
// produces one.
type Reading struct {
	Sensor      string    `json:"sensor"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// InRange reports whether temperature and humidity are physically plausible.
func InRange(temperature, humidity float64) bool {
	return temperature >= MinTemperature && temperature <= MaxTemperature &&
		humidity >= MinHumidity && humidity <= MaxHumidity
}

// FormatOneDecimal renders v with one decimal. The decimal is the correctly
// rounded value of the binary float, exact ties going to even (0.25 -> "0.2").
// Every textual output of a reading goes through here.
func FormatOneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// RoundOneDecimal is FormatOneDecimal as a number.
func RoundOneDecimal(v float64) float64 {
	f, _ := strconv.ParseFloat(FormatOneDecimal(v), 64)
	return f
}

func (r Reading) TemperatureText() string { return FormatOneDecimal(r.Temperature) }

func (r Reading) HumidityText() string { return FormatOneDecimal(r.Humidity) }
