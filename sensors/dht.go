package sensors

import (
	"fmt"
	"strings"

	"github.com/MichaelS11/go-dht"
)

// Supported sensor models.
const (
	ModelDHT11     = "DHT11"
	ModelDHT22     = "DHT22"
	ModelAM2302    = "AM2302"
	ModelSimulated = "SIMULATED"
)

// PinName maps a BCM GPIO number to its periph name.
func PinName(pin int) string {
	return fmt.Sprintf("GPIO%d", pin)
}

// dhtSensorType maps a model to the go-dht sensor type. The AM2302 is a
// DHT22 in a wired case.
func dhtSensorType(model string) (string, error) {
	switch strings.ToUpper(model) {
	case ModelDHT11:
		return "dht11", nil
	case ModelDHT22, ModelAM2302:
		return "dht22", nil
	default:
		return "", fmt.Errorf("unsupported sensor model %q", model)
	}
}

// DHT reads a DHT11/DHT22/AM2302 on a single data pin.
type DHT struct {
	model   string
	pin     string
	retries int
	dht     *dht.DHT
}

// NewDHT initializes the GPIO host and the sensor on dataPin. With retries > 1
// each Read lets the driver retry internally that many times.
func NewDHT(model string, dataPin, retries int) (*DHT, error) {
	sensorType, err := dhtSensorType(model)
	if err != nil {
		return nil, err
	}

	if err := dht.HostInit(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}

	d := &DHT{
		model:   strings.ToUpper(model),
		pin:     PinName(dataPin),
		retries: retries,
	}
	d.dht, err = dht.NewDHT(d.pin, dht.Celsius, sensorType)
	if err != nil {
		return nil, fmt.Errorf("open %s on %s: %w", d.model, d.pin, err)
	}

	return d, nil
}

func (d *DHT) Name() string {
	return d.model
}

func (d *DHT) Read() (*SensorData, error) {
	var humidity, temperature float64
	var err error
	if d.retries > 1 {
		humidity, temperature, err = d.dht.ReadRetry(d.retries)
	} else {
		humidity, temperature, err = d.dht.Read()
	}
	if err != nil {
		return nil, err
	}

	return &SensorData{
		SensorType: strings.ToLower(d.model),
		Fields: map[string]float64{
			FieldTemperature: temperature,
			FieldHumidity:    humidity,
		},
	}, nil
}
