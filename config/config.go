// Package config loads station settings from an optional YAML file and the
// environment, in that order, on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Uranury/weather-metrics/logging"
	"github.com/Uranury/weather-metrics/retry"
	"github.com/Uranury/weather-metrics/sensors"
)

const (
	configPathEnv = "CONFIG_FILE"
	envPrefix     = "WEATHER"
)

// DefaultPaths are tried in order when no file is given explicitly.
var DefaultPaths = []string{"weather-metrics.yml", "/usr/local/etc/weather-metrics.yml"}

// DotEnvFiles are loaded into the environment before anything else. Missing
// files are ignored and existing variables win.
var DotEnvFiles = []string{".env"}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Sensor     Sensor          `yaml:"sensor" env:"SENSOR"`
	ThingSpeak ThingSpeak      `yaml:"thingspeak" env:"THINGSPEAK"`
	InfluxDB   InfluxDB        `yaml:"influxdb" env:"INFLUXDB"`
	MQTT       MQTT            `yaml:"mqtt" env:"MQTT"`
	Archive    Archive         `yaml:"archive" env:"ARCHIVE"`
	Logging    logging.Options `yaml:"logging" env:"LOG"`
	Serve      Serve           `yaml:"serve" env:"SERVE"`
}

type Sensor struct {
	Model string `yaml:"model" env:"MODEL"`
	// DataPin and PowerPin are BCM GPIO numbers. PowerPin 0 disables power control.
	DataPin        int           `yaml:"data_pin" env:"DATA_PIN"`
	PowerPin       int           `yaml:"power_pin" env:"POWER_PIN"`
	ReadRetries    int           `yaml:"read_retries" env:"READ_RETRIES"`
	PowerOnSettle  time.Duration `yaml:"power_on_settle" env:"POWER_ON_SETTLE"`
	PowerOffSettle time.Duration `yaml:"power_off_settle" env:"POWER_OFF_SETTLE"`
	// FailureRate only applies to the SIMULATED model.
	FailureRate float64      `yaml:"failure_rate" env:"FAILURE_RATE"`
	Retry       retry.Policy `yaml:"retry" env:"RETRY"`
}

type ThingSpeak struct {
	// BaseURL is the update URL including the write API key. It is a secret.
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Retry   retry.Policy  `yaml:"retry" env:"RETRY"`
}

func (t ThingSpeak) Enabled() bool { return t.BaseURL != "" }

type InfluxDB struct {
	URL         string        `yaml:"url" env:"URL"`
	Token       string        `yaml:"token" env:"TOKEN"`
	Org         string        `yaml:"org" env:"ORG"`
	Bucket      string        `yaml:"bucket" env:"BUCKET"`
	Measurement string        `yaml:"measurement" env:"MEASUREMENT"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Retry       retry.Policy  `yaml:"retry" env:"RETRY"`
}

func (i InfluxDB) Enabled() bool { return i.URL != "" }

type MQTT struct {
	Broker   string        `yaml:"broker" env:"BROKER"`
	Topic    string        `yaml:"topic" env:"TOPIC"`
	ClientID string        `yaml:"client_id" env:"CLIENT_ID"`
	Username string        `yaml:"username" env:"USERNAME"`
	Password string        `yaml:"password" env:"PASSWORD"`
	QoS      uint8         `yaml:"qos" env:"QOS"`
	Retained bool          `yaml:"retained" env:"RETAINED"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Retry    retry.Policy  `yaml:"retry" env:"RETRY"`
}

func (m MQTT) Enabled() bool { return m.Broker != "" }

type Archive struct {
	// Dir receives YYYYMM.csv files. Empty disables the archive.
	Dir string `yaml:"dir" env:"DIR"`
}

type Serve struct {
	Listen   string        `yaml:"listen" env:"LISTEN"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

// Default returns a DHT22 on GPIO4 without power control or sinks.
func Default() *Config {
	return &Config{
		Sensor: Sensor{
			Model:          sensors.ModelDHT22,
			DataPin:        4,
			ReadRetries:    15,
			PowerOnSettle:  3 * time.Second,
			PowerOffSettle: 5 * time.Second,
			FailureRate:    0.2,
			Retry:          retry.DefaultPolicy(),
		},
		ThingSpeak: ThingSpeak{
			Timeout: 30 * time.Second,
			Retry:   retry.DefaultPolicy(),
		},
		InfluxDB: InfluxDB{
			Measurement: "weather",
			Timeout:     30 * time.Second,
			Retry:       retry.DefaultPolicy(),
		},
		MQTT: MQTT{
			Topic:    "weather/dht22",
			ClientID: "weather-metrics",
			Timeout:  30 * time.Second,
			Retry:    retry.DefaultPolicy(),
		},
		Logging: logging.DefaultOptions(),
		Serve: Serve{
			Listen:   ":8080",
			Interval: 10 * time.Minute,
		},
	}
}

// Load builds the configuration. path wins over CONFIG_FILE, which wins over
// DefaultPaths; with no file at all the defaults and environment are used.
// It returns the file actually read, if any.
func Load(path string) (*Config, string, error) {
	_ = godotenv.Load(existing(DotEnvFiles)...)

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		if found := existing(DefaultPaths); len(found) > 0 {
			path = found[0]
		}
	}

	cfg := Default()
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, path, err
		}
	}
	if err := LoadEnv(cfg); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func existing(paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks presence and ranges only; pins and URLs are not contacted.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToUpper(c.Sensor.Model) {
	case sensors.ModelDHT11, sensors.ModelDHT22, sensors.ModelAM2302, sensors.ModelSimulated:
	default:
		problems = append(problems, fmt.Sprintf("sensor.model %q is not one of DHT11, DHT22, AM2302, SIMULATED", c.Sensor.Model))
	}
	if c.Sensor.DataPin < 0 || c.Sensor.PowerPin < 0 {
		problems = append(problems, "sensor pins must not be negative")
	}
	if c.Sensor.PowerPin != 0 && c.Sensor.PowerPin == c.Sensor.DataPin {
		problems = append(problems, "sensor.power_pin must differ from sensor.data_pin")
	}
	if c.Sensor.PowerOnSettle < 0 || c.Sensor.PowerOffSettle < 0 {
		problems = append(problems, "sensor settle durations must not be negative")
	}

	policies := map[string]retry.Policy{"sensor.retry": c.Sensor.Retry}
	if c.ThingSpeak.Enabled() {
		policies["thingspeak.retry"] = c.ThingSpeak.Retry
	}
	if c.InfluxDB.Enabled() {
		policies["influxdb.retry"] = c.InfluxDB.Retry
		if c.InfluxDB.Bucket == "" {
			problems = append(problems, "influxdb.bucket is required")
		}
	}
	if c.MQTT.Enabled() {
		policies["mqtt.retry"] = c.MQTT.Retry
		if c.MQTT.Topic == "" {
			problems = append(problems, "mqtt.topic is required")
		}
		if c.MQTT.QoS > 2 {
			problems = append(problems, "mqtt.qos must be 0, 1 or 2")
		}
	}
	for name, p := range policies {
		if err := p.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if c.Serve.Interval <= 0 {
		problems = append(problems, "serve.interval must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
