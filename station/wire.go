package station

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/Uranury/weather-metrics/config"
	"github.com/Uranury/weather-metrics/report"
	"github.com/Uranury/weather-metrics/retry"
	"github.com/Uranury/weather-metrics/sensors"
	"github.com/Uranury/weather-metrics/submit"
)

// FromConfig opens the sensor, the optional power line and every enabled sink.
func FromConfig(cfg *config.Config, out io.Writer, clock retry.Clock, logger *zap.Logger) (*Station, error) {
	sensor, err := openSensor(cfg.Sensor)
	if err != nil {
		return nil, err
	}

	var line sensors.Line
	if cfg.Sensor.PowerPin != 0 {
		pin, err := sensors.OpenPowerLine(cfg.Sensor.PowerPin)
		if err != nil {
			return nil, err
		}
		line = pin
	}
	power := sensors.NewPowerController(line, cfg.Sensor.PowerOnSettle, cfg.Sensor.PowerOffSettle, clock, logger)
	acquirer := sensors.NewAcquirer(sensor, power, clock, logger)

	var archive *report.Archive
	if cfg.Archive.Dir != "" {
		archive, err = report.NewArchive(cfg.Archive.Dir)
		if err != nil {
			return nil, err
		}
	}

	var targets []Target
	var closers []io.Closer
	if cfg.ThingSpeak.Enabled() {
		sink := submit.NewThingSpeakSink(cfg.ThingSpeak.BaseURL, cfg.ThingSpeak.Timeout)
		targets = append(targets, Target{Submitter: submit.NewSubmitter(sink, clock, logger), Policy: cfg.ThingSpeak.Retry})
	}
	if cfg.InfluxDB.Enabled() {
		sink := submit.NewInfluxSink(submit.InfluxOptions{
			URL:         cfg.InfluxDB.URL,
			Token:       cfg.InfluxDB.Token,
			Org:         cfg.InfluxDB.Org,
			Bucket:      cfg.InfluxDB.Bucket,
			Measurement: cfg.InfluxDB.Measurement,
			Timeout:     cfg.InfluxDB.Timeout,
		})
		targets = append(targets, Target{Submitter: submit.NewSubmitter(sink, clock, logger), Policy: cfg.InfluxDB.Retry})
		closers = append(closers, sink)
	}
	if cfg.MQTT.Enabled() {
		sink := submit.NewMQTTSink(submit.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
			Retained: cfg.MQTT.Retained,
			Timeout:  cfg.MQTT.Timeout,
		})
		targets = append(targets, Target{Submitter: submit.NewSubmitter(sink, clock, logger), Policy: cfg.MQTT.Retry})
		closers = append(closers, sink)
	}
	if len(targets) == 0 {
		logger.Debug("no sinks configured")
	}

	return New(Options{
		Acquirer: acquirer,
		Policy:   cfg.Sensor.Retry,
		Targets:  targets,
		Out:      out,
		Archive:  archive,
		Clock:    clock,
		Logger:   logger,
		Closers:  closers,
	}), nil
}

func openSensor(cfg config.Sensor) (sensors.Sensor, error) {
	if strings.EqualFold(cfg.Model, sensors.ModelSimulated) {
		return &sensors.Simulated{FailureRate: cfg.FailureRate}, nil
	}
	s, err := sensors.NewDHT(cfg.Model, cfg.DataPin, cfg.ReadRetries)
	if err != nil {
		return nil, fmt.Errorf("open sensor: %w", err)
	}
	return s, nil
}
