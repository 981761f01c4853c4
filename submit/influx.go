package submit

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

type InfluxOptions struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	Timeout     time.Duration
}

// InfluxSink writes one point per Send through the blocking write API.
type InfluxSink struct {
	opts     InfluxOptions
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxSink(opts InfluxOptions) *InfluxSink {
	clientOpts := influxdb2.DefaultOptions().SetPrecision(time.Second)
	if opts.Timeout >= time.Second {
		clientOpts.SetHTTPRequestTimeout(uint(opts.Timeout / time.Second))
	}
	if opts.Measurement == "" {
		opts.Measurement = "weather"
	}

	client := influxdb2.NewClientWithOptions(opts.URL, opts.Token, clientOpts)
	return &InfluxSink{
		opts:     opts,
		client:   client,
		writeAPI: client.WriteAPIBlocking(opts.Org, opts.Bucket),
	}
}

func (s *InfluxSink) Name() string {
	return "influxdb"
}

func (s *InfluxSink) Secrets() []string {
	return append(urlSecrets(s.opts.URL)[1:], s.opts.Token)
}

func (s *InfluxSink) Send(ctx context.Context, p Payload) error {
	point := influxdb2.NewPointWithMeasurement(s.opts.Measurement).
		AddTag("sensor", p.Sensor).
		AddField("temperature", p.Temperature).
		AddField("humidity", p.Humidity).
		SetTime(p.Time)

	return s.writeAPI.WritePoint(ctx, point)
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
