package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retained bool
	Timeout  time.Duration
}

// MQTTSink publishes the payload as JSON. The connection is opened on the
// first Send and reused by later attempts.
type MQTTSink struct {
	opts   MQTTOptions
	client mqtt.Client
}

func NewMQTTSink(opts MQTTOptions) *MQTTSink {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ClientID == "" {
		opts.ClientID = "weather-metrics"
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetConnectTimeout(opts.Timeout).
		SetAutoReconnect(false)

	return &MQTTSink{
		opts:   opts,
		client: mqtt.NewClient(clientOpts),
	}
}

func (s *MQTTSink) Name() string {
	return "mqtt"
}

func (s *MQTTSink) Secrets() []string {
	return append(urlSecrets(s.opts.Broker)[1:], s.opts.Password)
}

func (s *MQTTSink) Send(ctx context.Context, p Payload) error {
	if !s.client.IsConnected() {
		if err := s.wait(ctx, s.client.Connect()); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := s.wait(ctx, s.client.Publish(s.opts.Topic, s.opts.QoS, s.opts.Retained, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", s.opts.Topic, err)
	}
	return nil
}

func (s *MQTTSink) Close() error {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}

func (s *MQTTSink) wait(ctx context.Context, token mqtt.Token) error {
	timer := time.NewTimer(s.opts.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("timed out")
	}
}
