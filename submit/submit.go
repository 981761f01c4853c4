// Package submit relays validated readings to remote time-series endpoints.
// Each configured sink gets its own bounded-retry run; a failed run never
// affects the reading it was given.
package submit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Uranury/weather-metrics/metrics"
	"github.com/Uranury/weather-metrics/retry"
	"github.com/Uranury/weather-metrics/sensors"
)

// TimestampLayout is ISO-8601 UTC with second precision.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Payload is the wire form of a reading: second-precision UTC time and
// values rounded to one decimal.
type Payload struct {
	Sensor      string    `json:"sensor"`
	Time        time.Time `json:"-"`
	Timestamp   string    `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

func NewPayload(r sensors.Reading) Payload {
	t := r.Timestamp.UTC().Truncate(time.Second)
	return Payload{
		Sensor:      r.Sensor,
		Time:        t,
		Timestamp:   t.Format(TimestampLayout),
		Temperature: sensors.RoundOneDecimal(r.Temperature),
		Humidity:    sensors.RoundOneDecimal(r.Humidity),
	}
}

// Sink performs one outbound call per Send.
type Sink interface {
	Name() string
	Send(ctx context.Context, p Payload) error
	// Secrets lists every string that must never appear in logs.
	Secrets() []string
}

// Outcome of a submission run.
type Outcome int

const (
	Failed Outcome = iota
	Sent
)

func (o Outcome) String() string {
	if o == Sent {
		return "sent"
	}
	return "failed"
}

// Submitter drives the retry loop for one sink.
type Submitter struct {
	sink   Sink
	clock  retry.Clock
	logger *zap.Logger
	masker *Masker
}

func NewSubmitter(sink Sink, clock retry.Clock, logger *zap.Logger) *Submitter {
	return &Submitter{
		sink:   sink,
		clock:  clock,
		logger: logger.With(zap.String("sink", sink.Name())),
		masker: NewMasker(sink.Secrets()...),
	}
}

func (s *Submitter) Name() string {
	return s.sink.Name()
}

// Submit sends r until the sink accepts it or the policy runs out. A retry
// after an ambiguous failure may deliver the reading twice.
func (s *Submitter) Submit(ctx context.Context, r sensors.Reading, policy retry.Policy) Outcome {
	payload := NewPayload(r)
	start := s.clock.Now()

	var previous time.Duration
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt >= 2 {
			s.logger.Warn("retrying submission", zap.Int("attempt", attempt))
			wait := policy.Backoff(attempt, previous)
			s.logger.Debug("backing off", zap.Duration("sleep", wait))
			s.clock.Sleep(wait)
		}

		s.logger.Debug("sending metrics")
		t0 := s.clock.Now()
		err := s.sink.Send(ctx, payload)
		previous = max(s.clock.Since(t0), 0)
		s.logger.Debug("submission elapsed time", zap.Duration("elapsed", previous))

		if err == nil {
			metrics.SubmissionAttempts.WithLabelValues(s.sink.Name(), "ok").Inc()
			s.logger.Debug("total submission process time", zap.Duration("elapsed", s.clock.Since(start)), zap.Int("attempts", attempt))
			s.logger.Info("success sending metrics",
				zap.Float64("temperature", payload.Temperature),
				zap.Float64("humidity", payload.Humidity),
				zap.String("at", payload.Timestamp),
			)
			metrics.Submissions.WithLabelValues(s.sink.Name(), Sent.String()).Inc()
			return Sent
		}

		metrics.SubmissionAttempts.WithLabelValues(s.sink.Name(), "error").Inc()
		// Only the masked rendering of err may be logged.
		s.logger.Error("submission failed", zap.Int("attempt", attempt), zap.String("error", s.masker.Mask(err.Error())))
	}

	s.logger.Debug("total submission process time", zap.Duration("elapsed", s.clock.Since(start)), zap.Int("attempts", policy.MaxAttempts))
	s.logger.Error("could not submit metrics, aborting")
	metrics.Submissions.WithLabelValues(s.sink.Name(), Failed.String()).Inc()
	return Failed
}
