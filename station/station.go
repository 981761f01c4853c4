// Package station runs measurement cycles: acquire a reading, print it,
// archive it, hand it to listeners and relay it to every configured sink.
package station

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Uranury/weather-metrics/metrics"
	"github.com/Uranury/weather-metrics/report"
	"github.com/Uranury/weather-metrics/retry"
	"github.com/Uranury/weather-metrics/sensors"
	"github.com/Uranury/weather-metrics/submit"
)

type Acquirer interface {
	Acquire(ctx context.Context, policy retry.Policy) (sensors.Outcome, error)
	State() string
}

type Submitter interface {
	Name() string
	Submit(ctx context.Context, r sensors.Reading, policy retry.Policy) submit.Outcome
}

// Target pairs a submitter with its own retry policy.
type Target struct {
	Submitter Submitter
	Policy    retry.Policy
}

// Result summarizes one cycle.
type Result struct {
	Outcome     sensors.Outcome
	Submissions map[string]submit.Outcome
	// Err is set only when the sensor hardware could not be controlled.
	Err error
	// OutputErr is set when the reading could not be written to the output.
	OutputErr error
}

// OK reports whether the reading was produced, printed and accepted by every sink.
func (r Result) OK() bool {
	if r.Err != nil || r.OutputErr != nil || !r.Outcome.Valid() {
		return false
	}
	for _, o := range r.Submissions {
		if o != submit.Sent {
			return false
		}
	}
	return true
}

// ExitCode maps the result to the process exit status.
func (r Result) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

// Status is a snapshot for the HTTP API.
type Status struct {
	State     string           `json:"state"`
	Cycles    int              `json:"cycles"`
	LastCycle time.Time        `json:"last_cycle,omitempty"`
	LastOK    bool             `json:"last_ok"`
	Reading   *sensors.Reading `json:"reading,omitempty"`
}

type Station struct {
	acquirer Acquirer
	policy   retry.Policy
	targets  []Target
	out      io.Writer
	archive  *report.Archive
	clock    retry.Clock
	logger   *zap.Logger
	closers  []io.Closer

	mu        sync.RWMutex
	listeners []func(sensors.Reading)
	last      *sensors.Reading
	cycles    int
	lastCycle time.Time
	lastOK    bool
}

type Options struct {
	Acquirer Acquirer
	Policy   retry.Policy
	Targets  []Target
	// Out receives one line per valid reading.
	Out io.Writer
	// Archive may be nil.
	Archive *report.Archive
	Clock   retry.Clock
	Logger  *zap.Logger
	Closers []io.Closer
}

func New(opts Options) *Station {
	if opts.Clock == nil {
		opts.Clock = retry.NewClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Station{
		acquirer: opts.Acquirer,
		policy:   opts.Policy,
		targets:  opts.Targets,
		out:      opts.Out,
		archive:  opts.Archive,
		clock:    opts.Clock,
		logger:   opts.Logger,
		closers:  opts.Closers,
	}
}

// OnReading registers fn to be called with every valid reading.
func (s *Station) OnReading(fn func(sensors.Reading)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Archive returns the monthly archive, or nil when archiving is off.
func (s *Station) Archive() *report.Archive {
	return s.archive
}

// Last returns the most recent valid reading.
func (s *Station) Last() (sensors.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return sensors.Reading{}, false
	}
	return *s.last, true
}

func (s *Station) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		State:     s.acquirer.State(),
		Cycles:    s.cycles,
		LastCycle: s.lastCycle,
		LastOK:    s.lastOK,
	}
	if s.last != nil {
		r := *s.last
		st.Reading = &r
	}
	return st
}

// Cycle runs one acquisition and, on success, reports and submits the reading.
func (s *Station) Cycle(ctx context.Context) Result {
	res := s.cycle(ctx)

	s.mu.Lock()
	s.cycles++
	s.lastCycle = s.clock.Now().UTC()
	s.lastOK = res.OK()
	s.mu.Unlock()

	if res.OK() {
		s.logger.Info("cycle complete")
	} else {
		s.logger.Error("cycle failed")
	}
	return res
}

func (s *Station) cycle(ctx context.Context) Result {
	s.logger.Debug("get sensor data")
	out, err := s.acquirer.Acquire(ctx, s.policy)
	res := Result{Outcome: out, Submissions: map[string]submit.Outcome{}}
	if err != nil {
		s.logger.Error("sensor power control failed", zap.Error(err))
		res.Err = err
		return res
	}
	if !out.Valid() {
		return res
	}
	reading := out.Reading

	metrics.Temperature.Set(reading.Temperature)
	metrics.Humidity.Set(reading.Humidity)
	metrics.LastReading.Set(float64(reading.Timestamp.Unix()))

	s.logger.Debug("printing weather metrics as csv")
	if err := report.Print(s.out, reading); err != nil {
		s.logger.Error("could not write reading", zap.Error(err))
		res.OutputErr = err
	}
	if s.archive != nil {
		if err := s.archive.Append(reading); err != nil {
			s.logger.Error("could not archive reading", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.last = &reading
	listeners := append([]func(sensors.Reading){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(reading)
	}

	for _, t := range s.targets {
		s.logger.Debug("post data", zap.String("sink", t.Submitter.Name()))
		res.Submissions[t.Submitter.Name()] = t.Submitter.Submit(ctx, reading, t.Policy)
	}
	return res
}

// Loop runs a cycle immediately and then every interval until ctx is done.
func (s *Station) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.Cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases sink connections.
func (s *Station) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
