package sensors

import (
	"context"
	"errors"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/Uranury/weather-metrics/metrics"
	"github.com/Uranury/weather-metrics/retry"
)

// Acquisition run states.
const (
	StateIdle       = "idle"
	StateAttempting = "attempting"
	StateSuccess    = "success"
	StateFailed     = "failed"
)

const (
	eventStart   = "start"
	eventRetry   = "retry"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

// Power is what the acquisition loop needs from the power controller.
type Power interface {
	EnsurePowered() error
	PowerCycle() error
}

// Status tags an Outcome.
type Status int

const (
	StatusFailed Status = iota
	StatusValid
)

func (s Status) String() string {
	if s == StatusValid {
		return "valid"
	}
	return "failed"
}

// Outcome is the terminal result of one acquisition run. Reading is only
// meaningful when Status is StatusValid.
type Outcome struct {
	Status   Status
	Reading  Reading
	Attempts int
	Elapsed  time.Duration
}

func (o Outcome) Valid() bool {
	return o.Status == StatusValid
}

// Acquirer runs the read, validate, reset and back off loop against one sensor.
type Acquirer struct {
	sensor  Sensor
	power   Power
	clock   retry.Clock
	logger  *zap.Logger
	machine *fsm.FSM
}

func NewAcquirer(sensor Sensor, power Power, clock retry.Clock, logger *zap.Logger) *Acquirer {
	a := &Acquirer{
		sensor: sensor,
		power:  power,
		clock:  clock,
		logger: logger,
	}
	a.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateAttempting},
			{Name: eventRetry, Src: []string{StateAttempting}, Dst: StateAttempting},
			{Name: eventSucceed, Src: []string{StateAttempting}, Dst: StateSuccess},
			{Name: eventFail, Src: []string{StateAttempting}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				a.logger.Debug("acquisition state", zap.String("from", e.Src), zap.String("to", e.Dst))
			},
		},
	)
	return a
}

// State returns the state of the current or last run.
func (a *Acquirer) State() string {
	return a.machine.Current()
}

// Acquire runs one acquisition. Invalid and missing readings are handled
// inside the loop; the only error returned wraps ErrHardwareAccess.
func (a *Acquirer) Acquire(ctx context.Context, policy retry.Policy) (Outcome, error) {
	start := a.clock.Now()
	a.machine.SetState(StateIdle)
	a.transition(ctx, eventStart)

	if err := a.power.EnsurePowered(); err != nil {
		a.transition(ctx, eventFail)
		return Outcome{Status: StatusFailed, Elapsed: a.clock.Since(start)}, err
	}

	var previous time.Duration
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt >= 2 {
			a.logger.Warn("retrying sensor read", zap.Int("attempt", attempt))
			wait := policy.Backoff(attempt, previous)
			a.logger.Debug("backing off", zap.Duration("sleep", wait))
			a.clock.Sleep(wait)
			a.transition(ctx, eventRetry)
		}

		a.logger.Debug("requesting sensor data", zap.String("sensor", a.sensor.Name()))
		t0 := a.clock.Now()
		data, err := a.sensor.Read()
		previous = max(a.clock.Since(t0), 0)
		readAt := a.clock.Now().UTC()
		a.logger.Debug("sensor read done", zap.Duration("elapsed", previous), zap.Time("at", readAt))
		if err != nil {
			// Values that come with a driver error are not trusted.
			data = nil
		}

		verdict, fault := Evaluate(attempt, policy.MaxAttempts, data)
		metrics.Attempts.WithLabelValues(fault.String()).Inc()

		switch fault {
		case FaultAbsent:
			fields := []zap.Field{zap.Int("attempt", attempt)}
			if err != nil {
				fields = append(fields, zap.String("driver_error", err.Error()))
			}
			a.logger.Error("sensor did not return anything", fields...)
		case FaultOutOfRange:
			a.logger.Error("bogus sensor values",
				zap.Int("attempt", attempt),
				zap.Float64("temperature", data.Fields[FieldTemperature]),
				zap.Float64("humidity", data.Fields[FieldHumidity]),
			)
			if verdict == ResetAndRetry {
				a.logger.Warn("less than two attempts remaining")
			}
		}

		switch verdict {
		case Accept:
			reading := Reading{
				Sensor:      a.sensor.Name(),
				Timestamp:   readAt,
				Temperature: data.Fields[FieldTemperature],
				Humidity:    data.Fields[FieldHumidity],
			}
			elapsed := a.clock.Since(start)
			a.logger.Debug("total sensor read process time", zap.Duration("elapsed", elapsed), zap.Int("attempts", attempt))
			a.logger.Info("success reading sensor",
				zap.Float64("temperature", reading.Temperature),
				zap.Float64("humidity", reading.Humidity),
			)
			a.transition(ctx, eventSucceed)
			metrics.Acquisitions.WithLabelValues(StatusValid.String()).Inc()
			return Outcome{Status: StatusValid, Reading: reading, Attempts: attempt, Elapsed: elapsed}, nil
		case ResetAndRetry:
			if err := a.power.PowerCycle(); err != nil {
				a.transition(ctx, eventFail)
				return Outcome{Status: StatusFailed, Attempts: attempt, Elapsed: a.clock.Since(start)}, err
			}
		}
	}

	elapsed := a.clock.Since(start)
	a.logger.Debug("total sensor read process time", zap.Duration("elapsed", elapsed), zap.Int("attempts", policy.MaxAttempts))
	a.logger.Error("could not read sensor, aborting")
	a.transition(ctx, eventFail)
	metrics.Acquisitions.WithLabelValues(StatusFailed.String()).Inc()
	return Outcome{Status: StatusFailed, Attempts: policy.MaxAttempts, Elapsed: elapsed}, nil
}

func (a *Acquirer) transition(ctx context.Context, event string) {
	err := a.machine.Event(ctx, event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		a.logger.Debug("acquisition state change rejected", zap.String("event", event), zap.Error(err))
	}
}
