package station

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Uranury/weather-metrics/config"
	"github.com/Uranury/weather-metrics/report"
	"github.com/Uranury/weather-metrics/retry"
	"github.com/Uranury/weather-metrics/retry/retrytest"
	"github.com/Uranury/weather-metrics/sensors"
	"github.com/Uranury/weather-metrics/submit"
)

type fakeAcquirer struct {
	outcome sensors.Outcome
	err     error
	calls   int
}

func (f *fakeAcquirer) Acquire(context.Context, retry.Policy) (sensors.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

func (f *fakeAcquirer) State() string {
	if f.calls == 0 {
		return sensors.StateIdle
	}
	if f.outcome.Valid() {
		return sensors.StateSuccess
	}
	return sensors.StateFailed
}

type fakeSubmitter struct {
	name    string
	outcome submit.Outcome
	got     []sensors.Reading
	policy  retry.Policy
}

func (f *fakeSubmitter) Name() string { return f.name }

func (f *fakeSubmitter) Submit(_ context.Context, r sensors.Reading, p retry.Policy) submit.Outcome {
	f.got = append(f.got, r)
	f.policy = p
	return f.outcome
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func validOutcome() sensors.Outcome {
	return sensors.Outcome{
		Status: sensors.StatusValid,
		Reading: sensors.Reading{
			Sensor:      "dht22",
			Timestamp:   time.Date(2026, 10, 18, 6, 30, 12, 0, time.UTC),
			Temperature: 21.36,
			Humidity:    55.04,
		},
		Attempts: 1,
	}
}

func TestCycleValidReading(t *testing.T) {
	var out bytes.Buffer
	archive, err := report.NewArchive(t.TempDir())
	require.NoError(t, err)

	acq := &fakeAcquirer{outcome: validOutcome()}
	ts := &fakeSubmitter{name: "thingspeak", outcome: submit.Sent}
	influx := &fakeSubmitter{name: "influxdb", outcome: submit.Sent}
	tsPolicy := retry.Policy{MaxAttempts: 2, BaseBackoff: 3 * time.Second, MaxBackoff: 10 * time.Second}

	st := New(Options{
		Acquirer: acq,
		Policy:   retry.DefaultPolicy(),
		Targets:  []Target{{Submitter: ts, Policy: tsPolicy}, {Submitter: influx, Policy: retry.DefaultPolicy()}},
		Out:      &out,
		Archive:  archive,
		Clock:    retrytest.NewClock(),
		Logger:   zap.NewNop(),
	})

	var heard []sensors.Reading
	st.OnReading(func(r sensors.Reading) { heard = append(heard, r) })

	res := st.Cycle(context.Background())
	assert.True(t, res.OK())
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, "2026-10-18 06:30:12+00;21.4;55.0\n", out.String())
	assert.Equal(t, map[string]submit.Outcome{"thingspeak": submit.Sent, "influxdb": submit.Sent}, res.Submissions)

	require.Len(t, ts.got, 1)
	assert.Equal(t, validOutcome().Reading, ts.got[0])
	assert.Equal(t, tsPolicy, ts.policy)
	assert.Len(t, influx.got, 1)
	assert.Len(t, heard, 1)

	rows, err := archive.Month(validOutcome().Reading.Timestamp)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	last, ok := st.Last()
	require.True(t, ok)
	assert.Equal(t, 21.36, last.Temperature)

	status := st.Status()
	assert.Equal(t, sensors.StateSuccess, status.State)
	assert.Equal(t, 1, status.Cycles)
	assert.True(t, status.LastOK)
	require.NotNil(t, status.Reading)
}

func TestCycleFailedAcquisition(t *testing.T) {
	var out bytes.Buffer
	ts := &fakeSubmitter{name: "thingspeak", outcome: submit.Sent}
	st := New(Options{
		Acquirer: &fakeAcquirer{outcome: sensors.Outcome{Status: sensors.StatusFailed, Attempts: 5}},
		Policy:   retry.DefaultPolicy(),
		Targets:  []Target{{Submitter: ts, Policy: retry.DefaultPolicy()}},
		Out:      &out,
		Clock:    retrytest.NewClock(),
	})

	res := st.Cycle(context.Background())
	assert.False(t, res.OK())
	assert.Equal(t, 1, res.ExitCode())
	assert.Empty(t, out.String())
	assert.Empty(t, ts.got)
	_, ok := st.Last()
	assert.False(t, ok)
	assert.Equal(t, sensors.StateFailed, st.Status().State)
}

func TestCycleHardwareError(t *testing.T) {
	var out bytes.Buffer
	hwErr := fmt.Errorf("%w: GPIO17 stuck", sensors.ErrHardwareAccess)
	st := New(Options{
		Acquirer: &fakeAcquirer{err: hwErr},
		Out:      &out,
		Clock:    retrytest.NewClock(),
	})

	res := st.Cycle(context.Background())
	assert.ErrorIs(t, res.Err, sensors.ErrHardwareAccess)
	assert.Equal(t, 1, res.ExitCode())
	assert.Empty(t, out.String())
}

func TestCycleAnySinkFailureFails(t *testing.T) {
	var out bytes.Buffer
	ok := &fakeSubmitter{name: "influxdb", outcome: submit.Sent}
	bad := &fakeSubmitter{name: "mqtt", outcome: submit.Failed}
	st := New(Options{
		Acquirer: &fakeAcquirer{outcome: validOutcome()},
		Targets:  []Target{{Submitter: bad}, {Submitter: ok}},
		Out:      &out,
		Clock:    retrytest.NewClock(),
	})

	res := st.Cycle(context.Background())
	assert.False(t, res.OK())
	assert.Equal(t, 1, res.ExitCode())
	assert.NotEmpty(t, out.String(), "reading is printed even when a sink fails")
	assert.Len(t, ok.got, 1, "later sinks are still tried")
}

func TestCycleOutputFailure(t *testing.T) {
	st := New(Options{
		Acquirer: &fakeAcquirer{outcome: validOutcome()},
		Out:      failingWriter{},
		Clock:    retrytest.NewClock(),
	})

	res := st.Cycle(context.Background())
	assert.Error(t, res.OutputErr)
	assert.False(t, res.OK())
}

func TestCycleWithoutSinks(t *testing.T) {
	var out bytes.Buffer
	st := New(Options{
		Acquirer: &fakeAcquirer{outcome: validOutcome()},
		Out:      &out,
		Clock:    retrytest.NewClock(),
	})

	res := st.Cycle(context.Background())
	assert.True(t, res.OK())
	assert.Empty(t, res.Submissions)
}

func TestLoopStopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	acq := &fakeAcquirer{outcome: validOutcome()}
	st := New(Options{Acquirer: acq, Out: &out, Clock: retrytest.NewClock()})

	ctx, cancel := context.WithCancel(context.Background())
	st.OnReading(func(sensors.Reading) { cancel() })

	done := make(chan struct{})
	go func() {
		st.Loop(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 1, acq.calls)
}

func TestFromConfigSimulated(t *testing.T) {
	cfg := config.Default()
	cfg.Sensor.Model = sensors.ModelSimulated
	cfg.Sensor.FailureRate = 0
	cfg.Archive.Dir = t.TempDir()

	var out bytes.Buffer
	clk := retrytest.NewClock()
	st, err := FromConfig(cfg, &out, clk, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, sensors.StateIdle, st.Status().State)
	assert.Empty(t, st.targets)

	res := st.Cycle(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, 1, res.Outcome.Attempts)
	assert.Regexp(t, `^2026-10-18 06:30:00\+00;\d+\.\d;\d+\.\d\n$`, out.String())
	assert.Empty(t, clk.Sleeps())
}

func TestFromConfigSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Sensor.Model = sensors.ModelSimulated
	cfg.ThingSpeak.BaseURL = "https://api.thingspeak.com/update?api_key=SECRETKEY123"
	cfg.InfluxDB.URL = "http://localhost:8086"
	cfg.InfluxDB.Bucket = "weather"
	cfg.MQTT.Broker = "tcp://127.0.0.1:1"

	st, err := FromConfig(cfg, &bytes.Buffer{}, retrytest.NewClock(), zap.NewNop())
	require.NoError(t, err)

	var names []string
	for _, target := range st.targets {
		names = append(names, target.Submitter.Name())
	}
	assert.Equal(t, []string{"thingspeak", "influxdb", "mqtt"}, names)
	assert.Len(t, st.closers, 2)
	assert.NoError(t, st.Close())
}

func TestFromConfigUnknownModel(t *testing.T) {
	cfg := config.Default()
	cfg.Sensor.Model = "BME280"

	_, err := FromConfig(cfg, &bytes.Buffer{}, retrytest.NewClock(), zap.NewNop())
	assert.Error(t, err)
}
