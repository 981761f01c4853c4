package sensors

import (
	"errors"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/Uranury/weather-metrics/retry/retrytest"
)

type fakeLine struct {
	level  gpio.Level
	writes []gpio.Level
	// failAfter makes every write after the first failAfter writes fail; 0 never fails.
	failAfter int
}

func (l *fakeLine) Name() string { return "GPIO17" }

func (l *fakeLine) Read() gpio.Level { return l.level }

func (l *fakeLine) Out(v gpio.Level) error {
	if l.failAfter > 0 && len(l.writes) >= l.failAfter {
		return errors.New("permission denied")
	}
	l.writes = append(l.writes, v)
	l.level = v
	return nil
}

func (l *fakeLine) lows() int {
	n := 0
	for _, w := range l.writes {
		if w == gpio.Low {
			n++
		}
	}
	return n
}

type step struct {
	data *SensorData
	err  error
	took time.Duration
}

type scriptedSensor struct {
	clock *retrytest.Clock
	steps []step
	calls int
}

func (s *scriptedSensor) Name() string { return ModelDHT22 }

func (s *scriptedSensor) Read() (*SensorData, error) {
	st := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++
	s.clock.Advance(st.took)
	return st.data, st.err
}

func valid(t, h float64) step {
	return step{data: &SensorData{Fields: map[string]float64{FieldTemperature: t, FieldHumidity: h}}}
}

func absent() step {
	return step{err: errors.New("checksum error")}
}

func outOfRange() step {
	return valid(-999, 3276.8)
}

func repeat(s step, n int) []step {
	out := make([]step, n)
	for i := range out {
		out[i] = s
	}
	return out
}

var nan = math.NaN()
