package sensors

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/Uranury/weather-metrics/metrics"
	"github.com/Uranury/weather-metrics/retry"
)

// ErrHardwareAccess marks a failure to drive the sensor power line. Nothing
// can recover from it.
var ErrHardwareAccess = errors.New("hardware access failure")

// Line is the part of a periph gpio.PinIO the power controller drives.
type Line interface {
	Name() string
	Read() gpio.Level
	Out(l gpio.Level) error
}

// OpenPowerLine returns the GPIO line with the given BCM number.
func OpenPowerLine(pin int) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: init gpio host: %v", ErrHardwareAccess, err)
	}
	p := gpioreg.ByName(PinName(pin))
	if p == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrHardwareAccess, PinName(pin))
	}
	return p, nil
}

// PowerController owns the optional line feeding the sensor. Calls must not
// overlap; the acquisition loop is the only caller.
type PowerController struct {
	line      Line
	onSettle  time.Duration
	offSettle time.Duration
	clock     retry.Clock
	logger    *zap.Logger

	powered bool
}

// NewPowerController returns a controller for line. A nil line disables
// power control: both operations become no-ops.
func NewPowerController(line Line, onSettle, offSettle time.Duration, clock retry.Clock, logger *zap.Logger) *PowerController {
	return &PowerController{
		line:      line,
		onSettle:  onSettle,
		offSettle: offSettle,
		clock:     clock,
		logger:    logger,
	}
}

// Enabled reports whether a power line is configured.
func (p *PowerController) Enabled() bool {
	return p.line != nil
}

// EnsurePowered drives the line high if it is low and waits for the sensor to
// settle. Once the line is known to be high, further calls do nothing.
func (p *PowerController) EnsurePowered() error {
	if p.line == nil || p.powered {
		return nil
	}

	if p.line.Read() == gpio.High {
		// Claim the line as an output without changing its level.
		if err := p.drive(gpio.High); err != nil {
			return err
		}
		p.powered = true
		return nil
	}

	p.logger.Warn("power line is low, setting it high", zap.String("pin", p.line.Name()))
	if err := p.drive(gpio.High); err != nil {
		return err
	}
	p.settle(p.onSettle, "powering on")
	p.powered = true
	return nil
}

// PowerCycle switches the sensor off and on again.
func (p *PowerController) PowerCycle() error {
	if p.line == nil {
		return nil
	}

	p.logger.Warn("resetting sensor", zap.String("pin", p.line.Name()))
	metrics.PowerCycles.Inc()

	p.logger.Warn("setting power line low", zap.String("pin", p.line.Name()))
	p.powered = false
	if err := p.drive(gpio.Low); err != nil {
		return err
	}
	p.settle(p.offSettle, "powering off")

	p.logger.Warn("setting power line high", zap.String("pin", p.line.Name()))
	if err := p.drive(gpio.High); err != nil {
		return err
	}
	p.settle(p.onSettle, "powering on")
	p.powered = true
	return nil
}

func (p *PowerController) drive(l gpio.Level) error {
	if err := p.line.Out(l); err != nil {
		return fmt.Errorf("%w: set %s %s: %v", ErrHardwareAccess, p.line.Name(), l, err)
	}
	return nil
}

func (p *PowerController) settle(d time.Duration, after string) {
	p.logger.Debug("sleeping after "+after+" the sensor", zap.Duration("sleep", d))
	p.clock.Sleep(d)
}
