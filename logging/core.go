package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// stderrGate passes entries to the wrapped core only while stderr is open.
// Every error-level entry trips the latch first, so the entry that opens
// the gate is itself written.
type stderrGate struct {
	zapcore.Core
	latch    *Latch
	always   bool
	onErrors bool
}

func NewStderrGate(core zapcore.Core, latch *Latch, always, onErrors bool) zapcore.Core {
	return &stderrGate{Core: core, latch: latch, always: always, onErrors: onErrors}
}

func (g *stderrGate) open() bool {
	return g.always || (g.onErrors && g.latch.Tripped())
}

// Enabled stays true for errors so the gate sees every entry that must trip it.
func (g *stderrGate) Enabled(lvl zapcore.Level) bool {
	return lvl >= zapcore.ErrorLevel || g.Core.Enabled(lvl)
}

func (g *stderrGate) With(fields []zapcore.Field) zapcore.Core {
	return &stderrGate{Core: g.Core.With(fields), latch: g.latch, always: g.always, onErrors: g.onErrors}
}

func (g *stderrGate) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level >= zapcore.ErrorLevel {
		g.latch.trip()
	}
	if !g.open() {
		return ce
	}
	return g.Core.Check(ent, ce)
}

type syslogWriter interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Crit(m string) error
}

// syslogCore writes each entry at the syslog severity matching its level.
type syslogCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	w   syslogWriter
}

func newSyslogCore(enc zapcore.Encoder, w syslogWriter, enab zapcore.LevelEnabler) *syslogCore {
	return &syslogCore{LevelEnabler: enab, enc: enc, w: w}
}

func (c *syslogCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &syslogCore{LevelEnabler: c.LevelEnabler, enc: c.enc.Clone(), w: c.w}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

func (c *syslogCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *syslogCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	msg := strings.TrimSuffix(buf.String(), "\n")
	buf.Free()

	switch {
	case ent.Level >= zapcore.DPanicLevel:
		return c.w.Crit(msg)
	case ent.Level >= zapcore.ErrorLevel:
		return c.w.Err(msg)
	case ent.Level == zapcore.WarnLevel:
		return c.w.Warning(msg)
	case ent.Level == zapcore.InfoLevel:
		return c.w.Info(msg)
	default:
		return c.w.Debug(msg)
	}
}

func (c *syslogCore) Sync() error {
	return nil
}
