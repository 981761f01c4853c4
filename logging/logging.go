// Package logging builds the process logger: everything goes to syslog, and
// stderr only starts receiving entries once an error has been logged, so a
// cron job mails the whole story of a failed run and stays silent otherwise.
package logging

import (
	"fmt"
	"log/syslog"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	SyslogLevel    string `yaml:"syslog_level" env:"SYSLOG_LEVEL"`
	SyslogFacility string `yaml:"syslog_facility" env:"SYSLOG_FACILITY"`
	SyslogTag      string `yaml:"syslog_tag" env:"SYSLOG_TAG"`
	DisableSyslog  bool   `yaml:"disable_syslog" env:"DISABLE_SYSLOG"`
	StderrLevel    string `yaml:"stderr_level" env:"STDERR_LEVEL"`
	// StderrAlways writes to stderr regardless of StderrOnErrors.
	StderrAlways bool `yaml:"stderr_always" env:"STDERR_ALWAYS"`
	// StderrOnErrors opens stderr once the first error is logged.
	StderrOnErrors bool `yaml:"stderr_on_errors" env:"STDERR_ON_ERRORS"`
}

func DefaultOptions() Options {
	return Options{
		SyslogLevel:    "info",
		SyslogFacility: "LOG_LOCAL1",
		SyslogTag:      "weather-metrics",
		StderrLevel:    "info",
		StderrOnErrors: true,
	}
}

// Latch records whether an error-level entry has been logged.
type Latch struct {
	tripped atomic.Bool
}

func (l *Latch) Tripped() bool {
	return l.tripped.Load()
}

func (l *Latch) trip() {
	l.tripped.Store(true)
}

var facilities = map[string]syslog.Priority{
	"LOG_USER":   syslog.LOG_USER,
	"LOG_DAEMON": syslog.LOG_DAEMON,
	"LOG_LOCAL0": syslog.LOG_LOCAL0,
	"LOG_LOCAL1": syslog.LOG_LOCAL1,
	"LOG_LOCAL2": syslog.LOG_LOCAL2,
	"LOG_LOCAL3": syslog.LOG_LOCAL3,
	"LOG_LOCAL4": syslog.LOG_LOCAL4,
	"LOG_LOCAL5": syslog.LOG_LOCAL5,
	"LOG_LOCAL6": syslog.LOG_LOCAL6,
	"LOG_LOCAL7": syslog.LOG_LOCAL7,
}

// New returns the logger and the latch its stderr gate watches.
// If syslog cannot be reached, stderr is opened unconditionally.
func New(opts Options) (*zap.Logger, *Latch, error) {
	syslogLevel, err := parseLevel(opts.SyslogLevel)
	if err != nil {
		return nil, nil, err
	}
	stderrLevel, err := parseLevel(opts.StderrLevel)
	if err != nil {
		return nil, nil, err
	}
	facility, ok := facilities[strings.ToUpper(opts.SyslogFacility)]
	if !ok && opts.SyslogFacility != "" {
		return nil, nil, fmt.Errorf("unknown syslog facility %q", opts.SyslogFacility)
	}
	if !ok {
		facility = syslog.LOG_LOCAL1
	}

	latch := &Latch{}
	always := opts.StderrAlways
	var cores []zapcore.Core
	var syslogErr error

	if opts.DisableSyslog {
		always = true
	} else {
		w, err := syslog.New(facility|syslog.LOG_INFO, opts.SyslogTag)
		if err != nil {
			syslogErr = err
			always = true
		} else {
			cores = append(cores, newSyslogCore(zapcore.NewConsoleEncoder(syslogEncoderConfig()), w, syslogLevel))
		}
	}

	stderr := zapcore.NewCore(zapcore.NewConsoleEncoder(stderrEncoderConfig()), zapcore.Lock(os.Stderr), stderrLevel)
	cores = append(cores, NewStderrGate(stderr, latch, always, opts.StderrOnErrors))

	logger := zap.New(zapcore.NewTee(cores...)).Named(opts.SyslogTag)
	if syslogErr != nil {
		logger.Warn("syslog unavailable, logging to stderr", zap.Error(syslogErr))
	}
	return logger, latch, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	if err := level.Set(strings.ToLower(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func syslogEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func stderrEncoderConfig() zapcore.EncoderConfig {
	cfg := syslogEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
