// Package report renders validated readings for people and cron: one
// semicolon-delimited line per reading on stdout, optionally mirrored into a
// monthly CSV archive.
package report

import (
	"fmt"
	"io"

	"github.com/Uranury/weather-metrics/sensors"
)

// TimestampLayout renders UTC with a literal "+00" offset.
const TimestampLayout = "2006-01-02 15:04:05+00"

// Fields returns timestamp, temperature and humidity as printed.
func Fields(r sensors.Reading) []string {
	return []string{
		r.Timestamp.UTC().Format(TimestampLayout),
		r.TemperatureText(),
		r.HumidityText(),
	}
}

// Line formats r as "<timestamp>;<temperature>;<humidity>".
func Line(r sensors.Reading) string {
	f := Fields(r)
	return f[0] + ";" + f[1] + ";" + f[2]
}

// Print writes Line(r) followed by a newline.
func Print(w io.Writer, r sensors.Reading) error {
	_, err := fmt.Fprintln(w, Line(r))
	return err
}
