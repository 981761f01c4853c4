package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uranury/weather-metrics/sensors"
)

func reading(ts time.Time, temperature, humidity float64) sensors.Reading {
	return sensors.Reading{Sensor: sensors.ModelDHT22, Timestamp: ts, Temperature: temperature, Humidity: humidity}
}

func TestLine(t *testing.T) {
	r := reading(time.Date(2026, 10, 18, 6, 30, 1, 730_000_000, time.UTC), 21.36, 55.04)
	assert.Equal(t, "2026-10-18 06:30:01+00;21.4;55.0", Line(r))
}

func TestLineConvertsToUTC(t *testing.T) {
	athens := time.FixedZone("EEST", 3*60*60)
	r := reading(time.Date(2026, 10, 18, 9, 30, 0, 0, athens), -3.45, 100)
	assert.Equal(t, "2026-10-18 06:30:00+00;-3.5;100.0", Line(r))
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, reading(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), 20, 45.55)))
	assert.Equal(t, "2026-01-02 03:04:05+00;20.0;45.5\n", buf.String())
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchive(filepath.Join(dir, "dht22"))
	require.NoError(t, err)

	oct := time.Date(2026, 10, 18, 6, 30, 0, 0, time.UTC)
	require.NoError(t, a.Append(reading(oct, 21.36, 55.04)))
	require.NoError(t, a.Append(reading(oct.Add(10*time.Minute), 21.5, 54.9)))
	require.NoError(t, a.Append(reading(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), 12, 80)))

	raw, err := os.ReadFile(filepath.Join(dir, "dht22", "202610.csv"))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18 06:30:00+00;21.4;55.0\n2026-10-18 06:40:00+00;21.5;54.9\n", string(raw))

	loaded, err := a.Month(oct)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, oct, loaded[0].Timestamp)
	assert.Equal(t, 21.4, loaded[0].Temperature)
	assert.Equal(t, 54.9, loaded[1].Humidity)

	empty, err := a.Month(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadFileSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "202610.csv")
	content := "2026-10-18 06:30:00+00;21.4;55.0\nnot a line\n2026-10-18 06:40:00+00;oops;1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}
