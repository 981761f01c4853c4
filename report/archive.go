package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Uranury/weather-metrics/sensors"
)

const fileLayout = "200601"

// Archive appends readings to monthly files named YYYYMM.csv, one line per
// reading in the same format as stdout.
type Archive struct {
	dir string
}

// NewArchive creates dir if needed.
func NewArchive(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create archive dir: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Path returns the file holding readings taken in t's month (UTC).
func (a *Archive) Path(t time.Time) string {
	return filepath.Join(a.dir, t.UTC().Format(fileLayout)+".csv")
}

func (a *Archive) Append(r sensors.Reading) error {
	f, err := os.OpenFile(a.Path(r.Timestamp), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(Fields(r)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Month loads the readings archived for t's month. A missing file is an
// empty month.
func (a *Archive) Month(t time.Time) ([]sensors.Reading, error) {
	readings, err := LoadFile(a.Path(t))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return readings, err
}

// LoadFile reads an archive file. Malformed lines are skipped.
func LoadFile(path string) ([]sensors.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []sensors.Reading
	for _, rec := range records {
		if len(rec) < 3 {
			continue
		}
		ts, err := time.Parse(TimestampLayout, rec[0])
		if err != nil {
			continue
		}
		temperature, err1 := strconv.ParseFloat(rec[1], 64)
		humidity, err2 := strconv.ParseFloat(rec[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, sensors.Reading{Timestamp: ts, Temperature: temperature, Humidity: humidity})
	}
	return out, nil
}
