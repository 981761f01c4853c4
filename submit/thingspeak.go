package submit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Uranury/weather-metrics/sensors"
)

// ThingSpeakSink posts a reading as a GET on the channel update URL, e.g.
// https://api.thingspeak.com/update?api_key=KEY. field1 carries temperature,
// field2 humidity.
type ThingSpeakSink struct {
	baseURL string
	client  *http.Client
}

func NewThingSpeakSink(baseURL string, timeout time.Duration) *ThingSpeakSink {
	return &ThingSpeakSink{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *ThingSpeakSink) Name() string {
	return "thingspeak"
}

func (t *ThingSpeakSink) Secrets() []string {
	return urlSecrets(t.baseURL)
}

// URL renders the update request for p.
func (t *ThingSpeakSink) URL(p Payload) string {
	sep := "&"
	if !strings.Contains(t.baseURL, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%sfield1=%s&field2=%s&created_at=%s",
		t.baseURL, sep,
		sensors.FormatOneDecimal(p.Temperature),
		sensors.FormatOneDecimal(p.Humidity),
		p.Timestamp,
	)
}

func (t *ThingSpeakSink) Send(ctx context.Context, p Payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL(p), nil)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("HTTP Error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}
