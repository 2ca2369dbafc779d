package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mwielgosz/flight-risk/internal/common"
)

// Default Open-Meteo endpoints. The archive API only has settled data up to
// roughly two days in the past; fresher days come from the forecast API.
const (
	DefaultArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	hourlyFields = "temperature_2m,wind_speed_10m,precipitation,visibility"

	errorBodyLimit = 800
)

// OpenMeteoClient fetches hourly weather series from the two Open-Meteo
// endpoints. One circuit breaker per endpoint; a single attempt per call,
// no retries.
type OpenMeteoClient struct {
	httpClient  *http.Client
	archiveURL  string
	forecastURL string
	archiveCB   *gobreaker.CircuitBreaker
	forecastCB  *gobreaker.CircuitBreaker
}

func NewOpenMeteoClient(client *http.Client, archiveURL, forecastURL string) *OpenMeteoClient {
	if archiveURL == "" {
		archiveURL = DefaultArchiveURL
	}
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}

	newCB := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &OpenMeteoClient{
		httpClient:  client,
		archiveURL:  archiveURL,
		forecastURL: forecastURL,
		archiveCB:   newCB("openmeteo-archive"),
		forecastCB:  newCB("openmeteo-forecast"),
	}
}

// FetchHourly retrieves the hourly series for a coordinate and date range.
// mode selects the archive (historical) or forecast endpoint. An empty series
// is not an error at this layer; callers validate emptiness themselves.
func (c *OpenMeteoClient) FetchHourly(ctx context.Context, lat, lon float64, start, end time.Time, mode Source) ([]HourlyObservation, error) {
	base := c.forecastURL
	cb := c.forecastCB
	switch mode {
	case SourceHistorical:
		base = c.archiveURL
		cb = c.archiveCB
	case SourceForecast:
	default:
		return nil, fmt.Errorf("unsupported fetch mode %q", mode)
	}

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", lat))
	values.Set("longitude", fmt.Sprintf("%f", lon))
	values.Set("hourly", hourlyFields)
	values.Set("start_date", start.UTC().Format("2006-01-02"))
	values.Set("end_date", end.UTC().Format("2006-01-02"))
	values.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := c.httpClient.Do(req)
		if execErr != nil {
			return nil, &ServiceError{Mode: mode, Body: execErr.Error()}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
			return nil, &ServiceError{
				Mode:       mode,
				StatusCode: resp.StatusCode,
				Body:       common.Truncate(string(body), errorBodyLimit),
			}
		}

		var payload hourlyPayload
		if decErr := json.NewDecoder(resp.Body).Decode(&payload); decErr != nil {
			return nil, &ValidationError{Reason: "decode: " + decErr.Error()}
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	payload := result.(hourlyPayload)
	return payload.observations(mode)
}

// hourlyPayload mirrors Open-Meteo's nested hourly block of parallel arrays.
// Value arrays use pointers: the API emits null for hours it cannot report.
type hourlyPayload struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature2M []*float64 `json:"temperature_2m"`
		WindSpeed10M  []*float64 `json:"wind_speed_10m"`
		Precipitation []*float64 `json:"precipitation"`
		Visibility    []*float64 `json:"visibility"`
	} `json:"hourly"`
}

func (p hourlyPayload) observations(mode Source) ([]HourlyObservation, error) {
	h := p.Hourly
	obs := make([]HourlyObservation, 0, len(h.Time))
	for i, raw := range h.Time {
		ts, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("bad time %q", raw)}
		}
		obs = append(obs, HourlyObservation{
			Timestamp:       ts.UTC(),
			Source:          mode,
			TemperatureC:    at(h.Temperature2M, i),
			WindspeedMS:     at(h.WindSpeed10M, i),
			PrecipitationMM: at(h.Precipitation, i),
			VisibilityM:     at(h.Visibility, i),
		})
	}
	return obs, nil
}

// at guards against value arrays shorter than the time axis.
func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}
