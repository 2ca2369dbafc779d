package weather

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// The archive endpoint only has settled data up to about two days back;
// anything fresher has to come from the forecast endpoint.
const historicalCutoffDays = 2

// Client abstracts the live weather source for the ingestor.
type Client interface {
	FetchHourly(ctx context.Context, lat, lon float64, start, end time.Time, mode Source) ([]HourlyObservation, error)
}

// Ingestor runs the country-level hourly weather acquisition: live fetch per
// airport with a deterministic synthetic fallback when the source fails or
// returns an unusable series.
type Ingestor struct {
	store    Store
	airports AirportDirectory
	client   Client
	now      func() time.Time
}

func NewIngestor(store Store, airports AirportDirectory, client Client) *Ingestor {
	return &Ingestor{
		store:    store,
		airports: airports,
		client:   client,
		now:      time.Now,
	}
}

// IngestCountry fetches and persists hourly weather for every active airport
// with coordinates in the country over [start, end]. Per-airport failures are
// isolated: a failing airport falls back to a synthetic series for its full
// requested range and the pass continues. Returns a human-readable summary.
func (ing *Ingestor) IngestCountry(ctx context.Context, countryCode string, start, end time.Time) (string, error) {
	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)
	if startDay.After(endDay) {
		return "", fmt.Errorf("start date %s is after end date %s",
			startDay.Format("2006-01-02"), endDay.Format("2006-01-02"))
	}

	list, err := ing.airports.ListWithCoordinates(ctx, countryCode)
	if err != nil {
		return "", fmt.Errorf("list airports for %s: %w", countryCode, err)
	}
	if len(list) == 0 {
		return fmt.Sprintf("EMPTY: no airports with coords for %s", countryCode), nil
	}

	histEnd := ing.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -historicalCutoffDays)

	var (
		saved     int
		fallbacks []string
	)

	for _, ap := range list {
		obs, fetchErr := ing.fetchAirport(ctx, *ap.Latitude, *ap.Longitude, startDay, endDay, histEnd)
		if fetchErr == nil {
			for i := range obs {
				obs[i].AirportCode = ap.IATACode
			}
			n, saveErr := ing.store.SaveHourly(ctx, obs)
			if saveErr != nil {
				return "", fmt.Errorf("save hourly rows for %s: %w", ap.IATACode, saveErr)
			}
			saved += n
			continue
		}

		// Live path failed for this airport: regenerate its whole range
		// synthetically so the persisted series stays internally consistent.
		log.Printf("weather: falling back to synthetic for %s: %v", ap.IATACode, fetchErr)
		synth := GenerateSyntheticHourly(ap.IATACode, startDay, endDay)
		n, saveErr := ing.store.SaveHourly(ctx, synth)
		if saveErr != nil {
			return "", fmt.Errorf("save synthetic rows for %s: %w", ap.IATACode, saveErr)
		}
		saved += n
		fallbacks = append(fallbacks, fmt.Sprintf("%s (%v)", ap.IATACode, fetchErr))
	}

	summary := fmt.Sprintf("OK: saved %d hourly weather rows for %s (%s..%s)",
		saved, countryCode, startDay.Format("2006-01-02"), endDay.Format("2006-01-02"))
	if len(fallbacks) > 0 {
		summary += "; synthetic fallback: " + strings.Join(fallbacks, "; ")
	}
	return summary, nil
}

// fetchAirport pulls the historical and/or forecast sub-range for one
// coordinate and validates both before anything is returned, so a failing
// sub-range never leaves a half-written live series behind.
func (ing *Ingestor) fetchAirport(ctx context.Context, lat, lon float64, startDay, endDay, histEnd time.Time) ([]HourlyObservation, error) {
	var out []HourlyObservation

	if !startDay.After(histEnd) {
		he := endDay
		if he.After(histEnd) {
			he = histEnd
		}
		obs, err := ing.client.FetchHourly(ctx, lat, lon, startDay, he, SourceHistorical)
		if err != nil {
			return nil, err
		}
		if err := validateSeries(obs); err != nil {
			return nil, err
		}
		out = append(out, obs...)
	}

	if endDay.After(histEnd) {
		fs := startDay
		if cut := histEnd.AddDate(0, 0, 1); fs.Before(cut) {
			fs = cut
		}
		obs, err := ing.client.FetchHourly(ctx, lat, lon, fs, endDay, SourceForecast)
		if err != nil {
			return nil, err
		}
		if err := validateSeries(obs); err != nil {
			return nil, err
		}
		out = append(out, obs...)
	}

	return out, nil
}

// validateSeries rejects series that are empty or carry zero timestamps.
// Emptiness is not an error at the client layer, but here it means the
// airport has no usable live data and must take the fallback path.
func validateSeries(obs []HourlyObservation) error {
	if len(obs) == 0 {
		return &ValidationError{Reason: "empty hourly series"}
	}
	for _, o := range obs {
		if o.Timestamp.IsZero() {
			return &ValidationError{Reason: "observation with zero timestamp"}
		}
	}
	return nil
}
