package weather

import (
	"context"
	"time"

	"github.com/mwielgosz/flight-risk/internal/airports"
)

// Source tags where an hourly observation came from.
type Source string

const (
	SourceHistorical Source = "historical"
	SourceForecast   Source = "forecast"
	SourceSynthetic  Source = "synthetic"
)

// RiskLevel is the step-function classification of a daily risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// LevelForScore maps a risk score in [0,3] to its tier.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 2.0:
		return RiskHigh
	case score >= 1.0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// HourlyObservation is one hour of weather for one airport from one source.
// Measurement fields are pointers because upstream parallel arrays may carry
// nulls or be shorter than the time axis; synthetic rows always set them.
type HourlyObservation struct {
	AirportCode     string
	Timestamp       time.Time // UTC, hour-truncated
	Source          Source
	TemperatureC    *float64
	WindspeedMS     *float64
	PrecipitationMM *float64
	VisibilityM     *float64
}

// DailyRisk is the per-airport, per-day, per-source risk classification.
// Day is an ISO date (YYYY-MM-DD).
type DailyRisk struct {
	AirportCode string
	Day         string
	Source      Source
	Score       float64
	Level       RiskLevel
}

// HazardRatios holds the daily fraction of hazardous hours per indicator for
// one (airport, day, source) group. Null-valued hours count as non-hazardous
// but stay in the denominator.
type HazardRatios struct {
	AirportCode     string
	Day             string
	Source          Source
	WindRatio       float64
	PrecipRatio     float64
	VisibilityRatio float64
}

// Store is the persistence contract the hourly and risk pipelines need.
type Store interface {
	// SaveHourly upserts a batch of observations in one transaction,
	// keyed by (airport, timestamp, source). Returns rows written.
	SaveHourly(ctx context.Context, obs []HourlyObservation) (int, error)

	// HazardRatios aggregates persisted hourly rows for airports of a
	// country into daily hazard-indicator ratios.
	HazardRatios(ctx context.Context, countryCode string) ([]HazardRatios, error)

	// SaveDailyRisk upserts risk rows keyed by (airport, day, source).
	SaveDailyRisk(ctx context.Context, rows []DailyRisk) (int, error)

	// ListDailyRisk returns persisted risk rows for a country, ordered by
	// airport, day, source.
	ListDailyRisk(ctx context.Context, countryCode string) ([]DailyRisk, error)
}

// AirportDirectory supplies the airports a country-level pass iterates over.
type AirportDirectory interface {
	ListWithCoordinates(ctx context.Context, countryCode string) ([]airports.Airport, error)
}
