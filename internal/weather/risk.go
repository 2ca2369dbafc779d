package weather

import (
	"context"
	"fmt"
)

// RiskScorer derives daily risk classifications from persisted hourly rows.
// Recomputing with unchanged hourly data yields byte-identical risk rows.
type RiskScorer struct {
	store Store
}

func NewRiskScorer(store Store) *RiskScorer {
	return &RiskScorer{store: store}
}

// ComputeCountry aggregates every (airport, day, source) group of a country
// into a risk score and level and upserts the result. The score is the sum of
// three daily hazard ratios (wind > 12 m/s, precipitation > 1.0 mm,
// visibility < 3000 m), so it lies in [0, 3].
func (rs *RiskScorer) ComputeCountry(ctx context.Context, countryCode string) (string, error) {
	groups, err := rs.store.HazardRatios(ctx, countryCode)
	if err != nil {
		return "", fmt.Errorf("aggregate hazard ratios for %s: %w", countryCode, err)
	}

	rows := make([]DailyRisk, 0, len(groups))
	for _, g := range groups {
		score := g.WindRatio + g.PrecipRatio + g.VisibilityRatio
		rows = append(rows, DailyRisk{
			AirportCode: g.AirportCode,
			Day:         g.Day,
			Source:      g.Source,
			Score:       score,
			Level:       LevelForScore(score),
		})
	}

	n, err := rs.store.SaveDailyRisk(ctx, rows)
	if err != nil {
		return "", fmt.Errorf("save daily risk for %s: %w", countryCode, err)
	}
	return fmt.Sprintf("OK: upserted %d daily risk rows for %s", n, countryCode), nil
}
