package flights

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/mwielgosz/flight-risk/internal/weather"
)

// tierParams hold the disruption probabilities per risk level.
type tierParams struct {
	pCancel  float64
	pDelay   float64
	delayMin int
	delayMax int
}

var impactTiers = map[weather.RiskLevel]tierParams{
	weather.RiskHigh:   {pCancel: 0.08, pDelay: 0.45, delayMin: 30, delayMax: 180},
	weather.RiskMedium: {pCancel: 0.03, pDelay: 0.25, delayMin: 15, delayMax: 90},
	weather.RiskLow:    {pCancel: 0.01, pDelay: 0.12, delayMin: 5, delayMax: 40},
}

// ImpactSimulator mutates still-scheduled flights based on the forecast risk
// of their departure day. One draw per flight; a one-shot pass, not an
// idempotent transform. Flights already delayed or cancelled are never
// revisited because only status=scheduled rows are selected. Safe for
// concurrent use; rand.Rand is not, so draws are serialized.
type ImpactSimulator struct {
	store Store
	mu    sync.Mutex
	rng   *rand.Rand
}

func NewImpactSimulator(store Store, rng *rand.Rand) *ImpactSimulator {
	return &ImpactSimulator{store: store, rng: rng}
}

// ApplyCountry draws a disruption outcome for every scheduled flight
// departing from the country and persists the changed ones. Returns a
// human-readable summary.
func (s *ImpactSimulator) ApplyCountry(ctx context.Context, countryCode string) (string, error) {
	rows, err := s.store.ListScheduledWithRisk(ctx, countryCode)
	if err != nil {
		return "", fmt.Errorf("list scheduled flights for %s: %w", countryCode, err)
	}

	var (
		outcomes  []Outcome
		cancelled int
		delayed   int
	)

	for _, row := range rows {
		out := s.draw(row)
		switch out.Status {
		case StatusCancelled:
			cancelled++
		case StatusDelayed:
			delayed++
		default:
			continue
		}
		outcomes = append(outcomes, out)
	}

	if _, err := s.store.ApplyOutcomes(ctx, outcomes); err != nil {
		return "", fmt.Errorf("apply flight outcomes for %s: %w", countryCode, err)
	}

	return fmt.Sprintf("OK: processed %d scheduled flights for impact (cancelled %d, delayed %d)",
		len(rows), cancelled, delayed), nil
}

func (s *ImpactSimulator) draw(row ScheduledRisk) Outcome {
	params, ok := impactTiers[row.Level]
	if !ok {
		params = impactTiers[weather.RiskLow]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rng.Float64()
	switch {
	case r < params.pCancel:
		return Outcome{FlightID: row.FlightID, Status: StatusCancelled, DelayMinutes: 0}
	case r < params.pCancel+params.pDelay:
		delay := params.delayMin + s.rng.Intn(params.delayMax-params.delayMin+1)
		return Outcome{FlightID: row.FlightID, Status: StatusDelayed, DelayMinutes: delay}
	default:
		return Outcome{FlightID: row.FlightID, Status: StatusScheduled, DelayMinutes: 0}
	}
}
