package flights

import (
	"context"
	"time"

	"github.com/mwielgosz/flight-risk/internal/weather"
)

// Status of a scheduled flight. Within one simulation pass the transition is
// one-way: scheduled flights may become delayed or cancelled, never back.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusDelayed   Status = "delayed"
	StatusCancelled Status = "cancelled"
)

// Flight is one scheduled operation.
type Flight struct {
	ID           int64
	DepAirport   string
	ArrAirport   string
	SchedDep     time.Time
	SchedArr     time.Time
	Status       Status
	DelayMinutes int
	Seats        int
}

// ScheduledRisk pairs a still-scheduled flight with the forecast risk level
// for its departure airport and day. Missing risk rows resolve to LOW.
type ScheduledRisk struct {
	FlightID   int64
	DepAirport string
	Day        string
	Level      weather.RiskLevel
}

// Outcome is the result of one simulation draw for one flight.
type Outcome struct {
	FlightID     int64
	Status       Status
	DelayMinutes int
}

// Store is the persistence contract for the operations side.
type Store interface {
	// InsertFlights writes the batch in one transaction. Returns rows written.
	InsertFlights(ctx context.Context, list []Flight) (int, error)

	// ListScheduledWithRisk returns every status=scheduled flight departing
	// from an airport of the country, joined with its forecast risk level.
	ListScheduledWithRisk(ctx context.Context, countryCode string) ([]ScheduledRisk, error)

	// ApplyOutcomes updates flight status and delay in one transaction.
	ApplyOutcomes(ctx context.Context, outcomes []Outcome) (int, error)
}
