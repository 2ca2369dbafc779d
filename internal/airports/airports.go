package airports

import "context"

// Airport is one row of the airport directory. Coordinates are pointers
// because the source file leaves them blank for some fields.
type Airport struct {
	IATACode    string
	Name        string
	CountryCode string
	Latitude    *float64
	Longitude   *float64
	IsActive    bool
	Source      string
}

// Store is the persistence contract for the airport directory.
type Store interface {
	// UpsertAirports writes the batch in one transaction, keyed by IATA
	// code. Returns rows written.
	UpsertAirports(ctx context.Context, list []Airport) (int, error)

	// ListWithCoordinates returns active airports of a country that have
	// both latitude and longitude set.
	ListWithCoordinates(ctx context.Context, countryCode string) ([]Airport, error)
}
