package offers

import "context"

// RequestStatus is the final state of one offer-search request.
type RequestStatus string

const (
	StatusOK           RequestStatus = "ok"
	StatusFallback     RequestStatus = "fallback"
	StatusInvalidInput RequestStatus = "invalid_input"
)

// Offer source tags.
const (
	SourceAmadeus   = "amadeus"
	SourceSynthetic = "synthetic"
)

// Request is one offer-search identity. The natural key is
// (origin, dest, depart date, adults); RequestID is stable across reruns.
type Request struct {
	RequestID    int64
	Origin       string
	Dest         string
	DepartDate   string // YYYY-MM-DD
	Adults       int
	Status       RequestStatus
	OffersCount  int
	ErrorMessage string
}

// Offer is one normalized flight offer owned by a request.
type Offer struct {
	OfferID         string
	RequestID       int64
	Source          string
	PriceTotal      float64
	Currency        string
	Stops           int
	DurationMinutes int
	CarrierCode     string
}

// Store is the persistence contract for the offer pipeline.
type Store interface {
	// EnsureRequest upserts the request identity with a provisional status
	// and returns its durable id; the id of the first insert survives
	// reruns of the same natural key.
	EnsureRequest(ctx context.Context, origin, dest, departDate string, adults int) (int64, error)

	// ReplaceOffers deletes every offer owned by the request, inserts the
	// final set, and updates the request's status, count, and error message
	// in a single transaction.
	ReplaceOffers(ctx context.Context, requestID int64, list []Offer, status RequestStatus, errMsg string) error

	// GetRequest returns the persisted request for a natural key along
	// with its offers, or nil when the key was never searched.
	GetRequest(ctx context.Context, origin, dest, departDate string, adults int) (*Request, []Offer, error)
}
