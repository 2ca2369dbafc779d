package offers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwielgosz/flight-risk/internal/common"
)

const (
	maxSearchResults = 20

	defaultDurationMinutes = 120
	errorMessageLimit      = 350
)

// SearchSource abstracts the live offer source for the ingestor.
type SearchSource interface {
	SearchOffers(ctx context.Context, origin, dest, departDate string, adults, maxResults int) ([]RawOffer, error)
}

// Ingestor runs one offer search with synthetic fallback and idempotent
// persistence: the request identity is stable across reruns, and the owned
// offer set is fully replaced each run.
type Ingestor struct {
	store  Store
	source SearchSource
	synth  *SyntheticGenerator
	now    func() time.Time
}

func NewIngestor(store Store, source SearchSource, synth *SyntheticGenerator) *Ingestor {
	return &Ingestor{
		store:  store,
		source: source,
		synth:  synth,
		now:    time.Now,
	}
}

// FetchWithFallback searches offers for one route/date/party-size. A past
// departure date is rejected without fallback; an empty or failed search
// substitutes fallbackN synthetic offers with a classified reason. Credential
// errors are fatal and returned as-is. Returns a human-readable summary.
func (ing *Ingestor) FetchWithFallback(ctx context.Context, origin, dest, departDate string, adults, fallbackN int) (string, error) {
	day, err := time.Parse("2006-01-02", departDate)
	if err != nil {
		return "", fmt.Errorf("invalid depart_date %q: %w", departDate, err)
	}

	requestID, err := ing.store.EnsureRequest(ctx, origin, dest, departDate, adults)
	if err != nil {
		return "", fmt.Errorf("ensure offer request: %w", err)
	}

	today := ing.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		msg := fmt.Sprintf("depart_date=%s is in the past", departDate)
		if err := ing.store.ReplaceOffers(ctx, requestID, nil, StatusInvalidInput, msg); err != nil {
			return "", fmt.Errorf("record invalid request: %w", err)
		}
		return fmt.Sprintf("INVALID_INPUT: %s %s-%s", msg, origin, dest), nil
	}

	status := StatusOK
	sourceTag := SourceAmadeus
	var errMsg string
	var final []Offer

	raw, searchErr := ing.source.SearchOffers(ctx, origin, dest, departDate, adults, maxSearchResults)
	switch {
	case searchErr != nil:
		var authErr *AuthError
		if errors.As(searchErr, &authErr) {
			return "", searchErr
		}
		msg := searchErr.Error()
		if common.HasAny(msg, "INVALID DATE", "in the past") {
			if err := ing.store.ReplaceOffers(ctx, requestID, nil, StatusInvalidInput, "INVALID DATE (past)"); err != nil {
				return "", fmt.Errorf("record invalid request: %w", err)
			}
			return fmt.Sprintf("INVALID_INPUT: rejected request (INVALID DATE) %s-%s %s",
				origin, dest, departDate), nil
		}
		status = StatusFallback
		sourceTag = SourceSynthetic
		if common.HasAny(msg, "429", "Too Many Requests") {
			errMsg = "429 Too Many Requests"
		} else {
			errMsg = common.Truncate(msg, errorMessageLimit)
		}
		final = ing.synth.Generate(fallbackN)

	default:
		final = parseRawOffers(raw)
		if len(final) == 0 {
			status = StatusFallback
			sourceTag = SourceSynthetic
			errMsg = "0 offers from amadeus"
			final = ing.synth.Generate(fallbackN)
		}
	}

	for i := range final {
		final[i].OfferID = uuid.NewString()
		final[i].RequestID = requestID
		final[i].Source = sourceTag
	}

	if err := ing.store.ReplaceOffers(ctx, requestID, final, status, errMsg); err != nil {
		return "", fmt.Errorf("replace offers: %w", err)
	}

	if status == StatusFallback {
		return fmt.Sprintf("FALLBACK: saved %d synthetic offers for %s-%s %s (reason=%s)",
			len(final), origin, dest, departDate, errMsg), nil
	}
	return fmt.Sprintf("OK: saved %d amadeus offers for %s-%s %s",
		len(final), origin, dest, departDate), nil
}

// parseRawOffers normalizes raw records, dropping malformed and price-less
// ones.
func parseRawOffers(raw []RawOffer) []Offer {
	out := make([]Offer, 0, len(raw))
	for _, r := range raw {
		price, err := strconv.ParseFloat(r.Price.Total, 64)
		if err != nil || r.Price.Total == "" {
			continue
		}

		currency := r.Price.Currency
		if currency == "" {
			currency = "EUR"
		}

		stops := 0
		duration := defaultDurationMinutes
		carrier := ""
		if len(r.Itineraries) > 0 {
			it := r.Itineraries[0]
			if n := len(it.Segments); n > 1 {
				stops = n - 1
			}
			if n := len(it.Segments); n > 0 {
				carrier = it.Segments[0].CarrierCode
			}
			if d, ok := parseISODuration(it.Duration); ok {
				duration = d
			}
		}

		out = append(out, Offer{
			PriceTotal:      price,
			Currency:        currency,
			Stops:           stops,
			DurationMinutes: duration,
			CarrierCode:     carrier,
		})
	}
	return out
}

// parseISODuration reads the PT#H#M form Amadeus uses for itinerary
// durations. Returns minutes.
func parseISODuration(s string) (int, bool) {
	if !strings.HasPrefix(s, "PT") {
		return 0, false
	}
	rest := s[2:]
	minutes := 0
	if i := strings.IndexByte(rest, 'H'); i >= 0 {
		h, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, false
		}
		minutes += h * 60
		rest = rest[i+1:]
	}
	if i := strings.IndexByte(rest, 'M'); i >= 0 {
		m, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, false
		}
		minutes += m
		rest = rest[i+1:]
	}
	if rest != "" || minutes == 0 {
		return 0, false
	}
	return minutes, true
}
