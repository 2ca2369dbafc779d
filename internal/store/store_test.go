package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mwielgosz/flight-risk/internal/airports"
	"github.com/mwielgosz/flight-risk/internal/flights"
	"github.com/mwielgosz/flight-risk/internal/offers"
	"github.com/mwielgosz/flight-risk/internal/weather"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "flight-risk-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpfile.Close()

	s, err := New(tmpfile.Name())
	if err != nil {
		os.Remove(tmpfile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
		os.Remove(tmpfile.Name())
	})
	return s
}

func coord(v float64) *float64 { return &v }

func seedAirport(t *testing.T, s *Store, iata, country string) {
	t.Helper()
	_, err := s.UpsertAirports(context.Background(), []airports.Airport{{
		IATACode:    iata,
		Name:        iata + " airport",
		CountryCode: country,
		Latitude:    coord(52.0),
		Longitude:   coord(20.0),
		IsActive:    true,
		Source:      "ourairports",
	}})
	if err != nil {
		t.Fatalf("seed airport %s: %v", iata, err)
	}
}

func day(s string) time.Time {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return ts
}

func TestUpsertAirports(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	seedAirport(t, s, "WAW", "PL")
	// Second upsert with changed data must overwrite, not duplicate.
	if _, err := s.UpsertAirports(ctx, []airports.Airport{{
		IATACode: "WAW", Name: "Warsaw Chopin", CountryCode: "PL",
		Latitude: coord(52.17), Longitude: coord(20.97), IsActive: true, Source: "ourairports",
	}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	list, err := s.ListWithCoordinates(ctx, "PL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 airport, got %d", len(list))
	}
	if list[0].Name != "Warsaw Chopin" || *list[0].Latitude != 52.17 {
		t.Errorf("upsert did not overwrite: %+v", list[0])
	}
}

func TestListWithCoordinatesFilters(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	seedAirport(t, s, "WAW", "PL")
	// Airport without coordinates must be excluded.
	if _, err := s.UpsertAirports(ctx, []airports.Airport{{
		IATACode: "XXX", Name: "nowhere", CountryCode: "PL", IsActive: true, Source: "ourairports",
	}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	seedAirport(t, s, "FRA", "DE")

	list, err := s.ListWithCoordinates(ctx, "PL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].IATACode != "WAW" {
		t.Fatalf("expected only WAW, got %+v", list)
	}
}

func TestSaveHourlyUpsert(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	seedAirport(t, s, "WAW", "PL")

	obs := weather.GenerateSyntheticHourly("WAW", day("2026-02-01"), day("2026-02-01"))
	if n, err := s.SaveHourly(ctx, obs); err != nil || n != 24 {
		t.Fatalf("first save: n=%d err=%v", n, err)
	}
	// Saving the same natural keys again must overwrite, not duplicate.
	if n, err := s.SaveHourly(ctx, obs); err != nil || n != 24 {
		t.Fatalf("second save: n=%d err=%v", n, err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM weather_hourly`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 24 {
		t.Fatalf("expected 24 rows after re-save, got %d", count)
	}
}

// Full pipeline over the store: 7 days of synthetic weather must aggregate
// into exactly 7 daily groups, and the derived risk rows must survive a
// recompute byte for byte.
func TestHazardRatiosAndRiskIdempotence(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	seedAirport(t, s, "WAW", "PL")

	obs := weather.GenerateSyntheticHourly("WAW", day("2026-02-01"), day("2026-02-07"))
	if _, err := s.SaveHourly(ctx, obs); err != nil {
		t.Fatalf("save hourly: %v", err)
	}

	scorer := weather.NewRiskScorer(s)
	if _, err := scorer.ComputeCountry(ctx, "PL"); err != nil {
		t.Fatalf("first compute: %v", err)
	}
	first, err := s.ListDailyRisk(ctx, "PL")
	if err != nil {
		t.Fatalf("list risk: %v", err)
	}
	if len(first) != 7 {
		t.Fatalf("expected 7 daily risk rows, got %d", len(first))
	}
	for _, r := range first {
		if r.Source != weather.SourceSynthetic {
			t.Errorf("risk row source %q, want synthetic", r.Source)
		}
		if r.Score < 0 || r.Score > 3 {
			t.Errorf("risk score %f out of [0,3]", r.Score)
		}
		if r.Level != weather.LevelForScore(r.Score) {
			t.Errorf("level %q inconsistent with score %f", r.Level, r.Score)
		}
	}

	if _, err := scorer.ComputeCountry(ctx, "PL"); err != nil {
		t.Fatalf("second compute: %v", err)
	}
	second, err := s.ListDailyRisk(ctx, "PL")
	if err != nil {
		t.Fatalf("list risk: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("row count changed on recompute")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("risk row %d changed on recompute: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestListScheduledWithRisk(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	seedAirport(t, s, "WAW", "PL")

	dep := day("2026-02-05").Add(9 * time.Hour)
	if _, err := s.InsertFlights(ctx, []flights.Flight{
		{DepAirport: "WAW", ArrAirport: "FRA", SchedDep: dep, SchedArr: dep.Add(2 * time.Hour), Status: flights.StatusScheduled, Seats: 180},
		{DepAirport: "WAW", ArrAirport: "CDG", SchedDep: dep, SchedArr: dep.Add(2 * time.Hour), Status: flights.StatusCancelled, Seats: 180},
	}); err != nil {
		t.Fatalf("insert flights: %v", err)
	}

	// No risk rows yet: scheduled flight resolves to LOW.
	rows, err := s.ListScheduledWithRisk(ctx, "PL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the one scheduled flight, got %d", len(rows))
	}
	if rows[0].Level != weather.RiskLow {
		t.Errorf("missing risk row resolved to %q, want LOW", rows[0].Level)
	}

	// Risk row for the departure day and source=forecast must be picked up.
	if _, err := s.SaveDailyRisk(ctx, []weather.DailyRisk{
		{AirportCode: "WAW", Day: "2026-02-05", Source: weather.SourceForecast, Score: 2.4, Level: weather.RiskHigh},
		{AirportCode: "WAW", Day: "2026-02-05", Source: weather.SourceSynthetic, Score: 0.1, Level: weather.RiskLow},
	}); err != nil {
		t.Fatalf("save risk: %v", err)
	}
	rows, err = s.ListScheduledWithRisk(ctx, "PL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if rows[0].Level != weather.RiskHigh {
		t.Errorf("level %q, want HIGH from forecast row", rows[0].Level)
	}
}

func TestApplyOutcomes(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	seedAirport(t, s, "WAW", "PL")

	dep := day("2026-02-05").Add(9 * time.Hour)
	if _, err := s.InsertFlights(ctx, []flights.Flight{
		{DepAirport: "WAW", ArrAirport: "FRA", SchedDep: dep, SchedArr: dep.Add(2 * time.Hour), Status: flights.StatusScheduled, Seats: 160},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := s.ListScheduledWithRisk(ctx, "PL")
	if err != nil || len(rows) != 1 {
		t.Fatalf("list: rows=%d err=%v", len(rows), err)
	}

	if _, err := s.ApplyOutcomes(ctx, []flights.Outcome{
		{FlightID: rows[0].FlightID, Status: flights.StatusDelayed, DelayMinutes: 45},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// The delayed flight must no longer be visible to a later pass.
	rows, err = s.ListScheduledWithRisk(ctx, "PL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("delayed flight still listed as scheduled")
	}
}

func TestEnsureRequestStableID(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	first, err := s.EnsureRequest(ctx, "WAW", "CDG", "2026-03-01", 1)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := s.EnsureRequest(ctx, "WAW", "CDG", "2026-03-01", 1)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first != second {
		t.Errorf("request id changed across reruns: %d vs %d", first, second)
	}

	other, err := s.EnsureRequest(ctx, "WAW", "CDG", "2026-03-01", 2)
	if err != nil {
		t.Fatalf("other ensure: %v", err)
	}
	if other == first {
		t.Errorf("different party size reused request id %d", first)
	}
}

func TestReplaceOffersIsFullReplacement(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	id, err := s.EnsureRequest(ctx, "WAW", "FCO", "2026-03-01", 1)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	firstSet := []offers.Offer{
		{OfferID: "o1", RequestID: id, Source: offers.SourceSynthetic, PriceTotal: 101.10, Currency: "EUR", Stops: 0, DurationMinutes: 120},
		{OfferID: "o2", RequestID: id, Source: offers.SourceSynthetic, PriceTotal: 88.20, Currency: "EUR", Stops: 1, DurationMinutes: 200},
	}
	if err := s.ReplaceOffers(ctx, id, firstSet, offers.StatusFallback, "0 offers from amadeus"); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	secondSet := []offers.Offer{
		{OfferID: "o3", RequestID: id, Source: offers.SourceAmadeus, PriceTotal: 140.00, Currency: "EUR", Stops: 0, DurationMinutes: 115, CarrierCode: "LO"},
	}
	if err := s.ReplaceOffers(ctx, id, secondSet, offers.StatusOK, ""); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	req, list, err := s.GetRequest(ctx, "WAW", "FCO", "2026-03-01", 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if req == nil {
		t.Fatal("request not found")
	}
	if req.Status != offers.StatusOK || req.ErrorMessage != "" {
		t.Errorf("request state %+v, want ok with empty error", req)
	}
	if len(list) != 1 || list[0].OfferID != "o3" {
		t.Fatalf("offers after replace: %+v, want only o3", list)
	}
	if req.OffersCount != len(list) {
		t.Errorf("offers_cnt %d diverges from row count %d", req.OffersCount, len(list))
	}
}

func TestGetRequestUnknownKey(t *testing.T) {
	s := setupTestDB(t)
	req, list, err := s.GetRequest(context.Background(), "AAA", "BBB", "2026-01-01", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil || list != nil {
		t.Fatalf("expected nil result for unknown key")
	}
}
