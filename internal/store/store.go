package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mwielgosz/flight-risk/internal/airports"
	"github.com/mwielgosz/flight-risk/internal/flights"
	"github.com/mwielgosz/flight-risk/internal/offers"
	"github.com/mwielgosz/flight-risk/internal/weather"
)

const dtLayout = "2006-01-02 15:04:05"

// Store is the shared SQLite store behind every pipeline. Each logical
// operation runs in its own transaction; SQLite serializes concurrent
// writers, which is the only coordination the workers need.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertAirports writes the batch keyed by IATA code in one transaction.
func (s *Store) UpsertAirports(ctx context.Context, list []airports.Airport) (int, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (int, error) {
		const query = `
			INSERT INTO airports (iata_code, name, country_code, latitude, longitude, is_active, source)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(iata_code) DO UPDATE SET
				name = excluded.name,
				country_code = excluded.country_code,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				is_active = excluded.is_active,
				source = excluded.source
		`
		n := 0
		for _, ap := range list {
			if _, err := tx.ExecContext(ctx, query,
				ap.IATACode, ap.Name, ap.CountryCode,
				ap.Latitude, ap.Longitude, boolToInt(ap.IsActive), ap.Source,
			); err != nil {
				return 0, fmt.Errorf("upsert airport %s: %w", ap.IATACode, err)
			}
			n++
		}
		return n, nil
	})
}

// ListWithCoordinates returns active airports of a country with both
// coordinates present.
func (s *Store) ListWithCoordinates(ctx context.Context, countryCode string) ([]airports.Airport, error) {
	const query = `
		SELECT iata_code, name, country_code, latitude, longitude, is_active, source
		FROM airports
		WHERE country_code = ? AND is_active = 1
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY iata_code
	`
	rows, err := s.db.QueryContext(ctx, query, countryCode)
	if err != nil {
		return nil, fmt.Errorf("list airports: %w", err)
	}
	defer rows.Close()

	var out []airports.Airport
	for rows.Next() {
		var ap airports.Airport
		var lat, lon sql.NullFloat64
		var active int
		if err := rows.Scan(&ap.IATACode, &ap.Name, &ap.CountryCode, &lat, &lon, &active, &ap.Source); err != nil {
			return nil, fmt.Errorf("scan airport: %w", err)
		}
		ap.Latitude = nullToPtr(lat)
		ap.Longitude = nullToPtr(lon)
		ap.IsActive = active != 0
		out = append(out, ap)
	}
	return out, rows.Err()
}

// SaveHourly upserts the observation batch in one transaction, keyed by
// (airport, timestamp, source).
func (s *Store) SaveHourly(ctx context.Context, obs []weather.HourlyObservation) (int, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (int, error) {
		const query = `
			INSERT INTO weather_hourly
				(iata_code, dt_utc, source, temperature_c, windspeed_ms, precipitation_mm, visibility_m)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(iata_code, dt_utc, source) DO UPDATE SET
				temperature_c = excluded.temperature_c,
				windspeed_ms = excluded.windspeed_ms,
				precipitation_mm = excluded.precipitation_mm,
				visibility_m = excluded.visibility_m
		`
		n := 0
		for _, o := range obs {
			if _, err := tx.ExecContext(ctx, query,
				o.AirportCode, o.Timestamp.UTC().Format(dtLayout), string(o.Source),
				o.TemperatureC, o.WindspeedMS, o.PrecipitationMM, o.VisibilityM,
			); err != nil {
				return 0, fmt.Errorf("upsert hourly %s %s: %w", o.AirportCode, o.Timestamp, err)
			}
			n++
		}
		return n, nil
	})
}

// HazardRatios aggregates hourly rows of a country's airports into daily
// hazard-indicator ratios. Null measurements count as non-hazardous but stay
// in the denominator.
func (s *Store) HazardRatios(ctx context.Context, countryCode string) ([]weather.HazardRatios, error) {
	const query = `
		SELECT
			a.iata_code,
			substr(w.dt_utc, 1, 10) AS day,
			w.source,
			AVG(CASE WHEN w.windspeed_ms IS NOT NULL AND w.windspeed_ms > 12 THEN 1.0 ELSE 0.0 END),
			AVG(CASE WHEN w.precipitation_mm IS NOT NULL AND w.precipitation_mm > 1.0 THEN 1.0 ELSE 0.0 END),
			AVG(CASE WHEN w.visibility_m IS NOT NULL AND w.visibility_m < 3000 THEN 1.0 ELSE 0.0 END)
		FROM airports a
		JOIN weather_hourly w ON w.iata_code = a.iata_code
		WHERE a.country_code = ?
		GROUP BY a.iata_code, day, w.source
		ORDER BY a.iata_code, day, w.source
	`
	rows, err := s.db.QueryContext(ctx, query, countryCode)
	if err != nil {
		return nil, fmt.Errorf("aggregate hazard ratios: %w", err)
	}
	defer rows.Close()

	var out []weather.HazardRatios
	for rows.Next() {
		var g weather.HazardRatios
		var src string
		if err := rows.Scan(&g.AirportCode, &g.Day, &src, &g.WindRatio, &g.PrecipRatio, &g.VisibilityRatio); err != nil {
			return nil, fmt.Errorf("scan hazard ratios: %w", err)
		}
		g.Source = weather.Source(src)
		out = append(out, g)
	}
	return out, rows.Err()
}

// SaveDailyRisk upserts risk rows keyed by (airport, day, source).
func (s *Store) SaveDailyRisk(ctx context.Context, list []weather.DailyRisk) (int, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (int, error) {
		const query = `
			INSERT INTO weather_risk_daily (iata_code, day, source, risk_score, risk_level)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(iata_code, day, source) DO UPDATE SET
				risk_score = excluded.risk_score,
				risk_level = excluded.risk_level
		`
		n := 0
		for _, r := range list {
			if _, err := tx.ExecContext(ctx, query,
				r.AirportCode, r.Day, string(r.Source), r.Score, string(r.Level),
			); err != nil {
				return 0, fmt.Errorf("upsert daily risk %s %s: %w", r.AirportCode, r.Day, err)
			}
			n++
		}
		return n, nil
	})
}

// ListDailyRisk returns persisted risk rows for a country.
func (s *Store) ListDailyRisk(ctx context.Context, countryCode string) ([]weather.DailyRisk, error) {
	const query = `
		SELECT r.iata_code, r.day, r.source, r.risk_score, r.risk_level
		FROM weather_risk_daily r
		JOIN airports a ON a.iata_code = r.iata_code
		WHERE a.country_code = ?
		ORDER BY r.iata_code, r.day, r.source
	`
	rows, err := s.db.QueryContext(ctx, query, countryCode)
	if err != nil {
		return nil, fmt.Errorf("list daily risk: %w", err)
	}
	defer rows.Close()

	var out []weather.DailyRisk
	for rows.Next() {
		var r weather.DailyRisk
		var src, lvl string
		if err := rows.Scan(&r.AirportCode, &r.Day, &src, &r.Score, &lvl); err != nil {
			return nil, fmt.Errorf("scan daily risk: %w", err)
		}
		r.Source = weather.Source(src)
		r.Level = weather.RiskLevel(lvl)
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertFlights writes the batch in one transaction.
func (s *Store) InsertFlights(ctx context.Context, list []flights.Flight) (int, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (int, error) {
		const query = `
			INSERT INTO flights (dep_iata, arr_iata, sched_dep, sched_arr, status, delay_min, seats)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		n := 0
		for _, f := range list {
			if _, err := tx.ExecContext(ctx, query,
				f.DepAirport, f.ArrAirport,
				f.SchedDep.UTC().Format(dtLayout), f.SchedArr.UTC().Format(dtLayout),
				string(f.Status), f.DelayMinutes, f.Seats,
			); err != nil {
				return 0, fmt.Errorf("insert flight %s-%s: %w", f.DepAirport, f.ArrAirport, err)
			}
			n++
		}
		return n, nil
	})
}

// ListScheduledWithRisk returns still-scheduled flights departing from a
// country's airports, each joined with the forecast risk level of its
// departure day. Flights without a risk row resolve to LOW.
func (s *Store) ListScheduledWithRisk(ctx context.Context, countryCode string) ([]flights.ScheduledRisk, error) {
	const query = `
		SELECT f.flight_id, f.dep_iata, substr(f.sched_dep, 1, 10) AS day,
		       COALESCE(r.risk_level, 'LOW')
		FROM flights f
		JOIN airports a ON a.iata_code = f.dep_iata
		LEFT JOIN weather_risk_daily r
		  ON r.iata_code = f.dep_iata
		 AND r.day = substr(f.sched_dep, 1, 10)
		 AND r.source = 'forecast'
		WHERE a.country_code = ? AND f.status = 'scheduled'
		ORDER BY f.flight_id
	`
	rows, err := s.db.QueryContext(ctx, query, countryCode)
	if err != nil {
		return nil, fmt.Errorf("list scheduled flights: %w", err)
	}
	defer rows.Close()

	var out []flights.ScheduledRisk
	for rows.Next() {
		var r flights.ScheduledRisk
		var lvl string
		if err := rows.Scan(&r.FlightID, &r.DepAirport, &r.Day, &lvl); err != nil {
			return nil, fmt.Errorf("scan scheduled flight: %w", err)
		}
		r.Level = weather.RiskLevel(lvl)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyOutcomes updates flight status and delay in one transaction.
func (s *Store) ApplyOutcomes(ctx context.Context, outcomes []flights.Outcome) (int, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (int, error) {
		const query = `UPDATE flights SET status = ?, delay_min = ? WHERE flight_id = ?`
		n := 0
		for _, o := range outcomes {
			if _, err := tx.ExecContext(ctx, query, string(o.Status), o.DelayMinutes, o.FlightID); err != nil {
				return 0, fmt.Errorf("update flight %d: %w", o.FlightID, err)
			}
			n++
		}
		return n, nil
	})
}

// EnsureRequest upserts the request identity with a provisional fallback
// status and returns its durable id. Reruns of the same natural key keep the
// id of the first insert.
func (s *Store) EnsureRequest(ctx context.Context, origin, dest, departDate string, adults int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO amadeus_offer_requests (origin_iata, dest_iata, depart_date, adults, status, offers_cnt)
		VALUES (?, ?, ?, ?, 'fallback', 0)
		ON CONFLICT(origin_iata, dest_iata, depart_date, adults) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, origin, dest, departDate, adults); err != nil {
		return 0, fmt.Errorf("insert offer request: %w", err)
	}

	const sel = `
		SELECT request_id FROM amadeus_offer_requests
		WHERE origin_iata = ? AND dest_iata = ? AND depart_date = ? AND adults = ?
	`
	var id int64
	if err := tx.QueryRowContext(ctx, sel, origin, dest, departDate, adults).Scan(&id); err != nil {
		return 0, fmt.Errorf("select offer request id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ReplaceOffers atomically swaps the offer set owned by a request and updates
// the request's status, count, and error message, so offers_cnt never
// diverges from the actual row count.
func (s *Store) ReplaceOffers(ctx context.Context, requestID int64, list []offers.Offer, status offers.RequestStatus, errMsg string) error {
	_, err := s.inTx(ctx, func(tx *sql.Tx) (int, error) {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM amadeus_flight_offers WHERE request_id = ?`, requestID); err != nil {
			return 0, fmt.Errorf("delete offers: %w", err)
		}

		const insert = `
			INSERT INTO amadeus_flight_offers
				(offer_id, request_id, source, price_total, currency, stops, duration_min, carrier_code)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, o := range list {
			if _, err := tx.ExecContext(ctx, insert,
				o.OfferID, requestID, o.Source, o.PriceTotal, o.Currency,
				o.Stops, o.DurationMinutes, nullIfEmpty(o.CarrierCode),
			); err != nil {
				return 0, fmt.Errorf("insert offer %s: %w", o.OfferID, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE amadeus_offer_requests SET status = ?, offers_cnt = ?, error_msg = ? WHERE request_id = ?`,
			string(status), len(list), nullIfEmpty(errMsg), requestID,
		); err != nil {
			return 0, fmt.Errorf("update offer request: %w", err)
		}
		return len(list), nil
	})
	return err
}

// GetRequest returns the persisted request for a natural key plus its offers,
// or nil when the key was never searched.
func (s *Store) GetRequest(ctx context.Context, origin, dest, departDate string, adults int) (*offers.Request, []offers.Offer, error) {
	const reqQuery = `
		SELECT request_id, origin_iata, dest_iata, depart_date, adults, status, offers_cnt, COALESCE(error_msg, '')
		FROM amadeus_offer_requests
		WHERE origin_iata = ? AND dest_iata = ? AND depart_date = ? AND adults = ?
	`
	var req offers.Request
	var status string
	err := s.db.QueryRowContext(ctx, reqQuery, origin, dest, departDate, adults).Scan(
		&req.RequestID, &req.Origin, &req.Dest, &req.DepartDate, &req.Adults,
		&status, &req.OffersCount, &req.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select offer request: %w", err)
	}
	req.Status = offers.RequestStatus(status)

	const offerQuery = `
		SELECT offer_id, request_id, source, price_total, currency, stops, duration_min, COALESCE(carrier_code, '')
		FROM amadeus_flight_offers
		WHERE request_id = ?
		ORDER BY price_total
	`
	rows, err := s.db.QueryContext(ctx, offerQuery, req.RequestID)
	if err != nil {
		return nil, nil, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	var list []offers.Offer
	for rows.Next() {
		var o offers.Offer
		if err := rows.Scan(&o.OfferID, &o.RequestID, &o.Source, &o.PriceTotal,
			&o.Currency, &o.Stops, &o.DurationMinutes, &o.CarrierCode); err != nil {
			return nil, nil, fmt.Errorf("scan offer: %w", err)
		}
		list = append(list, o)
	}
	return &req, list, rows.Err()
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) (int, error)) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	n, err := fn(tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullToPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
