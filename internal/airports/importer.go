package airports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/kelvins/geocoder"
)

const sourceOurAirports = "ourairports"

// Importer loads the OurAirports flat file into the directory, filtered to a
// configured set of country codes. When a Google geocoder key is configured,
// rows missing coordinates are backfilled by geocoding the airport name.
type Importer struct {
	store       Store
	countries   map[string]struct{}
	geocoderKey string
}

func NewImporter(store Store, countryCodes []string, geocoderKey string) *Importer {
	set := make(map[string]struct{}, len(countryCodes))
	for _, cc := range countryCodes {
		set[strings.ToUpper(strings.TrimSpace(cc))] = struct{}{}
	}
	return &Importer{store: store, countries: set, geocoderKey: geocoderKey}
}

// ImportCSV reads the airports file at path and upserts matching rows.
// Rows without a three-letter IATA code or outside the configured countries
// are skipped. Returns a human-readable summary.
func (imp *Importer) ImportCSV(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open airports file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return "", fmt.Errorf("read airports header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"iata_code", "iso_country", "name"} {
		if _, ok := col[required]; !ok {
			return "", fmt.Errorf("airports file missing %q column", required)
		}
	}

	var batch []Airport
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read airports row: %w", err)
		}

		iata := strings.ToUpper(strings.TrimSpace(field(record, col, "iata_code")))
		country := strings.ToUpper(strings.TrimSpace(field(record, col, "iso_country")))
		if len(iata) != 3 {
			continue
		}
		if _, ok := imp.countries[country]; !ok {
			continue
		}

		name := strings.TrimSpace(field(record, col, "name"))
		if len(name) > 200 {
			name = name[:200]
		}

		ap := Airport{
			IATACode:    iata,
			Name:        name,
			CountryCode: country,
			Latitude:    parseCoord(field(record, col, "latitude_deg")),
			Longitude:   parseCoord(field(record, col, "longitude_deg")),
			IsActive:    true,
			Source:      sourceOurAirports,
		}

		if (ap.Latitude == nil || ap.Longitude == nil) && imp.geocoderKey != "" {
			imp.backfillCoordinates(&ap)
		}

		batch = append(batch, ap)
	}

	n, err := imp.store.UpsertAirports(ctx, batch)
	if err != nil {
		return "", fmt.Errorf("upsert airports: %w", err)
	}
	return fmt.Sprintf("OK: imported/updated %d airport rows", n), nil
}

// backfillCoordinates resolves missing coordinates through the Google
// geocoding API. Failures are logged and the row keeps its blanks; the
// ingestion pass simply skips airports without coordinates.
func (imp *Importer) backfillCoordinates(ap *Airport) {
	geocoder.ApiKey = imp.geocoderKey
	loc, err := geocoder.Geocoding(geocoder.Address{
		Street:  ap.Name,
		Country: ap.CountryCode,
	})
	if err != nil {
		log.Printf("airports: geocoding %s failed: %v", ap.IATACode, err)
		return
	}
	lat, lon := loc.Latitude, loc.Longitude
	ap.Latitude = &lat
	ap.Longitude = &lon
}

func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func parseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
