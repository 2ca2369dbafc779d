package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds process-wide configuration, read from environment.
type AppConfig struct {
	Port   string
	DBPath string

	// Countries the importer keeps and the scheduler iterates.
	Countries []string

	// FetchInterval controls how often the scheduler refreshes weather and
	// risk data for each country.
	FetchInterval time.Duration

	// Path of the OurAirports flat file for directory imports.
	AirportsCSV string

	// Open-Meteo endpoints, overridable for testing.
	ArchiveURL  string
	ForecastURL string

	AmadeusBaseURL   string
	AmadeusAPIKey    string
	AmadeusAPISecret string

	// Optional Google key for backfilling airport coordinates.
	GeocoderAPIKey string

	// Default number of synthetic offers when a search falls back.
	OfferFallbackN int
}

// EUCountryCodes is the static reference list the importer defaults to.
var EUCountryCodes = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR",
	"DE", "GR", "HU", "IE", "IT", "LV", "LT", "LU", "MT", "NL",
	"PL", "PT", "RO", "SK", "SI", "ES", "SE",
}

// TopAirports maps country codes to their busiest airports, used by the
// operations generator to pick routes. Static reference data, not derived at
// runtime.
var TopAirports = map[string][]string{
	"PL": {"WAW", "KRK", "GDN"},
	"DE": {"FRA", "MUC", "BER"},
	"FR": {"CDG", "ORY", "NCE"},
	"ES": {"MAD", "BCN", "PMI"},
	"IT": {"FCO", "MXP", "VCE"},
	"NL": {"AMS", "EIN"},
	"AT": {"VIE"},
	"BE": {"BRU", "CRL"},
	"CZ": {"PRG"},
	"DK": {"CPH"},
	"FI": {"HEL"},
	"GR": {"ATH", "SKG"},
	"HU": {"BUD"},
	"IE": {"DUB", "ORK"},
	"PT": {"LIS", "OPO"},
	"RO": {"OTP"},
	"SE": {"ARN", "GOT"},
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:             getenvDefault("PORT", "8080"),
		DBPath:           getenvDefault("DB_PATH", "flight-risk.db"),
		AirportsCSV:      getenvDefault("AIRPORTS_CSV", "airports.csv"),
		ArchiveURL:       os.Getenv("OPEN_METEO_ARCHIVE_URL"),
		ForecastURL:      os.Getenv("OPEN_METEO_FORECAST_URL"),
		AmadeusBaseURL:   getenvDefault("AMADEUS_BASE_URL", "https://test.api.amadeus.com"),
		AmadeusAPIKey:    os.Getenv("AMADEUS_API_KEY"),
		AmadeusAPISecret: os.Getenv("AMADEUS_API_SECRET"),
		GeocoderAPIKey:   os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		OfferFallbackN:   getenvInt("OFFER_FALLBACK_N", 10),
	}

	intervalStr := getenvDefault("FETCH_INTERVAL", "6h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	if raw := os.Getenv("COUNTRIES"); raw != "" {
		for _, cc := range strings.Split(raw, ",") {
			cc = strings.ToUpper(strings.TrimSpace(cc))
			if cc != "" {
				cfg.Countries = append(cfg.Countries, cc)
			}
		}
	} else {
		cfg.Countries = append(cfg.Countries, EUCountryCodes...)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
