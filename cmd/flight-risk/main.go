package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/mwielgosz/flight-risk/internal/airports"
	httpapi "github.com/mwielgosz/flight-risk/internal/api/http"
	"github.com/mwielgosz/flight-risk/internal/config"
	"github.com/mwielgosz/flight-risk/internal/flights"
	"github.com/mwielgosz/flight-risk/internal/offers"
	"github.com/mwielgosz/flight-risk/internal/scheduler"
	"github.com/mwielgosz/flight-risk/internal/store"
	"github.com/mwielgosz/flight-risk/internal/weather"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	// Weather pipeline: live Open-Meteo client with synthetic fallback.
	meteo := weather.NewOpenMeteoClient(httpClient, cfg.ArchiveURL, cfg.ForecastURL)
	ingestor := weather.NewIngestor(db, db, meteo)
	scorer := weather.NewRiskScorer(db)

	// Operations pipeline. rand.Rand is not safe for concurrent use, so each
	// service owns its source and serializes draws internally.
	generator := flights.NewGenerator(db, config.TopAirports, rand.New(rand.NewSource(time.Now().UnixNano())))
	impact := flights.NewImpactSimulator(db, rand.New(rand.NewSource(time.Now().UnixNano())))

	// Offer pipeline: Amadeus with synthetic fallback.
	amadeus := offers.NewAmadeusClient(httpClient, cfg.AmadeusBaseURL, cfg.AmadeusAPIKey, cfg.AmadeusAPISecret)
	synth := offers.NewSyntheticGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
	offerIngestor := offers.NewIngestor(db, amadeus, synth)

	importer := airports.NewImporter(db, cfg.Countries, cfg.GeocoderAPIKey)

	// Scheduler that periodically refreshes weather and risk data.
	sched := scheduler.New(cfg.Countries, cfg.FetchInterval, ingestor, scorer)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "flight-risk",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          120 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "flight-risk",
		})
	})

	httpapi.RegisterRoutes(app, &httpapi.Handlers{
		Airports:       importer,
		AirportsCSV:    cfg.AirportsCSV,
		Weather:        ingestor,
		Risk:           scorer,
		RiskReader:     db,
		Operations:     generator,
		Impact:         impact,
		Offers:         offerIngestor,
		OfferReader:    db,
		OfferFallbackN: cfg.OfferFallbackN,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
