package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mwielgosz/flight-risk/internal/weather"
)

// The periodic job keeps a rolling window fresh: the last two settled archive
// days plus the forecast week ahead.
const (
	windowDaysBack  = 2
	windowDaysAhead = 5

	jobTimeout = 5 * time.Minute
)

// Scheduler periodically refreshes weather data and risk scores for the
// configured countries.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ingestor  *weather.Ingestor
	scorer    *weather.RiskScorer
	countries []string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(countries []string, interval time.Duration, ingestor *weather.Ingestor, scorer *weather.RiskScorer) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ingestor:  ingestor,
		scorer:    scorer,
		countries: countries,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.countries) == 0 {
		log.Println("scheduler: no countries configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 360
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// runOnce processes each country sequentially; a failing country does not
// stop the others, and coordination happens only through the store.
func (s *Scheduler) runOnce() {
	log.Println("scheduler: running weather refresh job")

	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -windowDaysBack)
	end := today.AddDate(0, 0, windowDaysAhead)

	for _, cc := range s.countries {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)

		summary, err := s.ingestor.IngestCountry(ctx, cc, start, end)
		if err != nil {
			log.Printf("scheduler: weather ingest failed for %s: %v", cc, err)
			cancel()
			continue
		}
		log.Printf("scheduler: %s", summary)

		summary, err = s.scorer.ComputeCountry(ctx, cc)
		if err != nil {
			log.Printf("scheduler: risk scoring failed for %s: %v", cc, err)
		} else {
			log.Printf("scheduler: %s", summary)
		}
		cancel()
	}

	log.Println("scheduler: completed weather refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
