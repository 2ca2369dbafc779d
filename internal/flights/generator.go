package flights

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Generator creates batches of scheduled flights for a country and date
// range, used to seed the operations side before a simulation pass. Routes
// go from the country's top airports to top airports of other countries.
// Safe for concurrent use; rand.Rand is not, so draws are serialized.
type Generator struct {
	store       Store
	topAirports map[string][]string
	mu          sync.Mutex
	rng         *rand.Rand
}

func NewGenerator(store Store, topAirports map[string][]string, rng *rand.Rand) *Generator {
	return &Generator{store: store, topAirports: topAirports, rng: rng}
}

// GenerateCountry inserts flightsPerDay scheduled flights for each day in
// [start, end], departing from up to three top airports of the country.
func (g *Generator) GenerateCountry(ctx context.Context, countryCode string, start, end time.Time, flightsPerDay int) (string, error) {
	origins := g.topAirports[countryCode]
	if len(origins) > 3 {
		origins = origins[:3]
	}
	if len(origins) == 0 {
		return fmt.Sprintf("EMPTY: no top airports for %s", countryCode), nil
	}

	g.mu.Lock()
	dests := g.pickDestinations(countryCode, 6)
	if len(dests) == 0 {
		g.mu.Unlock()
		return fmt.Sprintf("EMPTY: no destination airports outside %s", countryCode), nil
	}

	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)
	if startDay.After(endDay) {
		g.mu.Unlock()
		return "", fmt.Errorf("start date %s is after end date %s",
			startDay.Format("2006-01-02"), endDay.Format("2006-01-02"))
	}

	quarters := []int{0, 15, 30, 45}
	seatOptions := []int{160, 180, 200}

	var batch []Flight
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		for i := 0; i < flightsPerDay; i++ {
			dep := day.Add(time.Duration(6+g.rng.Intn(15)) * time.Hour).
				Add(time.Duration(quarters[g.rng.Intn(len(quarters))]) * time.Minute)
			duration := time.Duration(80+g.rng.Intn(101)) * time.Minute

			batch = append(batch, Flight{
				DepAirport: origins[g.rng.Intn(len(origins))],
				ArrAirport: dests[g.rng.Intn(len(dests))],
				SchedDep:   dep,
				SchedArr:   dep.Add(duration),
				Status:     StatusScheduled,
				Seats:      seatOptions[g.rng.Intn(len(seatOptions))],
			})
		}
	}
	g.mu.Unlock()

	n, err := g.store.InsertFlights(ctx, batch)
	if err != nil {
		return "", fmt.Errorf("insert flights for %s: %w", countryCode, err)
	}
	return fmt.Sprintf("OK: created %d scheduled flights for %s", n, countryCode), nil
}

// pickDestinations collects up to limit top airports from other countries,
// two per country, in shuffled country order.
func (g *Generator) pickDestinations(exclude string, limit int) []string {
	countries := make([]string, 0, len(g.topAirports))
	for cc := range g.topAirports {
		if cc != exclude {
			countries = append(countries, cc)
		}
	}
	// Sort before shuffling so a seeded rng picks reproducibly regardless
	// of map iteration order.
	sort.Strings(countries)
	g.rng.Shuffle(len(countries), func(i, j int) {
		countries[i], countries[j] = countries[j], countries[i]
	})

	var dests []string
	for _, cc := range countries {
		aps := g.topAirports[cc]
		if len(aps) > 2 {
			aps = aps[:2]
		}
		dests = append(dests, aps...)
		if len(dests) >= limit {
			dests = dests[:limit]
			break
		}
	}
	return dests
}
