package offers

import (
	"math"
	"math/rand"
	"sync"
)

var syntheticCarriers = []string{"LO", "LH", "AF", "KL", "IB", "AZ", "SK", "FR", "W6"}

// SyntheticGenerator produces plausible offers when the live source fails or
// comes back empty. Unlike the weather fallback it is not deterministic; its
// only job is guaranteeing a non-empty result set. Safe for concurrent use;
// rand.Rand is not, so draws are serialized.
type SyntheticGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSyntheticGenerator(rng *rand.Rand) *SyntheticGenerator {
	return &SyntheticGenerator{rng: rng}
}

// Generate returns n synthetic offers. Stops follow weights 0.6/0.3/0.1 for
// 0/1/2; price is a base fare plus per-stop surcharges plus a
// duration-proportional term, rounded to cents; currency is fixed at EUR.
func (g *SyntheticGenerator) Generate(n int) []Offer {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Offer, 0, n)
	for i := 0; i < n; i++ {
		stops := g.drawStops()

		duration := 70 + g.rng.Intn(191)
		for s := 0; s < stops; s++ {
			duration += 40 + g.rng.Intn(81)
		}

		price := 60 + g.rng.Float64()*170
		for s := 0; s < stops; s++ {
			price += 15 + g.rng.Float64()*75
		}
		price += float64(duration) / 60.0 * (4 + g.rng.Float64()*12)

		out = append(out, Offer{
			Source:          SourceSynthetic,
			PriceTotal:      math.Round(price*100) / 100,
			Currency:        "EUR",
			Stops:           stops,
			DurationMinutes: duration,
			CarrierCode:     syntheticCarriers[g.rng.Intn(len(syntheticCarriers))],
		})
	}
	return out
}

func (g *SyntheticGenerator) drawStops() int {
	r := g.rng.Float64()
	switch {
	case r < 0.6:
		return 0
	case r < 0.9:
		return 1
	default:
		return 2
	}
}
