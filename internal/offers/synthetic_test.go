package offers

import (
	"math"
	"math/rand"
	"sync"
	"testing"
)

func TestSyntheticGenerate(t *testing.T) {
	gen := NewSyntheticGenerator(rand.New(rand.NewSource(42)))

	offers := gen.Generate(500)
	if len(offers) != 500 {
		t.Fatalf("%d offers, want 500", len(offers))
	}

	carriers := make(map[string]bool, len(syntheticCarriers))
	for _, c := range syntheticCarriers {
		carriers[c] = true
	}

	stopCounts := [3]int{}
	for _, o := range offers {
		if o.Currency != "EUR" {
			t.Fatalf("currency %q, want EUR", o.Currency)
		}
		if o.Source != SourceSynthetic {
			t.Fatalf("source %q, want synthetic", o.Source)
		}
		if o.Stops < 0 || o.Stops > 2 {
			t.Fatalf("stops %d out of range", o.Stops)
		}
		stopCounts[o.Stops]++

		minDur := 70 + o.Stops*40
		maxDur := 260 + o.Stops*120
		if o.DurationMinutes < minDur || o.DurationMinutes > maxDur {
			t.Fatalf("duration %d outside [%d, %d] for %d stops",
				o.DurationMinutes, minDur, maxDur, o.Stops)
		}

		minPrice := 60 + float64(o.Stops)*15 + float64(o.DurationMinutes)/60*4
		maxPrice := 230 + float64(o.Stops)*90 + float64(o.DurationMinutes)/60*16
		if o.PriceTotal < minPrice-0.01 || o.PriceTotal > maxPrice+0.01 {
			t.Fatalf("price %.2f outside [%.2f, %.2f]", o.PriceTotal, minPrice, maxPrice)
		}
		if cents := o.PriceTotal * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
			t.Fatalf("price %.10f not rounded to cents", o.PriceTotal)
		}

		if !carriers[o.CarrierCode] {
			t.Fatalf("unexpected carrier %q", o.CarrierCode)
		}
	}

	// Loose distribution check on the 0.6/0.3/0.1 stop weights.
	if stopCounts[0] < stopCounts[1] || stopCounts[1] < stopCounts[2] {
		t.Errorf("stop counts %v not ordered by weight", stopCounts)
	}
}

// Concurrent fallback searches share one generator, so simultaneous Generate
// calls must be safe. Exercised under the race detector.
func TestSyntheticGenerateConcurrent(t *testing.T) {
	gen := NewSyntheticGenerator(rand.New(rand.NewSource(7)))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := gen.Generate(10); len(got) != 10 {
					t.Errorf("%d offers, want 10", len(got))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSyntheticGenerateZero(t *testing.T) {
	gen := NewSyntheticGenerator(rand.New(rand.NewSource(1)))
	if got := gen.Generate(0); len(got) != 0 {
		t.Errorf("%d offers for n=0", len(got))
	}
}
