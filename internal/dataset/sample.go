package dataset

import (
	"math"
	"math/rand/v2"
	"time"
)

// Defaults for the synthetic dataset.
const (
	DefaultSeed = 42
	DefaultSize = 1000
)

var ratingWeights = []float64{0.05, 0.10, 0.20, 0.35, 0.30}

// Sample generates a deterministic synthetic e-commerce dataset of n transactions
// spread over calendar year 2024.
func Sample(seed uint64, n int) *Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours()/24) + 1

	records := make([]Record, 0, max(n, 0))
	for range n {
		revenue := math.Abs(math.Round((1000+300*rng.NormFloat64())*100) / 100)
		customer := CustomerReturning
		if rng.Float64() < 0.3 {
			customer = CustomerNew
		}
		records = append(records, Record{
			Date:         start.AddDate(0, 0, rng.IntN(days)),
			Category:     Categories[rng.IntN(len(Categories))],
			Revenue:      revenue,
			UnitsSold:    poisson(rng, 5),
			CustomerType: customer,
			Region:       Regions[rng.IntN(len(Regions))],
			Rating:       weightedRating(rng),
		})
	}
	sortByDate(records)

	return &Dataset{records: records}
}

// poisson draws from a Poisson distribution using Knuth's multiplication method.
func poisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

func weightedRating(rng *rand.Rand) int {
	x := rng.Float64()
	var acc float64
	for i, w := range ratingWeights {
		acc += w
		if x < acc {
			return i + 1
		}
	}
	return len(ratingWeights)
}
