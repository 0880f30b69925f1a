package stats

import (
	"math"

	"servicehub/models"
)

// Summary is the canonical reputation of a provider. It is fanned out to
// every alias field on write and never read back from them.
type Summary struct {
	ProviderID    string  `json:"providerId"`
	CompletedJobs int     `json:"completedJobs"`
	ReviewCount   int     `json:"reviewCount"`
	Rating        float64 `json:"rating"`
}

// Summarize computes a provider's reputation from source records. Reviews
// without a rating or soft-deleted reviews are ignored.
func Summarize(providerID string, completedJobs int, reviews []models.Review) Summary {
	var total float64
	var count int
	for _, r := range reviews {
		if !r.Counts() {
			continue
		}
		total += r.Rating
		count++
	}

	var avg float64
	if count > 0 {
		avg = Round2(total / float64(count))
	}
	return Summary{
		ProviderID:    providerID,
		CompletedJobs: completedJobs,
		ReviewCount:   count,
		Rating:        avg,
	}
}

// Round2 rounds to two decimals, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
