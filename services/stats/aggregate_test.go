package stats

import (
	"testing"

	"servicehub/models"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeNoReviews(t *testing.T) {
	sum := Summarize("p1", 0, nil)
	assert.Equal(t, Summary{ProviderID: "p1"}, sum)
}

func TestSummarizeSkipsDeletedAndUnrated(t *testing.T) {
	sum := Summarize("p1", 3, []models.Review{
		{Rating: 5},
		{Rating: 4},
		{Rating: 4},
		{Rating: 0},
		{Rating: 1, Status: models.ReviewStatusDeleted},
	})
	assert.Equal(t, 3, sum.CompletedJobs)
	assert.Equal(t, 3, sum.ReviewCount)
	assert.Equal(t, 4.33, sum.Rating)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 4.67, Round2(14.0/3))
	assert.Equal(t, 3.0, Round2(3))
	assert.Equal(t, 2.13, Round2(2.125))
}
