package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func score(v float64) *float64 { return &v }

func TestComputeReputationEmpty(t *testing.T) {
	assert.Nil(t, ComputeReputation(nil), "без отзывов репутации нет, а не ноль")
	assert.Nil(t, ComputeReputation([]RatingSample{}))
}

func TestComputeReputationSimpleMean(t *testing.T) {
	// Рецензенты без собственной репутации весят одинаково
	samples := []RatingSample{
		{Rating: 5},
		{Rating: 3},
	}

	result := ComputeReputation(samples)
	assert.NotNil(t, result)
	assert.InDelta(t, 4.0, *result, 0.001)
}

func TestComputeReputationWeighted(t *testing.T) {
	// Голос рецензента с низкой репутацией весит меньше
	samples := []RatingSample{
		{Rating: 5, ReviewerScore: score(5.0), ReviewerReviewNum: 10}, // вес 1.0
		{Rating: 1, ReviewerScore: score(1.0), ReviewerReviewNum: 10}, // вес 0.2
	}

	result := ComputeReputation(samples)
	assert.NotNil(t, result)
	// (1.0*5 + 0.2*1) / 1.2 = 4.333
	assert.InDelta(t, 4.333, *result, 0.001)
}

func TestReviewerWeightBounds(t *testing.T) {
	assert.Equal(t, 1.0, reviewerWeight(RatingSample{Rating: 4}), "новичок получает нейтральный вес")
	assert.Equal(t, 0.2, reviewerWeight(RatingSample{Rating: 4, ReviewerScore: score(0.5), ReviewerReviewNum: 3}), "вес не падает ниже 0.2")
	assert.Equal(t, 1.0, reviewerWeight(RatingSample{Rating: 4, ReviewerScore: score(5.0), ReviewerReviewNum: 3}))
}
