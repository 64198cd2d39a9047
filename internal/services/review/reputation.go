package review

// RatingSample представляет одну оценку вместе с репутацией ее автора
type RatingSample struct {
	Rating            int
	ReviewerScore     *float64
	ReviewerReviewNum int
}

// reviewerWeight возвращает вес голоса рецензента. Пользователь без
// собственной репутации получает нейтральный вес 1, репутация ниже
// средней снижает вес голоса, но никогда не обнуляет его.
func reviewerWeight(sample RatingSample) float64 {
	if sample.ReviewerScore == nil || sample.ReviewerReviewNum == 0 {
		return 1.0
	}

	w := *sample.ReviewerScore / 5.0
	if w < 0.2 {
		w = 0.2
	}
	if w > 1.0 {
		w = 1.0
	}
	return w
}

// ComputeReputation вычисляет взвешенную среднюю оценку пользователя.
// Для пользователя без отзывов возвращается nil, а не ноль:
// отсутствие истории и плохая история — разные вещи.
func ComputeReputation(samples []RatingSample) *float64 {
	if len(samples) == 0 {
		return nil
	}

	var weightedSum, totalWeight float64
	for _, sample := range samples {
		w := reviewerWeight(sample)
		weightedSum += w * float64(sample.Rating)
		totalWeight += w
	}

	if totalWeight == 0 {
		return nil
	}

	score := weightedSum / totalWeight
	return &score
}
