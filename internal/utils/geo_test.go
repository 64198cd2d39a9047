package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Москва — Санкт-Петербург, около 634 км
	km := HaversineKm(55.7558, 37.6173, 59.9343, 30.3351)
	assert.InDelta(t, 634, km, 5)

	// Нулевое расстояние до самой себя
	assert.InDelta(t, 0, HaversineKm(55.7558, 37.6173, 55.7558, 37.6173), 0.001)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 1.2, RoundKm(1.24))
	assert.Equal(t, 1.3, RoundKm(1.25))
	assert.Equal(t, 0.0, RoundKm(0.04))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(55.7558, 37.6173))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
}
