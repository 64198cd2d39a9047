package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var monday = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func TestGuessExchangeDateNumeric(t *testing.T) {
	d, ok := GuessExchangeDate("Давай встретимся 15.09 у метро", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), d)

	d, ok = GuessExchangeDate("Могу 05.12.2026", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC), d)

	d, ok = GuessExchangeDate("ок, 2026-09-20 подходит", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC), d)
}

func TestGuessExchangeDatePastRollsOver(t *testing.T) {
	// Дата без года в прошлом означает следующий год
	d, ok := GuessExchangeDate("встретимся 15.03", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC), d)
}

func TestGuessExchangeDateRelative(t *testing.T) {
	d, ok := GuessExchangeDate("Давай завтра", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = GuessExchangeDate("можно послезавтра вечером", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), d)
}

func TestGuessExchangeDateWeekday(t *testing.T) {
	// 31.08.2026 — понедельник, ближайшая суббота — 05.09
	d, ok := GuessExchangeDate("Удобно в субботу днем", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC), d)

	// Тот же день недели означает следующую неделю
	d, ok = GuessExchangeDate("в понедельник", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), d)
}

func TestGuessExchangeDateWeekdayFirstMentionWins(t *testing.T) {
	// Из нескольких дней недели детерминированно берется первый в тексте
	for i := 0; i < 50; i++ {
		d, ok := GuessExchangeDate("могу в среду или в пятницу", monday)
		assert.True(t, ok)
		assert.Equal(t, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), d)
	}

	d, ok := GuessExchangeDate("в пятницу, ну или в среду", monday)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC), d)
}

func TestGuessExchangeDateNothing(t *testing.T) {
	_, ok := GuessExchangeDate("Отличная вещь, спасибо!", monday)
	assert.False(t, ok)

	// Несуществующая дата не распознается
	_, ok = GuessExchangeDate("давай 32.13", monday)
	assert.False(t, ok)
}
