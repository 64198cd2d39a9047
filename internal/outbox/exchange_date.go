package outbox

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/swapmap-api/internal/db"
)

// Числовые даты вида 15.09, 15.09.2026 и 2026-09-15
var (
	dottedDateRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})(?:\.(\d{4}))?\b`)
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// Относительные слова, от длинных к коротким:
// "послезавтра" содержит "завтра" и должен проверяться первым
var relativeDays = []struct {
	word   string
	offset int
}{
	{"послезавтра", 2},
	{"завтра", 1},
	{"сегодня", 0},
	{"tomorrow", 1},
	{"today", 0},
}

var weekdayNames = map[string]time.Weekday{
	"понедельник": time.Monday,
	"вторник":     time.Tuesday,
	"среду":       time.Wednesday,
	"среда":       time.Wednesday,
	"четверг":     time.Thursday,
	"пятницу":     time.Friday,
	"пятница":     time.Friday,
	"субботу":     time.Saturday,
	"суббота":     time.Saturday,
	"воскресенье": time.Sunday,
	"monday":      time.Monday,
	"tuesday":     time.Tuesday,
	"wednesday":   time.Wednesday,
	"thursday":    time.Thursday,
	"friday":      time.Friday,
	"saturday":    time.Saturday,
	"sunday":      time.Sunday,
}

// GuessExchangeDate пытается извлечь дату встречи из текста сообщения.
// Эвристика намеренно простая: числовая дата, относительное слово
// или день недели. Прошедшие даты отбрасываются.
func GuessExchangeDate(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(text)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if m := isoDateRe.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if d, ok := validDate(year, month, day, now.Location()); ok && !d.Before(today) {
			return d, true
		}
	}

	if m := dottedDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if d, ok := validDate(year, month, day, now.Location()); ok {
			// Дата без года в прошлом означает следующий год
			if m[3] == "" && d.Before(today) {
				d = d.AddDate(1, 0, 0)
			}
			if !d.Before(today) {
				return d, true
			}
		}
	}

	for _, rel := range relativeDays {
		if strings.Contains(lower, rel.word) {
			return today.AddDate(0, 0, rel.offset), true
		}
	}

	// Из нескольких дней недели берем упомянутый в тексте первым
	bestIdx := -1
	var bestDay time.Weekday
	for name, weekday := range weekdayNames {
		idx := strings.Index(lower, name)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx {
			bestIdx = idx
			bestDay = weekday
		}
	}
	if bestIdx >= 0 {
		// Ближайший такой день недели, всегда в будущем
		offset := (int(bestDay) - int(today.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return today.AddDate(0, 0, offset), true
	}

	return time.Time{}, false
}

// validDate проверяет, что день и месяц образуют существующую дату
func validDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

// extractExchangeDate прогоняет эвристику по переписке обмена и
// сохраняет последнюю найденную дату. Дата носит справочный характер
// и используется только для напоминаний об отзывах.
func (w *Worker) extractExchangeDate(ctx context.Context, tradeID uuid.UUID) error {
	rows, err := db.Pool.Query(ctx, `
		SELECT content, created_at FROM messages
		WHERE proposed_trade_id = $1 AND sender_id IS NOT NULL
		ORDER BY created_at ASC
	`, tradeID)

	if err != nil {
		return err
	}
	defer rows.Close()

	var found time.Time
	var haveDate bool
	for rows.Next() {
		var content string
		var createdAt time.Time
		if err := rows.Scan(&content, &createdAt); err != nil {
			return err
		}

		// Последнее упоминание даты в переписке побеждает
		if d, ok := GuessExchangeDate(content, createdAt); ok {
			found = d
			haveDate = true
		}
	}

	if err := rows.Err(); err != nil {
		return err
	}

	if !haveDate {
		return nil
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO trade_exchange_dates (proposed_trade_id, exchange_date)
		VALUES ($1, $2)
		ON CONFLICT (proposed_trade_id) DO UPDATE SET exchange_date = EXCLUDED.exchange_date
	`, tradeID, found)

	if err != nil {
		return err
	}

	log.Printf("Дата встречи для обмена %s: %s", tradeID, found.Format("2006-01-02"))
	return nil
}
