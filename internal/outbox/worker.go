package outbox

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/swapmap-api/internal/config"
	"github.com/rajivgeraev/swapmap-api/internal/db"
)

const (
	// Интервал опроса очереди
	pollInterval = 15 * time.Second

	// Размер одной пачки задач
	batchSize = 10

	// После этого числа неудачных попыток задача помечается failed
	maxAttempts = 5
)

// Worker обрабатывает отложенные задачи из таблицы outbox.
// Задачи ставятся в очередь внутри транзакций API и выполняются здесь
// в фоне: сбой почты или эвристики не влияет на сам обмен.
type Worker struct {
	cfg *config.Config
}

// NewWorker создает новый экземпляр Worker
func NewWorker(cfg *config.Config) *Worker {
	return &Worker{cfg: cfg}
}

// Start запускает цикл обработки очереди до отмены контекста
func (w *Worker) Start(ctx context.Context) {
	log.Println("✅ Воркер outbox запущен")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Воркер outbox остановлен")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch забирает пачку ожидающих задач и выполняет их.
// SKIP LOCKED позволяет запускать несколько экземпляров воркера.
func (w *Worker) processBatch(ctx context.Context) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции outbox: %v", err)
		return
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, topic, payload, attempts
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, batchSize)

	if err != nil {
		log.Printf("Ошибка запроса задач outbox: %v", err)
		return
	}

	type task struct {
		id       uuid.UUID
		topic    string
		payload  []byte
		attempts int
	}

	var tasks []task
	for rows.Next() {
		var t task
		if err := rows.Scan(&t.id, &t.topic, &t.payload, &t.attempts); err != nil {
			log.Printf("Ошибка сканирования задачи: %v", err)
			continue
		}
		tasks = append(tasks, t)
	}
	rows.Close()

	for _, t := range tasks {
		err := w.dispatch(ctx, t.topic, t.payload)
		if err == nil {
			_, err = tx.Exec(ctx, `
				UPDATE outbox SET status = 'done', processed_at = NOW() WHERE id = $1
			`, t.id)
			if err != nil {
				log.Printf("Ошибка отметки задачи %s: %v", t.id, err)
			}
			continue
		}

		log.Printf("Ошибка обработки задачи %s (%s): %v", t.id, t.topic, err)

		newStatus := "pending"
		if t.attempts+1 >= maxAttempts {
			newStatus = "failed"
		}

		_, err = tx.Exec(ctx, `
			UPDATE outbox SET attempts = attempts + 1, status = $1 WHERE id = $2
		`, newStatus, t.id)
		if err != nil {
			log.Printf("Ошибка обновления задачи %s: %v", t.id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции outbox: %v", err)
	}
}

// dispatch выполняет задачу в зависимости от темы
func (w *Worker) dispatch(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case "email_notification":
		var p emailPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return w.sendEmailNotification(ctx, p)
	case "exchange_date":
		var p struct {
			TradeID uuid.UUID `json:"trade_id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return w.extractExchangeDate(ctx, p.TradeID)
	default:
		log.Printf("Неизвестная тема задачи: %s", topic)
		return nil
	}
}
