package outbox

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapmap-api/internal/db"
)

type emailPayload struct {
	Template string    `json:"template"`
	UserID   uuid.UUID `json:"user_id"`
	TradeID  uuid.UUID `json:"trade_id"`
}

// Темы и тексты писем по шаблонам
var emailTemplates = map[string][2]string{
	"new_trade_proposal": {
		"Новое предложение обмена",
		"По вашему объявлению поступило новое предложение обмена. Зайдите в приложение, чтобы посмотреть детали.",
	},
	"trade_accepted": {
		"Предложение обмена принято",
		"Предложение обмена принято. Договоритесь в переписке о месте и времени передачи вещей.",
	},
	"new_message": {
		"Новое сообщение по обмену",
		"У вас новое сообщение в переписке по обмену. Зайдите в приложение, чтобы ответить.",
	},
}

// sendEmailNotification отправляет письмо пользователю по шаблону.
// Пользователь без email пропускается без ошибки.
func (w *Worker) sendEmailNotification(ctx context.Context, p emailPayload) error {
	tmpl, ok := emailTemplates[p.Template]
	if !ok {
		log.Printf("Неизвестный шаблон письма: %s", p.Template)
		return nil
	}

	var email string
	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(email, '') FROM users WHERE id = $1
	`, p.UserID).Scan(&email)

	if err != nil {
		if err == pgx.ErrNoRows {
			log.Printf("Пользователь %s не найден, письмо пропущено", p.UserID)
			return nil
		}
		return err
	}

	if email == "" {
		// У пользователя нет email — уведомление некуда доставить
		return nil
	}

	if w.cfg.SMTPConfig.Host == "" {
		// SMTP не настроен (локальная разработка) — пишем в лог вместо отправки
		log.Printf("SMTP не настроен, письмо для %s (%s) пропущено", email, p.Template)
		return nil
	}

	subject, body := tmpl[0], tmpl[1]
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n",
		w.cfg.SMTPConfig.From, email, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", w.cfg.SMTPConfig.Host, w.cfg.SMTPConfig.Port)
	auth := smtp.PlainAuth("", w.cfg.SMTPConfig.Username, w.cfg.SMTPConfig.Password, w.cfg.SMTPConfig.Host)

	return smtp.SendMail(addr, auth, w.cfg.SMTPConfig.From, []string{email}, msg)
}
