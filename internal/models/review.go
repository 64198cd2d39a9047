package models

import (
	"time"

	"github.com/google/uuid"
)

// Review представляет отзыв по завершенному обмену.
// На пару (предложение, автор) существует не более одного отзыва,
// повторная отправка редактирует его на месте.
type Review struct {
	ID              uuid.UUID `json:"id"`
	ProposedTradeID uuid.UUID `json:"proposed_trade_id"`
	ReviewerID      uuid.UUID `json:"reviewer_id"`
	RevieweeID      uuid.UUID `json:"reviewee_id"`
	Rating          int       `json:"rating"` // от 1 до 5
	Comment         string    `json:"comment,omitempty"`
	IsEdited        bool      `json:"is_edited"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Дополнительные поля для API
	Reviewer *User `json:"reviewer,omitempty"`
}
