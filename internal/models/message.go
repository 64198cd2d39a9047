package models

import (
	"time"

	"github.com/google/uuid"
)

// Message представляет сообщение в переписке по предложению обмена.
// sender_id и recipient_id равные NULL означают системное сообщение;
// системное сообщение с заполненным recipient_id видит только получатель.
type Message struct {
	ID              uuid.UUID  `json:"id"`
	OfferID         uuid.UUID  `json:"offer_id"`
	ProposedTradeID uuid.UUID  `json:"proposed_trade_id"`
	SenderID        *uuid.UUID `json:"sender_id,omitempty"`
	RecipientID     *uuid.UUID `json:"recipient_id,omitempty"`
	Content         string     `json:"content"`
	IsSystem        bool       `json:"is_system"`
	IsRead          bool       `json:"is_read"`
	CreatedAt       time.Time  `json:"created_at"`

	// Дополнительные поля для API
	Sender *User `json:"sender,omitempty"`
}
