package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы предложения обмена. "unavailable" не хранится в базе —
// он вычисляется, когда по тому же объявлению принято другое предложение.
const (
	TradeStatusPending     = "pending"
	TradeStatusAccepted    = "accepted"
	TradeStatusRejected    = "rejected"
	TradeStatusWithdrawn   = "withdrawn"
	TradeStatusUnavailable = "unavailable"
)

// ProposedTrade представляет предложение обмена по объявлению
type ProposedTrade struct {
	ID                    uuid.UUID  `json:"id"`
	OfferID               uuid.UUID  `json:"offer_id"`
	ProposerID            uuid.UUID  `json:"proposer_id"`
	OfferedItemInstanceID *uuid.UUID `json:"offered_item_instance_id,omitempty"`
	Message               string     `json:"message,omitempty"`
	IsGiftMode            bool       `json:"is_gift_mode"`
	Status                string     `json:"status"` // pending, accepted, rejected, withdrawn
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	// Дополнительные поля для API
	Offer       *Offer        `json:"offer,omitempty"`
	OfferedItem *ItemInstance `json:"offered_item,omitempty"`
	Proposer    *User         `json:"proposer,omitempty"`
}

// TradeExchangeDate представляет предполагаемую дату встречи,
// извлеченную из переписки. Используется только для напоминаний об отзывах.
type TradeExchangeDate struct {
	ID              uuid.UUID `json:"id"`
	ProposedTradeID uuid.UUID `json:"proposed_trade_id"`
	ExchangeDate    time.Time `json:"exchange_date"`
	CreatedAt       time.Time `json:"created_at"`
}
