package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы и статусы объявлений
const (
	OfferTypeOffer = "offer"
	OfferTypeAsk   = "ask"

	OfferStatusActive  = "active"
	OfferStatusDeleted = "deleted"
)

// Offer представляет объявление: предложение вещи или запрос (ask)
type Offer struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Type           string     `json:"type"`   // offer, ask
	Status         string     `json:"status"` // active, deleted
	CatalogItemID  *uuid.UUID `json:"catalog_item_id,omitempty"`
	ItemInstanceID *uuid.UUID `json:"item_instance_id,omitempty"`
	AskDescription string     `json:"ask_description,omitempty"`
	LookingFor     []string   `json:"looking_for,omitempty"`
	City           string     `json:"city,omitempty"`
	Country        string     `json:"country,omitempty"`
	// Точные координаты отдаются только владельцу объявления
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	AcceptedTradeID *uuid.UUID `json:"accepted_trade_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Дополнительные поля для API
	CatalogItem *CatalogItem    `json:"catalog_item,omitempty"`
	User        *User           `json:"user,omitempty"`
	DistanceKm  *float64        `json:"distance_km,omitempty"`
	Trades      []ProposedTrade `json:"trades,omitempty"`
}
