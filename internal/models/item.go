package models

import (
	"time"

	"github.com/google/uuid"
)

// Способы получения экземпляра вещи
const (
	AcquisitionCreated = "created"
	AcquisitionGifted  = "gifted"
	AcquisitionTraded  = "traded"
)

// CatalogItem представляет каноническое описание вещи
type CatalogItem struct {
	ID          uuid.UUID `json:"id"`
	CreatorID   uuid.UUID `json:"creator_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    string    `json:"category,omitempty"`
	Condition   string    `json:"condition"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemInstance представляет конкретный экземпляр вещи, которым владеет пользователь
type ItemInstance struct {
	ID                uuid.UUID `json:"id"`
	CatalogItemID     uuid.UUID `json:"catalog_item_id"`
	CurrentOwnerID    uuid.UUID `json:"current_owner_id"`
	OriginalOwnerID   uuid.UUID `json:"original_owner_id"`
	IsAvailable       bool      `json:"is_available"`
	AcquisitionMethod string    `json:"acquisition_method"` // created, gifted, traded
	Serial            int       `json:"serial"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Дополнительные поля для API
	CatalogItem *CatalogItem `json:"catalog_item,omitempty"`
	Owner       *User        `json:"owner,omitempty"`
}

// ItemHistory представляет одну запись в журнале передач экземпляра.
// Записи создаются ровно один раз и никогда не изменяются.
type ItemHistory struct {
	ID             uuid.UUID `json:"id"`
	ItemInstanceID uuid.UUID `json:"item_instance_id"`
	FromUserID     uuid.UUID `json:"from_user_id"`
	ToUserID       uuid.UUID `json:"to_user_id"`
	City           string    `json:"city,omitempty"`
	Country        string    `json:"country,omitempty"`
	Method         string    `json:"method"` // gifted, traded
	TransferredAt  time.Time `json:"transferred_at"`

	// Дополнительные поля для API
	FromUser *User `json:"from_user,omitempty"`
	ToUser   *User `json:"to_user,omitempty"`
}
