package models

import (
	"github.com/google/uuid"
)

// User представляет минимальную информацию о пользователе для API
type User struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username,omitempty"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	City            string    `json:"city,omitempty"`
	Country         string    `json:"country,omitempty"`
	ReputationScore *float64  `json:"reputation_score,omitempty"`
	ReviewCount     int       `json:"review_count,omitempty"`
}
