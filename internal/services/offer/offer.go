package offer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/models"
	"github.com/rajivgeraev/swapmap-api/internal/utils"
)

const offerSelectQuery = `
	SELECT o.id, o.user_id, o.type, o.status, o.catalog_item_id, o.item_instance_id,
		   o.ask_description, o.looking_for, o.city, o.country, o.latitude, o.longitude,
		   o.accepted_trade_id, o.created_at, o.updated_at
	FROM offers o`

// scanOffer сканирует строку объявления из результата запроса
func scanOffer(rows pgx.Rows) (*models.Offer, error) {
	return scanOfferRow(rows)
}

// scanOfferRow сканирует одну строку объявления
func scanOfferRow(row pgx.Row) (*models.Offer, error) {
	var offer models.Offer
	var lookingFor []byte

	err := row.Scan(
		&offer.ID,
		&offer.UserID,
		&offer.Type,
		&offer.Status,
		&offer.CatalogItemID,
		&offer.ItemInstanceID,
		&offer.AskDescription,
		&lookingFor,
		&offer.City,
		&offer.Country,
		&offer.Latitude,
		&offer.Longitude,
		&offer.AcceptedTradeID,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	// Преобразуем JSONB список в массив строк
	if err := json.Unmarshal(lookingFor, &offer.LookingFor); err != nil {
		log.Printf("Ошибка разбора looking_for: %v", err)
		offer.LookingFor = []string{}
	}

	return &offer, nil
}

// attachDistance вычисляет расстояние до объявления по координатам запрашивающего
func attachDistance(offer *models.Offer, requesterLat, requesterLng *float64) {
	if requesterLat == nil || requesterLng == nil || offer.Latitude == nil || offer.Longitude == nil {
		return
	}

	km := utils.RoundKm(utils.HaversineKm(*requesterLat, *requesterLng, *offer.Latitude, *offer.Longitude))
	offer.DistanceKm = &km
}

// redactCoordinates убирает точные координаты из ответа.
// Наружу уходят только город и страна.
func redactCoordinates(offer *models.Offer) {
	offer.Latitude = nil
	offer.Longitude = nil
}

// getCatalogItemInfo получает информацию о вещи
func getCatalogItemInfo(ctx context.Context, catalogItemID *uuid.UUID) *models.CatalogItem {
	if catalogItemID == nil {
		return nil
	}

	var item models.CatalogItem
	err := db.Pool.QueryRow(ctx, `
		SELECT id, creator_id, name, description, image_url, category, condition, created_at, updated_at
		FROM catalog_items
		WHERE id = $1
	`, *catalogItemID).Scan(
		&item.ID,
		&item.CreatorID,
		&item.Name,
		&item.Description,
		&item.ImageURL,
		&item.Category,
		&item.Condition,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		log.Printf("Ошибка получения вещи %s: %v", *catalogItemID, err)
		return nil
	}

	return &item
}

// getUserInfo получает информацию о пользователе
func getUserInfo(ctx context.Context, userID uuid.UUID) *models.User {
	var user models.User
	err := db.Pool.QueryRow(ctx, `
		SELECT id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
			   COALESCE(avatar_url, ''), COALESCE(city, ''), COALESCE(country, ''),
			   reputation_score, review_count
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.City,
		&user.Country,
		&user.ReputationScore,
		&user.ReviewCount,
	)

	if err != nil {
		log.Printf("Ошибка получения пользователя %s: %v", userID, err)
		return nil
	}

	return &user
}
