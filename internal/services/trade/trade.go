package trade

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/models"
)

// lockInstanceForProposal блокирует вещь автора предложения на время обмена.
// Вещь должна принадлежать пользователю и быть доступной; если флаг
// доступности завис после старого обмена, он чинится на месте.
func lockInstanceForProposal(ctx context.Context, tx pgx.Tx, instanceID, proposerID uuid.UUID) (int, fiber.Map) {
	var ownerID uuid.UUID
	var isAvailable bool

	err := tx.QueryRow(ctx, `
		SELECT current_owner_id, is_available
		FROM item_instances
		WHERE id = $1
		FOR UPDATE
	`, instanceID).Scan(&ownerID, &isAvailable)

	if err != nil {
		if err == pgx.ErrNoRows {
			return fiber.StatusNotFound, fiber.Map{"error": "Вещь не найдена"}
		}
		log.Printf("Ошибка запроса вещи: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка проверки вещи"}
	}

	if ownerID != proposerID {
		return fiber.StatusForbidden, fiber.Map{"error": "Вы не являетесь владельцем этой вещи"}
	}

	if !isAvailable {
		// Проверяем, держит ли вещь активное объявление или живой обмен
		var holders int
		err = tx.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM offers
					WHERE item_instance_id = $1 AND status = 'active')
				 + (SELECT COUNT(*) FROM proposed_trades
					WHERE offered_item_instance_id = $1 AND status IN ('pending', 'accepted'))
		`, instanceID).Scan(&holders)

		if err != nil {
			log.Printf("Ошибка проверки блокировки вещи: %v", err)
			return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка проверки вещи"}
		}

		if classifyLock(isAvailable, holders) == lockHeld {
			return fiber.StatusConflict, fiber.Map{"error": "Вещь уже участвует в другом объявлении или обмене"}
		}

		// Завис флаг от завершенного обмена — чиним и продолжаем
		log.Printf("Вещь %s помечена недоступной без держателя, исправляем", instanceID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE item_instances SET is_available = false, updated_at = NOW() WHERE id = $1
	`, instanceID)

	if err != nil {
		log.Printf("Ошибка блокировки вещи: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка блокировки вещи"}
	}

	return 0, nil
}

// insertSystemMessage добавляет системное сообщение в переписку.
// recipientID == nil означает сообщение для обоих участников.
func insertSystemMessage(ctx context.Context, tx pgx.Tx, offerID, tradeID uuid.UUID, recipientID *uuid.UUID, content string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO messages (offer_id, proposed_trade_id, sender_id, recipient_id, content)
		VALUES ($1, $2, NULL, $3, $4)
	`, offerID, tradeID, recipientID, content)
	return err
}

// enqueueOutbox ставит отложенную задачу в очередь outbox.
// Задачи обрабатываются фоновым воркером после фиксации транзакции.
func enqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload fiber.Map) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (topic, payload) VALUES ($1, $2)
	`, topic, data)
	return err
}

// getUserDisplayName возвращает имя пользователя для системных сообщений
func getUserDisplayName(ctx context.Context, tx pgx.Tx, userID uuid.UUID) string {
	var firstName, lastName, username string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(username, '')
		FROM users WHERE id = $1
	`, userID).Scan(&firstName, &lastName, &username)

	if err != nil {
		log.Printf("Ошибка получения имени пользователя %s: %v", userID, err)
		return "Пользователь"
	}

	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		name = username
	}
	if name == "" {
		name = "Пользователь"
	}
	return name
}

// getUserSummary получает краткую информацию о пользователе
func getUserSummary(ctx context.Context, userID uuid.UUID) *models.User {
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

// getItemInstanceInfo получает экземпляр вещи вместе с каталожной карточкой
func getItemInstanceInfo(ctx context.Context, instanceID *uuid.UUID) *models.ItemInstance {
	if instanceID == nil {
		return nil
	}

	var instance models.ItemInstance
	var item models.CatalogItem
	err := db.Pool.QueryRow(ctx, `
		SELECT i.id, i.catalog_item_id, i.current_owner_id, i.original_owner_id,
			   i.is_available, i.acquisition_method, i.serial, i.created_at, i.updated_at,
			   c.id, c.creator_id, c.name, c.description, c.image_url, c.category, c.condition,
			   c.created_at, c.updated_at
		FROM item_instances i
		JOIN catalog_items c ON c.id = i.catalog_item_id
		WHERE i.id = $1
	`, *instanceID).Scan(
		&instance.ID,
		&instance.CatalogItemID,
		&instance.CurrentOwnerID,
		&instance.OriginalOwnerID,
		&instance.IsAvailable,
		&instance.AcquisitionMethod,
		&instance.Serial,
		&instance.CreatedAt,
		&instance.UpdatedAt,
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
		log.Printf("Ошибка получения вещи %s: %v", *instanceID, err)
		return nil
	}

	instance.CatalogItem = &item
	return &instance
}
