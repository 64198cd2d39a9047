package item

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/models"
)

// newItem представляет новую вещь, создаваемую прямо при передаче
type newItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
}

// TransferItem передает вещь другому пользователю и добавляет запись
// в журнал передач. Передача выполняется одной транзакцией: смена
// владельца и запись в журнал либо происходят вместе, либо не происходят.
func (s *ItemService) TransferItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	giverID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		ItemInstanceID  string   `json:"item_instance_id"`
		NewItem         *newItem `json:"new_item"`
		ToUserID        string   `json:"to_user_id"`
		Method          string   `json:"method"` // gifted, traded
		City            string   `json:"city"`
		Country         string   `json:"country"`
		ProposedTradeID string   `json:"proposed_trade_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Передать можно существующий экземпляр или сразу новую вещь
	if (requestData.ItemInstanceID == "") == (requestData.NewItem == nil) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите вещь: существующую или новую"})
	}

	recipientID, err := uuid.Parse(requestData.ToUserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID получателя"})
	}

	if requestData.Method != models.AcquisitionGifted && requestData.Method != models.AcquisitionTraded {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Способ передачи должен быть gifted или traded"})
	}

	if recipientID == giverID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя передать вещь самому себе"})
	}

	var tradeID *uuid.UUID
	if requestData.ProposedTradeID != "" {
		parsed, err := uuid.Parse(requestData.ProposedTradeID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения обмена"})
		}
		tradeID = &parsed
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	// Получатель должен существовать
	var recipientExists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active)
	`, recipientID).Scan(&recipientExists)

	if err != nil {
		log.Printf("Ошибка проверки получателя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки получателя"})
	}

	if !recipientExists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Получатель не найден"})
	}

	var instanceID, catalogItemID uuid.UUID

	if requestData.NewItem != nil {
		// Новая вещь создается сразу в руках получателя
		if requestData.NewItem.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите название вещи"})
		}
		if ok, reason := s.moderation.Validate(requestData.NewItem.Name, "name"); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
		}
		if ok, reason := s.moderation.Validate(requestData.NewItem.Description, "description"); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
		}

		condition := requestData.NewItem.Condition
		if condition == "" {
			condition = "used"
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO catalog_items (creator_id, name, description, image_url, category, condition)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, giverID, requestData.NewItem.Name, requestData.NewItem.Description,
			requestData.NewItem.ImageURL, requestData.NewItem.Category, condition).Scan(&catalogItemID)

		if err != nil {
			log.Printf("Ошибка создания карточки вещи: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения вещи"})
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO item_instances (catalog_item_id, current_owner_id, original_owner_id, is_available, acquisition_method)
			VALUES ($1, $2, $3, true, $4)
			RETURNING id
		`, catalogItemID, recipientID, giverID, requestData.Method).Scan(&instanceID)

		if err != nil {
			log.Printf("Ошибка создания экземпляра вещи: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения вещи"})
		}
	} else {
		instanceID, err = uuid.Parse(requestData.ItemInstanceID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
		}

		// Блокируем экземпляр на время передачи
		var currentOwnerID uuid.UUID
		var isAvailable bool
		err = tx.QueryRow(ctx, `
			SELECT current_owner_id, catalog_item_id, is_available
			FROM item_instances
			WHERE id = $1
			FOR UPDATE
		`, instanceID).Scan(&currentOwnerID, &catalogItemID, &isAvailable)

		if err != nil {
			if err == pgx.ErrNoRows {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена"})
			}
			log.Printf("Ошибка запроса вещи: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки вещи"})
		}

		if currentOwnerID != giverID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не являетесь владельцем этой вещи"})
		}

		// Если вещь заблокирована, разбираемся кем: передача в рамках
		// принятого обмена законна, чужая блокировка — конфликт,
		// блокировка без держателя — зависший флаг, чинится на месте
		if !isAvailable {
			if status, errResp := resolveUnavailable(ctx, tx, instanceID, tradeID); errResp != nil {
				return c.Status(status).JSON(errResp)
			}
		}

		// Получатель не может держать второй экземпляр той же вещи
		var duplicateCount int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM item_instances
			WHERE catalog_item_id = $1 AND current_owner_id = $2
		`, catalogItemID, recipientID).Scan(&duplicateCount)

		if err != nil {
			log.Printf("Ошибка проверки дубликата: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки вещи"})
		}

		if duplicateCount > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "У получателя уже есть экземпляр этой вещи"})
		}

		// Смена владельца: вещь появляется в инвентаре получателя свободной
		_, err = tx.Exec(ctx, `
			UPDATE item_instances
			SET current_owner_id = $1, is_available = true, acquisition_method = $2, updated_at = NOW()
			WHERE id = $3
		`, recipientID, requestData.Method, instanceID)

		if err != nil {
			log.Printf("Ошибка смены владельца: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка передачи вещи"})
		}
	}

	// Место передачи: явное из запроса, иначе последнее известное
	// место дарителя, иначе нейтральное "Earth"
	city, country := historyLocation(ctx, tx, giverID, requestData.City, requestData.Country)

	var entry models.ItemHistory
	err = tx.QueryRow(ctx, `
		INSERT INTO item_history (item_instance_id, from_user_id, to_user_id, city, country, method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, item_instance_id, from_user_id, to_user_id, city, country, method, transferred_at
	`, instanceID, giverID, recipientID, city, country, requestData.Method).Scan(
		&entry.ID,
		&entry.ItemInstanceID,
		&entry.FromUserID,
		&entry.ToUserID,
		&entry.City,
		&entry.Country,
		&entry.Method,
		&entry.TransferredAt,
	)

	if err != nil {
		log.Printf("Ошибка записи в журнал передач: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка записи в журнал передач"})
	}

	// Если передача идет в рамках обмена, добавляем системное сообщение в переписку
	if tradeID != nil {
		var offerID uuid.UUID
		err = tx.QueryRow(ctx, `SELECT offer_id FROM proposed_trades WHERE id = $1`, *tradeID).Scan(&offerID)
		if err == nil {
			var itemName string
			if err := tx.QueryRow(ctx, `SELECT name FROM catalog_items WHERE id = $1`, catalogItemID).Scan(&itemName); err != nil {
				itemName = "вещь"
			}

			content := fmt.Sprintf("Вещь «%s» передана новому владельцу.", itemName)
			_, err = tx.Exec(ctx, `
				INSERT INTO messages (offer_id, proposed_trade_id, sender_id, recipient_id, content)
				VALUES ($1, $2, NULL, NULL, $3)
			`, offerID, *tradeID, content)

			if err != nil {
				log.Printf("Ошибка создания системного сообщения: %v", err)
			}
		} else {
			log.Printf("Ошибка запроса предложения обмена %s: %v", *tradeID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"history":   entry,
		"item":      getInstanceWithItem(ctx, instanceID),
		"recipient": getUserSummary(ctx, recipientID),
	})
}

// getInstanceWithItem получает экземпляр вещи вместе с каталожной карточкой
func getInstanceWithItem(ctx context.Context, instanceID uuid.UUID) *models.ItemInstance {
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
	`, instanceID).Scan(
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
		log.Printf("Ошибка получения вещи %s: %v", instanceID, err)
		return nil
	}

	instance.CatalogItem = &item
	return &instance
}

// resolveUnavailable решает судьбу заблокированной вещи перед передачей
func resolveUnavailable(ctx context.Context, tx pgx.Tx, instanceID uuid.UUID, tradeID *uuid.UUID) (int, fiber.Map) {
	// Если передача идет в рамках принятого обмена, блокировка законна
	if tradeID != nil {
		var held bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM proposed_trades t
				JOIN offers o ON o.id = t.offer_id
				WHERE t.id = $1 AND t.status = 'accepted'
				  AND (t.offered_item_instance_id = $2 OR o.item_instance_id = $2)
			)
		`, *tradeID, instanceID).Scan(&held)

		if err != nil {
			log.Printf("Ошибка проверки обмена: %v", err)
			return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка проверки обмена"}
		}

		if held {
			return 0, nil
		}
	}

	// Иначе смотрим, держит ли вещь кто-то живой
	var holders int
	err := tx.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM offers
				WHERE item_instance_id = $1 AND status = 'active')
			 + (SELECT COUNT(*) FROM proposed_trades
				WHERE offered_item_instance_id = $1 AND status IN ('pending', 'accepted'))
	`, instanceID).Scan(&holders)

	if err != nil {
		log.Printf("Ошибка проверки блокировки вещи: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка проверки вещи"}
	}

	if holders > 0 {
		return fiber.StatusConflict, fiber.Map{"error": "Вещь участвует в другом объявлении или обмене"}
	}

	// Зависший флаг без держателя — чиним молча и продолжаем
	log.Printf("Вещь %s помечена недоступной без держателя, исправляем", instanceID)
	return 0, nil
}

// historyLocation выбирает место для записи в журнале передач
func historyLocation(ctx context.Context, tx pgx.Tx, giverID uuid.UUID, city, country string) (string, string) {
	if city != "" || country != "" {
		return city, country
	}

	err := tx.QueryRow(ctx, `
		SELECT COALESCE(city, ''), COALESCE(country, '') FROM users WHERE id = $1
	`, giverID).Scan(&city, &country)

	if err != nil {
		log.Printf("Ошибка получения места дарителя %s: %v", giverID, err)
	}

	if city == "" && country == "" {
		country = "Earth"
	}

	return city, country
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
