package offer

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapmap-api/internal/config"
	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/models"
	"github.com/rajivgeraev/swapmap-api/internal/services/geocoder"
	"github.com/rajivgeraev/swapmap-api/internal/services/moderation"
	"github.com/rajivgeraev/swapmap-api/internal/utils"
)

// OfferService представляет сервис для работы с объявлениями
type OfferService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	geocoder   *geocoder.GeocoderService
	moderation *moderation.ModerationService
}

// NewOfferService создает новый экземпляр OfferService
func NewOfferService(cfg *config.Config, geo *geocoder.GeocoderService, mod *moderation.ModerationService) *OfferService {
	return &OfferService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		geocoder:   geo,
		moderation: mod,
	}
}

// CreateOffer обрабатывает создание нового объявления.
// Тип "offer" требует ссылку на вещь (существующий экземпляр или новую),
// тип "ask" — текст запроса. Экземпляр вещи при публикации блокируется.
func (s *OfferService) CreateOffer(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	// Преобразуем userID в UUID
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var requestData struct {
		Type           string   `json:"type"`
		ItemInstanceID string   `json:"item_instance_id"`
		NewItem        *newItem `json:"new_item"`
		AskDescription string   `json:"ask_description"`
		LookingFor     []string `json:"looking_for"`
		Latitude       *float64 `json:"latitude"`
		Longitude      *float64 `json:"longitude"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Валидация по типу объявления
	switch requestData.Type {
	case models.OfferTypeOffer:
		if requestData.ItemInstanceID == "" && requestData.NewItem == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите вещь для обмена"})
		}
	case models.OfferTypeAsk:
		if requestData.AskDescription == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Опишите, что вы ищете"})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый тип объявления"})
	}

	// Проверяем текст через модерацию
	if ok, reason := s.moderation.Validate(requestData.AskDescription, "ask_description"); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
	}

	if requestData.Latitude != nil && requestData.Longitude != nil &&
		!utils.ValidCoordinates(*requestData.Latitude, *requestData.Longitude) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимые координаты"})
	}

	// Геокодируем координаты в огрубленное место для отображения
	location := geocoder.UnknownLocation
	if requestData.Latitude != nil && requestData.Longitude != nil {
		geoCtx, geoCancel := context.WithTimeout(context.Background(), 5*time.Second)
		location = s.geocoder.ReverseGeocode(geoCtx, *requestData.Latitude, *requestData.Longitude)
		geoCancel()
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Начинаем транзакцию
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	var catalogItemID, itemInstanceID *uuid.UUID

	if requestData.Type == models.OfferTypeOffer {
		if requestData.ItemInstanceID != "" {
			// Публикуем существующий экземпляр: блокируем его
			instanceUUID, err := uuid.Parse(requestData.ItemInstanceID)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
			}

			status, errResp := lockInstanceForOffer(ctx, tx, instanceUUID, userUUID)
			if errResp != nil {
				return c.Status(status).JSON(errResp)
			}

			var catID uuid.UUID
			if err := tx.QueryRow(ctx, `SELECT catalog_item_id FROM item_instances WHERE id = $1`, instanceUUID).Scan(&catID); err != nil {
				log.Printf("Ошибка запроса вещи: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки вещи"})
			}

			itemInstanceID = &instanceUUID
			catalogItemID = &catID
		} else {
			// Создаем новую вещь вместе с объявлением
			if requestData.NewItem.Name == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название вещи обязательно"})
			}
			if ok, reason := s.moderation.Validate(requestData.NewItem.Name, "name"); !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
			}
			if ok, reason := s.moderation.Validate(requestData.NewItem.Description, "description"); !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
			}

			var catID uuid.UUID
			err = tx.QueryRow(ctx, `
				INSERT INTO catalog_items (creator_id, name, description, image_url, category, condition)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, userUUID, requestData.NewItem.Name, requestData.NewItem.Description,
				requestData.NewItem.ImageURL, requestData.NewItem.Category, validCondition(requestData.NewItem.Condition)).Scan(&catID)

			if err != nil {
				log.Printf("Ошибка создания вещи: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения вещи"})
			}

			// Экземпляр сразу недоступен: он занят этим объявлением
			var instID uuid.UUID
			err = tx.QueryRow(ctx, `
				INSERT INTO item_instances (catalog_item_id, current_owner_id, original_owner_id, is_available, acquisition_method)
				VALUES ($1, $2, $2, false, 'created')
				RETURNING id
			`, catID, userUUID).Scan(&instID)

			if err != nil {
				log.Printf("Ошибка создания экземпляра вещи: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения вещи"})
			}

			catalogItemID = &catID
			itemInstanceID = &instID
		}
	}

	lookingForJSON, _ := json.Marshal(requestData.LookingFor)

	// Вставляем объявление
	offerID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO offers (id, user_id, type, status, catalog_item_id, item_instance_id,
			ask_description, looking_for, city, country, latitude, longitude)
		VALUES ($1, $2, $3, 'active', $4, $5, $6, $7, $8, $9, $10, $11)
	`, offerID, userUUID, requestData.Type, catalogItemID, itemInstanceID,
		requestData.AskDescription, lookingForJSON, location.City, location.Country,
		requestData.Latitude, requestData.Longitude)

	if err != nil {
		log.Printf("Ошибка создания объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения объявления"})
	}

	// Фиксируем транзакцию
	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":          true,
		"offer_id":         offerID,
		"display_location": location.DisplayLocation,
		"message":          "Объявление успешно создано",
	})
}

// newItem представляет новую вещь в запросе создания объявления
type newItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
}

// validCondition приводит состояние вещи к допустимому значению
func validCondition(condition string) string {
	validConditions := map[string]bool{
		"new": true, "excellent": true, "good": true,
		"used": true, "needs_repair": true, "damaged": true,
	}

	if !validConditions[condition] {
		return "used" // По умолчанию - б/у
	}
	return condition
}

// lockInstanceForOffer блокирует экземпляр вещи под объявление.
// Если экземпляр помечен недоступным, но ни одно активное объявление его
// не держит, флаг чинится на месте и блокировка продолжается.
func lockInstanceForOffer(ctx context.Context, tx pgx.Tx, instanceID, ownerID uuid.UUID) (int, fiber.Map) {
	var currentOwnerID uuid.UUID
	var isAvailable bool

	err := tx.QueryRow(ctx, `
		SELECT current_owner_id, is_available
		FROM item_instances
		WHERE id = $1
		FOR UPDATE
	`, instanceID).Scan(&currentOwnerID, &isAvailable)

	if err != nil {
		if err == pgx.ErrNoRows {
			return fiber.StatusNotFound, fiber.Map{"error": "Вещь не найдена"}
		}
		log.Printf("Ошибка запроса вещи: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка проверки вещи"}
	}

	if currentOwnerID != ownerID {
		return fiber.StatusForbidden, fiber.Map{"error": "Вы не владеете этой вещью"}
	}

	if !isAvailable {
		// Выясняем, держит ли вещь какое-то активное объявление
		var activeOffers int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM offers
			WHERE item_instance_id = $1 AND status = 'active'
		`, instanceID).Scan(&activeOffers)

		if err != nil {
			log.Printf("Ошибка проверки активных объявлений: %v", err)
			return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка проверки вещи"}
		}

		if activeOffers > 0 {
			return fiber.StatusConflict, fiber.Map{"error": "Вещь уже участвует в другом объявлении"}
		}

		// Флаг завис после удаленного объявления — чиним и продолжаем
		log.Printf("Вещь %s помечена недоступной без активного объявления, чиним флаг", instanceID)
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

// GetPublicOffers возвращает список активных объявлений с пагинацией.
// Точные координаты не отдаются; при переданных lat/lng считается расстояние.
func (s *OfferService) GetPublicOffers(c fiber.Ctx) error {
	limit := 20 // По умолчанию показываем 20 объявлений
	offsetStr := c.Query("offset", "0")
	offset, _ := strconv.Atoi(offsetStr)

	// Координаты запрашивающего для расчета расстояния
	var requesterLat, requesterLng *float64
	if latStr := c.Query("lat"); latStr != "" {
		if lat, err := strconv.ParseFloat(latStr, 64); err == nil {
			requesterLat = &lat
		}
	}
	if lngStr := c.Query("lng"); lngStr != "" {
		if lng, err := strconv.ParseFloat(lngStr, 64); err == nil {
			requesterLng = &lng
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, queryErr := db.Pool.Query(ctx, offerSelectQuery+`
		WHERE o.status = 'active'
		ORDER BY o.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)

	if queryErr != nil {
		log.Printf("Ошибка запроса объявлений: %v", queryErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		// Расстояние считаем до редактирования координат
		attachDistance(offer, requesterLat, requesterLng)
		redactCoordinates(offer)

		offer.CatalogItem = getCatalogItemInfo(ctx, offer.CatalogItemID)
		offer.User = getUserInfo(ctx, offer.UserID)

		offers = append(offers, *offer)
	}

	// Получаем общее количество объявлений для пагинации
	var total int
	countErr := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM offers WHERE status = 'active'
	`).Scan(&total)

	if countErr != nil {
		log.Printf("Ошибка подсчета объявлений: %v", countErr)
		// Игнорируем ошибку, просто не вернем общее количество
	}

	return c.JSON(fiber.Map{
		"offers": offers,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetMyOffers возвращает список объявлений текущего пользователя
func (s *OfferService) GetMyOffers(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Параметры фильтрации и пагинации
	status := c.Query("status", "all") // all, active, deleted
	limit := 20
	offsetStr := c.Query("offset", "0")
	offset, _ := strconv.Atoi(offsetStr)

	ctx, cancel := db.GetContext()
	defer cancel()

	var rows pgx.Rows
	var queryErr error

	if status == "all" {
		rows, queryErr = db.Pool.Query(ctx, offerSelectQuery+`
			WHERE o.user_id = $1
			ORDER BY o.updated_at DESC
			LIMIT $2 OFFSET $3
		`, userUUID, limit, offset)
	} else {
		rows, queryErr = db.Pool.Query(ctx, offerSelectQuery+`
			WHERE o.user_id = $1 AND o.status = $2
			ORDER BY o.updated_at DESC
			LIMIT $3 OFFSET $4
		`, userUUID, status, limit, offset)
	}

	if queryErr != nil {
		log.Printf("Ошибка запроса объявлений: %v", queryErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		offer.CatalogItem = getCatalogItemInfo(ctx, offer.CatalogItemID)
		offers = append(offers, *offer)
	}

	return c.JSON(fiber.Map{
		"offers": offers,
		"count":  len(offers),
	})
}

// GetOffer возвращает детальную информацию об объявлении вместе с
// предложениями обмена. Координаты видит только владелец.
func (s *OfferService) GetOffer(c fiber.Ctx) error {
	userIDStr := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	offerUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	// Координаты запрашивающего для расчета расстояния
	var requesterLat, requesterLng *float64
	if latStr := c.Query("lat"); latStr != "" {
		if lat, err := strconv.ParseFloat(latStr, 64); err == nil {
			requesterLat = &lat
		}
	}
	if lngStr := c.Query("lng"); lngStr != "" {
		if lng, err := strconv.ParseFloat(lngStr, 64); err == nil {
			requesterLng = &lng
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	row := db.Pool.QueryRow(ctx, offerSelectQuery+` WHERE o.id = $1`, offerUUID)
	offer, err := scanOfferRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка получения объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	isOwner := offer.UserID == userUUID

	// Чужие координаты наружу не отдаем
	if !isOwner {
		attachDistance(offer, requesterLat, requesterLng)
		redactCoordinates(offer)
	}

	offer.CatalogItem = getCatalogItemInfo(ctx, offer.CatalogItemID)
	offer.User = getUserInfo(ctx, offer.UserID)

	// Загружаем предложения обмена по объявлению
	tradeRows, err := db.Pool.Query(ctx, `
		SELECT id, offer_id, proposer_id, offered_item_instance_id, message, is_gift_mode, status, created_at, updated_at
		FROM proposed_trades
		WHERE offer_id = $1
		ORDER BY created_at DESC
	`, offerUUID)

	if err != nil {
		log.Printf("Ошибка запроса предложений обмена: %v", err)
	} else {
		defer tradeRows.Close()

		for tradeRows.Next() {
			var trade models.ProposedTrade
			if err := tradeRows.Scan(
				&trade.ID,
				&trade.OfferID,
				&trade.ProposerID,
				&trade.OfferedItemInstanceID,
				&trade.Message,
				&trade.IsGiftMode,
				&trade.Status,
				&trade.CreatedAt,
				&trade.UpdatedAt,
			); err != nil {
				log.Printf("Ошибка сканирования предложения: %v", err)
				continue
			}

			// Чужие предложения видит только владелец объявления
			if !isOwner && trade.ProposerID != userUUID {
				continue
			}

			// Висящее предложение при принятом чужом показываем как недоступное
			if trade.Status == models.TradeStatusPending && offer.AcceptedTradeID != nil {
				trade.Status = models.TradeStatusUnavailable
			}

			trade.Proposer = getUserInfo(ctx, trade.ProposerID)
			offer.Trades = append(offer.Trades, trade)
		}
	}

	return c.JSON(fiber.Map{
		"offer":    offer,
		"is_owner": isOwner,
	})
}

// UpdateOffer обновляет существующее объявление (только владелец, частичный патч)
func (s *OfferService) UpdateOffer(c fiber.Ctx) error {
	userIDStr := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	offerUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	var requestData struct {
		AskDescription *string   `json:"ask_description"`
		LookingFor     *[]string `json:"looking_for"`
		Latitude       *float64  `json:"latitude"`
		Longitude      *float64  `json:"longitude"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.AskDescription != nil {
		if ok, reason := s.moderation.Validate(*requestData.AskDescription, "ask_description"); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем, что объявление существует и принадлежит пользователю
	var ownerID uuid.UUID
	var status string
	err = db.Pool.QueryRow(ctx, "SELECT user_id, status FROM offers WHERE id = $1", offerUUID).Scan(&ownerID, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к редактированию этого объявления"})
	}

	if status == models.OfferStatusDeleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя редактировать удаленное объявление"})
	}

	// Частичный патч: обновляем только переданные поля
	if requestData.AskDescription != nil {
		if _, err := db.Pool.Exec(ctx, `
			UPDATE offers SET ask_description = $1, updated_at = NOW() WHERE id = $2
		`, *requestData.AskDescription, offerUUID); err != nil {
			log.Printf("Ошибка обновления объявления: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления объявления"})
		}
	}

	if requestData.LookingFor != nil {
		lookingForJSON, _ := json.Marshal(*requestData.LookingFor)
		if _, err := db.Pool.Exec(ctx, `
			UPDATE offers SET looking_for = $1, updated_at = NOW() WHERE id = $2
		`, lookingForJSON, offerUUID); err != nil {
			log.Printf("Ошибка обновления объявления: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления объявления"})
		}
	}

	if requestData.Latitude != nil && requestData.Longitude != nil {
		if !utils.ValidCoordinates(*requestData.Latitude, *requestData.Longitude) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимые координаты"})
		}

		geoCtx, geoCancel := context.WithTimeout(context.Background(), 5*time.Second)
		location := s.geocoder.ReverseGeocode(geoCtx, *requestData.Latitude, *requestData.Longitude)
		geoCancel()

		if _, err := db.Pool.Exec(ctx, `
			UPDATE offers SET latitude = $1, longitude = $2, city = $3, country = $4, updated_at = NOW() WHERE id = $5
		`, *requestData.Latitude, *requestData.Longitude, location.City, location.Country, offerUUID); err != nil {
			log.Printf("Ошибка обновления координат: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления объявления"})
		}
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"offer_id": offerUUID,
		"message":  "Объявление успешно обновлено",
	})
}

// DeleteOffer мягко удаляет объявление. Предложения и переписка остаются
// читаемыми, но новые действия по объявлению блокируются.
func (s *OfferService) DeleteOffer(c fiber.Ctx) error {
	userIDStr := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	offerUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	var ownerID uuid.UUID
	var status string
	var itemInstanceID, acceptedTradeID *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT user_id, status, item_instance_id, accepted_trade_id
		FROM offers
		WHERE id = $1
		FOR UPDATE
	`, offerUUID).Scan(&ownerID, &status, &itemInstanceID, &acceptedTradeID)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к удалению этого объявления"})
	}

	if status == models.OfferStatusDeleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Объявление уже удалено"})
	}

	// Мягкое удаление: предложения и сообщения не трогаем
	_, err = tx.Exec(ctx, `
		UPDATE offers SET status = 'deleted', updated_at = NOW() WHERE id = $1
	`, offerUUID)

	if err != nil {
		log.Printf("Ошибка удаления объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления объявления"})
	}

	// Освобождаем вещь, если обмен не был принят
	if itemInstanceID != nil && acceptedTradeID == nil {
		_, err = tx.Exec(ctx, `
			UPDATE item_instances SET is_available = true, updated_at = NOW() WHERE id = $1
		`, *itemInstanceID)

		if err != nil {
			log.Printf("Ошибка освобождения вещи: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления объявления"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Объявление успешно удалено",
	})
}
