package item

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/swapmap-api/internal/config"
	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/models"
	"github.com/rajivgeraev/swapmap-api/internal/services/moderation"
	"github.com/rajivgeraev/swapmap-api/internal/utils"
)

// ItemService представляет сервис для работы с вещами пользователей
type ItemService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	moderation *moderation.ModerationService
}

// NewItemService создает новый экземпляр ItemService
func NewItemService(cfg *config.Config, mod *moderation.ModerationService) *ItemService {
	return &ItemService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		moderation: mod,
	}
}

// CreateItem добавляет новую вещь в инвентарь пользователя
func (s *ItemService) CreateItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		Category    string `json:"category"`
		Condition   string `json:"condition"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите название вещи"})
	}

	if ok, reason := s.moderation.Validate(requestData.Name, "name"); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
	}
	if ok, reason := s.moderation.Validate(requestData.Description, "description"); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
	}

	if requestData.Condition == "" {
		requestData.Condition = "used"
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	catalogItemID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO catalog_items (id, creator_id, name, description, image_url, category, condition)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, catalogItemID, userUUID, requestData.Name, requestData.Description,
		requestData.ImageURL, requestData.Category, requestData.Condition)

	if err != nil {
		log.Printf("Ошибка создания карточки вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения вещи"})
	}

	instanceID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO item_instances (id, catalog_item_id, current_owner_id, original_owner_id, is_available, acquisition_method)
		VALUES ($1, $2, $3, $3, true, 'created')
	`, instanceID, catalogItemID, userUUID)

	if err != nil {
		log.Printf("Ошибка создания экземпляра вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения вещи"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":          true,
		"item_instance_id": instanceID,
		"catalog_item_id":  catalogItemID,
	})
}

// GetMyItems возвращает инвентарь пользователя
func (s *ItemService) GetMyItems(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	query := `
		SELECT i.id, i.catalog_item_id, i.current_owner_id, i.original_owner_id,
			   i.is_available, i.acquisition_method, i.serial, i.created_at, i.updated_at,
			   c.id, c.creator_id, c.name, c.description, c.image_url, c.category, c.condition,
			   c.created_at, c.updated_at
		FROM item_instances i
		JOIN catalog_items c ON c.id = i.catalog_item_id
		WHERE i.current_owner_id = $1
	`

	// Фильтр по доступности: ?available=true возвращает только свободные вещи
	if c.Query("available") == "true" {
		query += ` AND i.is_available = true`
	}

	query += ` ORDER BY i.created_at DESC`

	rows, err := db.Pool.Query(ctx, query, userUUID)
	if err != nil {
		log.Printf("Ошибка запроса инвентаря: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения инвентаря"})
	}
	defer rows.Close()

	var items []models.ItemInstance
	for rows.Next() {
		var instance models.ItemInstance
		var item models.CatalogItem

		if err := rows.Scan(
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
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		instance.CatalogItem = &item
		items = append(items, instance)
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

// GetItemHistory возвращает журнал передач экземпляра вещи
func (s *ItemService) GetItemHistory(c fiber.Ctx) error {
	instanceUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем существование вещи
	var exists bool
	err = db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM item_instances WHERE id = $1)
	`, instanceUUID).Scan(&exists)

	if err != nil {
		log.Printf("Ошибка проверки вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения вещи"})
	}

	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена"})
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT h.id, h.item_instance_id, h.from_user_id, h.to_user_id,
			   h.city, h.country, h.method, h.transferred_at
		FROM item_history h
		WHERE h.item_instance_id = $1
		ORDER BY h.transferred_at DESC
	`, instanceUUID)

	if err != nil {
		log.Printf("Ошибка запроса журнала передач: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения журнала передач"})
	}
	defer rows.Close()

	var history []models.ItemHistory
	for rows.Next() {
		var entry models.ItemHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ItemInstanceID,
			&entry.FromUserID,
			&entry.ToUserID,
			&entry.City,
			&entry.Country,
			&entry.Method,
			&entry.TransferredAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		entry.FromUser = getUserSummary(ctx, entry.FromUserID)
		entry.ToUser = getUserSummary(ctx, entry.ToUserID)
		history = append(history, entry)
	}

	return c.JSON(fiber.Map{
		"history": history,
		"count":   len(history),
	})
}
