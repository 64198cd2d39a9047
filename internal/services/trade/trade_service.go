package trade

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapmap-api/internal/config"
	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/models"
	"github.com/rajivgeraev/swapmap-api/internal/services/moderation"
	"github.com/rajivgeraev/swapmap-api/internal/utils"
	"github.com/rajivgeraev/swapmap-api/internal/websocket"
)

// TradeService представляет сервис для работы с предложениями обмена
type TradeService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	moderation *moderation.ModerationService
	wsManager  *websocket.Manager
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(cfg *config.Config, mod *moderation.ModerationService, wsManager *websocket.Manager) *TradeService {
	return &TradeService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		moderation: mod,
		wsManager:  wsManager,
	}
}

// CreateTrade создает новое предложение обмена по объявлению.
// Вещь, которую предлагает пользователь, блокируется внутри той же
// транзакции, а в новую переписку добавляется вступительное сообщение.
func (s *TradeService) CreateTrade(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	proposerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var requestData struct {
		OfferID               string `json:"offer_id"`
		OfferedItemInstanceID string `json:"offered_item_instance_id"`
		Message               string `json:"message"`
		IsGiftMode            bool   `json:"is_gift_mode"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.OfferID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать ID объявления"})
	}

	offerID, err := uuid.Parse(requestData.OfferID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	// Проверяем сопроводительное сообщение через модерацию
	if ok, reason := s.moderation.Validate(requestData.Message, "message"); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
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

	// Блокируем строку объявления на время проверок
	var offerOwnerID uuid.UUID
	var offerType, offerStatus string
	var acceptedTradeID *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT user_id, type, status, accepted_trade_id
		FROM offers
		WHERE id = $1
		FOR UPDATE
	`, offerID).Scan(&offerOwnerID, &offerType, &offerStatus, &acceptedTradeID)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки объявления"})
	}

	if offerStatus != models.OfferStatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Объявление больше не активно"})
	}

	if acceptedTradeID != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "По этому объявлению уже принято другое предложение"})
	}

	// Нельзя предлагать обмен на свое объявление
	if offerOwnerID == proposerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Вы не можете предложить обмен по своему объявлению"})
	}

	// Проверяем, нет ли уже предложения от этого пользователя
	var existingCount int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM proposed_trades
		WHERE offer_id = $1 AND proposer_id = $2
	`, offerID, proposerID).Scan(&existingCount)

	if err != nil {
		log.Printf("Ошибка проверки существующих предложений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки существующих предложений"})
	}

	if existingCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Вы уже отправили предложение по этому объявлению"})
	}

	// Блокируем предлагаемую вещь, если она указана
	var offeredItemID *uuid.UUID
	if requestData.OfferedItemInstanceID != "" {
		instanceUUID, err := uuid.Parse(requestData.OfferedItemInstanceID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
		}

		status, errResp := lockInstanceForProposal(ctx, tx, instanceUUID, proposerID)
		if errResp != nil {
			return c.Status(status).JSON(errResp)
		}

		offeredItemID = &instanceUUID
	} else if !requestData.IsGiftMode && offerType == models.OfferTypeOffer {
		// Для обычного обмена по объявлению-предложению нужна встречная вещь
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите вещь, которую предлагаете взамен"})
	}

	// Создаем предложение обмена
	tradeID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO proposed_trades (id, offer_id, proposer_id, offered_item_instance_id, message, is_gift_mode, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`, tradeID, offerID, proposerID, offeredItemID, requestData.Message, requestData.IsGiftMode)

	if err != nil {
		log.Printf("Ошибка создания предложения обмена: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения предложения обмена"})
	}

	// Вступительное системное сообщение в новую переписку
	proposerName := getUserDisplayName(ctx, tx, proposerID)
	opening := fmt.Sprintf("%s предложил обмен по вашему объявлению", proposerName)
	if requestData.IsGiftMode {
		opening = fmt.Sprintf("%s хочет получить вещь в подарок", proposerName)
	}

	if err := insertSystemMessage(ctx, tx, offerID, tradeID, nil, opening); err != nil {
		log.Printf("Ошибка создания системного сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания переписки"})
	}

	// Сопроводительный текст уходит обычным сообщением от автора предложения
	if requestData.Message != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (offer_id, proposed_trade_id, sender_id, recipient_id, content)
			VALUES ($1, $2, $3, $4, $5)
		`, offerID, tradeID, proposerID, offerOwnerID, requestData.Message)

		if err != nil {
			log.Printf("Ошибка создания сообщения: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания переписки"})
		}
	}

	// Уведомление владельцу объявления — через outbox, не блокируя ответ
	if err := enqueueOutbox(ctx, tx, "email_notification", fiber.Map{
		"template": "new_trade_proposal",
		"user_id":  offerOwnerID,
		"trade_id": tradeID,
	}); err != nil {
		log.Printf("Ошибка постановки уведомления в очередь: %v", err)
	}

	// Фиксируем транзакцию
	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Push-уведомление владельцу объявления
	s.wsManager.SendToUser(offerOwnerID.String(), websocket.Event{
		Type:    websocket.EventTradeStatus,
		TradeID: tradeID.String(),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"trade_id": tradeID,
		"message":  "Предложение обмена успешно создано",
	})
}

// GetMyTrades возвращает список входящих и исходящих предложений обмена
func (s *TradeService) GetMyTrades(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Получаем тип предложений (входящие/исходящие/все)
	tradeType := c.Query("type", "all") // all, incoming, outgoing

	ctx, cancel := db.GetContext()
	defer cancel()

	// accepted_trade_id объявления нужен, чтобы вычислить статус "unavailable"
	baseQuery := `
		SELECT t.id, t.offer_id, t.proposer_id, t.offered_item_instance_id,
			   t.message, t.is_gift_mode, t.status, t.created_at, t.updated_at,
			   o.user_id, o.accepted_trade_id
		FROM proposed_trades t
		JOIN offers o ON o.id = t.offer_id
	`

	var rows pgx.Rows
	switch tradeType {
	case "incoming":
		rows, err = db.Pool.Query(ctx, baseQuery+`
			WHERE o.user_id = $1
			ORDER BY t.created_at DESC
		`, userUUID)
	case "outgoing":
		rows, err = db.Pool.Query(ctx, baseQuery+`
			WHERE t.proposer_id = $1
			ORDER BY t.created_at DESC
		`, userUUID)
	default:
		rows, err = db.Pool.Query(ctx, baseQuery+`
			WHERE t.proposer_id = $1 OR o.user_id = $1
			ORDER BY t.created_at DESC
		`, userUUID)
	}

	if err != nil {
		log.Printf("Ошибка запроса предложений обмена: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предложений обмена"})
	}
	defer rows.Close()

	var trades []models.ProposedTrade
	for rows.Next() {
		var trade models.ProposedTrade
		var offerOwnerID uuid.UUID
		var acceptedTradeID *uuid.UUID

		if err := rows.Scan(
			&trade.ID,
			&trade.OfferID,
			&trade.ProposerID,
			&trade.OfferedItemInstanceID,
			&trade.Message,
			&trade.IsGiftMode,
			&trade.Status,
			&trade.CreatedAt,
			&trade.UpdatedAt,
			&offerOwnerID,
			&acceptedTradeID,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		// Висящее предложение при принятом чужом показываем как недоступное
		trade.Status = displayStatus(trade.Status, trade.ID, acceptedTradeID)

		trade.Proposer = getUserSummary(ctx, trade.ProposerID)
		trade.OfferedItem = getItemInstanceInfo(ctx, trade.OfferedItemInstanceID)

		trades = append(trades, trade)
	}

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// UpdateTradeStatus обновляет статус предложения обмена.
// Принятие выполняется одной транзакцией: смена статуса, системное
// сообщение в выигравшую переписку и уведомления во все остальные.
func (s *TradeService) UpdateTradeStatus(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	tradeUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения обмена"})
	}

	// Получаем новый статус из запроса
	var requestData struct {
		Status string `json:"status"` // accepted, pending (отмена принятия), rejected, withdrawn
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	switch requestData.Status {
	case models.TradeStatusAccepted, models.TradeStatusPending, models.TradeStatusRejected, models.TradeStatusWithdrawn:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый статус предложения обмена"})
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

	// Блокируем предложение и объявление: принятие должно быть
	// сериализовано по объявлению, иначе возможны два принятых предложения
	var trade models.ProposedTrade
	var offerOwnerID uuid.UUID
	var offerStatus string
	var acceptedTradeID *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT t.id, t.offer_id, t.proposer_id, t.offered_item_instance_id, t.is_gift_mode, t.status,
			   o.user_id, o.status, o.accepted_trade_id
		FROM proposed_trades t
		JOIN offers o ON o.id = t.offer_id
		WHERE t.id = $1
		FOR UPDATE OF t, o
	`, tradeUUID).Scan(
		&trade.ID, &trade.OfferID, &trade.ProposerID, &trade.OfferedItemInstanceID,
		&trade.IsGiftMode, &trade.Status,
		&offerOwnerID, &offerStatus, &acceptedTradeID,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено"})
		}
		log.Printf("Ошибка запроса предложения обмена: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предложения обмена"})
	}

	isOwner := offerOwnerID == userUUID
	isProposer := trade.ProposerID == userUUID

	if !isOwner && !isProposer {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не участвуете в этом обмене"})
	}

	if status, errResp := checkStatusTransition(requestData.Status, trade.Status, offerStatus, acceptedTradeID, isOwner, isProposer); errResp != nil {
		return c.Status(status).JSON(errResp)
	}

	switch requestData.Status {
	case models.TradeStatusAccepted:
		if status, errResp := s.acceptTrade(ctx, tx, &trade, offerOwnerID); errResp != nil {
			return c.Status(status).JSON(errResp)
		}

	case models.TradeStatusPending:
		if status, errResp := s.unacceptTrade(ctx, tx, &trade); errResp != nil {
			return c.Status(status).JSON(errResp)
		}

	case models.TradeStatusRejected, models.TradeStatusWithdrawn:
		if status, errResp := s.closeTrade(ctx, tx, &trade, requestData.Status, offerOwnerID); errResp != nil {
			return c.Status(status).JSON(errResp)
		}
	}

	// Фиксируем транзакцию
	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Push-уведомления обеим сторонам
	event := websocket.Event{
		Type:    websocket.EventTradeStatus,
		TradeID: trade.ID.String(),
	}
	s.wsManager.SendToUser(trade.ProposerID.String(), event)
	s.wsManager.SendToUser(offerOwnerID.String(), event)

	return c.JSON(fiber.Map{
		"success":  true,
		"trade_id": trade.ID,
		"status":   requestData.Status,
	})
}

// acceptTrade выполняет принятие предложения внутри открытой транзакции
func (s *TradeService) acceptTrade(ctx context.Context, tx pgx.Tx, trade *models.ProposedTrade, offerOwnerID uuid.UUID) (int, fiber.Map) {
	// Смена статуса. Частичный уникальный индекс по offer_id гарантирует,
	// что второе конкурентное принятие упадет, а не задублирует.
	_, err := tx.Exec(ctx, `
		UPDATE proposed_trades SET status = 'accepted', updated_at = NOW() WHERE id = $1
	`, trade.ID)

	if err != nil {
		log.Printf("Ошибка принятия предложения: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка обновления статуса предложения"}
	}

	_, err = tx.Exec(ctx, `
		UPDATE offers SET accepted_trade_id = $1, updated_at = NOW() WHERE id = $2
	`, trade.ID, trade.OfferID)

	if err != nil {
		log.Printf("Ошибка обновления объявления: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка обновления объявления"}
	}

	// Системное сообщение в выигравшую переписку
	if err := insertSystemMessage(ctx, tx, trade.OfferID, trade.ID, nil,
		"Предложение обмена принято. Договоритесь о передаче вещей."); err != nil {
		log.Printf("Ошибка создания системного сообщения: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка создания сообщения"}
	}

	// Остальные ожидающие предложения получают уведомление о недоступности
	rows, err := tx.Query(ctx, `
		SELECT id, proposer_id FROM proposed_trades
		WHERE offer_id = $1 AND id != $2 AND status = 'pending'
	`, trade.OfferID, trade.ID)

	if err != nil {
		log.Printf("Ошибка запроса остальных предложений: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка обновления предложений"}
	}

	type siblingTrade struct {
		id         uuid.UUID
		proposerID uuid.UUID
	}

	var siblings []siblingTrade
	for rows.Next() {
		var st siblingTrade
		if err := rows.Scan(&st.id, &st.proposerID); err != nil {
			log.Printf("Ошибка сканирования предложения: %v", err)
			continue
		}
		siblings = append(siblings, st)
	}
	rows.Close()

	for _, st := range siblings {
		if err := insertSystemMessage(ctx, tx, trade.OfferID, st.id, &st.proposerID,
			"Владелец принял другое предложение — вещь больше недоступна."); err != nil {
			log.Printf("Ошибка создания системного сообщения: %v", err)
			return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка создания сообщения"}
		}
	}

	// Письма обеим сторонам и задача на извлечение даты встречи —
	// через outbox, сбой любой из них не ломает принятие
	notifications := []fiber.Map{
		{"template": "trade_accepted", "user_id": trade.ProposerID, "trade_id": trade.ID},
		{"template": "trade_accepted", "user_id": offerOwnerID, "trade_id": trade.ID},
	}
	for _, n := range notifications {
		if err := enqueueOutbox(ctx, tx, "email_notification", n); err != nil {
			log.Printf("Ошибка постановки уведомления в очередь: %v", err)
		}
	}

	if err := enqueueOutbox(ctx, tx, "exchange_date", fiber.Map{"trade_id": trade.ID}); err != nil {
		log.Printf("Ошибка постановки задачи извлечения даты: %v", err)
	}

	return 0, nil
}

// unacceptTrade возвращает принятое предложение в ожидание
func (s *TradeService) unacceptTrade(ctx context.Context, tx pgx.Tx, trade *models.ProposedTrade) (int, fiber.Map) {
	_, err := tx.Exec(ctx, `
		UPDATE proposed_trades SET status = 'pending', updated_at = NOW() WHERE id = $1
	`, trade.ID)

	if err != nil {
		log.Printf("Ошибка возврата предложения в ожидание: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка обновления статуса предложения"}
	}

	_, err = tx.Exec(ctx, `
		UPDATE offers SET accepted_trade_id = NULL, updated_at = NOW() WHERE id = $1
	`, trade.OfferID)

	if err != nil {
		log.Printf("Ошибка обновления объявления: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка обновления объявления"}
	}

	if err := insertSystemMessage(ctx, tx, trade.OfferID, trade.ID, nil,
		"Владелец отменил принятие предложения. Предложение снова в ожидании."); err != nil {
		log.Printf("Ошибка создания системного сообщения: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка создания сообщения"}
	}

	return 0, nil
}

// closeTrade переводит предложение в терминальный статус rejected/withdrawn
// и освобождает заблокированную вещь автора предложения
func (s *TradeService) closeTrade(ctx context.Context, tx pgx.Tx, trade *models.ProposedTrade, newStatus string, offerOwnerID uuid.UUID) (int, fiber.Map) {
	_, err := tx.Exec(ctx, `
		UPDATE proposed_trades SET status = $1, updated_at = NOW() WHERE id = $2
	`, newStatus, trade.ID)

	if err != nil {
		log.Printf("Ошибка обновления статуса предложения: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка обновления статуса предложения"}
	}

	// Вещь автора предложения больше не зарезервирована под этот обмен
	if trade.OfferedItemInstanceID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE item_instances SET is_available = true, updated_at = NOW() WHERE id = $1
		`, *trade.OfferedItemInstanceID)

		if err != nil {
			log.Printf("Ошибка освобождения вещи: %v", err)
			return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка освобождения вещи"}
		}
	}

	var content string
	var recipientID *uuid.UUID
	if newStatus == models.TradeStatusRejected {
		content = "Владелец отклонил предложение обмена."
		recipientID = &trade.ProposerID
	} else {
		content = "Автор отозвал свое предложение обмена."
		recipientID = &offerOwnerID
	}

	if err := insertSystemMessage(ctx, tx, trade.OfferID, trade.ID, recipientID, content); err != nil {
		log.Printf("Ошибка создания системного сообщения: %v", err)
		return fiber.StatusInternalServerError, fiber.Map{"error": "Ошибка создания сообщения"}
	}

	return 0, nil
}

// SetGiftMode переводит принятый обмен в режим подарка: автор предложения
// освобождается от обязанности передать встречную вещь
func (s *TradeService) SetGiftMode(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	tradeUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения обмена"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	var trade models.ProposedTrade
	var offerOwnerID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT t.id, t.offer_id, t.proposer_id, t.offered_item_instance_id, t.is_gift_mode, t.status, o.user_id
		FROM proposed_trades t
		JOIN offers o ON o.id = t.offer_id
		WHERE t.id = $1
		FOR UPDATE OF t
	`, tradeUUID).Scan(
		&trade.ID, &trade.OfferID, &trade.ProposerID, &trade.OfferedItemInstanceID,
		&trade.IsGiftMode, &trade.Status, &offerOwnerID,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено"})
		}
		log.Printf("Ошибка запроса предложения обмена: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предложения обмена"})
	}

	if offerOwnerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Только владелец объявления может подарить вещь"})
	}

	if trade.Status != models.TradeStatusAccepted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Подарить можно только по принятому предложению"})
	}

	if trade.IsGiftMode {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Обмен уже переведен в режим подарка"})
	}

	_, err = tx.Exec(ctx, `
		UPDATE proposed_trades SET is_gift_mode = true, updated_at = NOW() WHERE id = $1
	`, trade.ID)

	if err != nil {
		log.Printf("Ошибка перевода в режим подарка: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления предложения"})
	}

	// Встречная вещь автора предложения больше не нужна — освобождаем
	if trade.OfferedItemInstanceID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE item_instances SET is_available = true, updated_at = NOW() WHERE id = $1
		`, *trade.OfferedItemInstanceID)

		if err != nil {
			log.Printf("Ошибка освобождения вещи: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка освобождения вещи"})
		}
	}

	if err := insertSystemMessage(ctx, tx, trade.OfferID, trade.ID, nil,
		"Владелец решил подарить вещь — встречная передача не требуется."); err != nil {
		log.Printf("Ошибка создания системного сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания сообщения"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	s.wsManager.SendToUser(trade.ProposerID.String(), websocket.Event{
		Type:    websocket.EventTradeStatus,
		TradeID: trade.ID.String(),
	})

	return c.JSON(fiber.Map{
		"success":  true,
		"trade_id": trade.ID,
		"message":  "Обмен переведен в режим подарка",
	})
}
