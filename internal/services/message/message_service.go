package message

import (
	"context"
	"encoding/json"
	"log"
	"time"

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

// MessageService представляет сервис для работы с перепиской по обменам
type MessageService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	moderation *moderation.ModerationService
	wsManager  *websocket.Manager
}

// NewMessageService создает новый экземпляр MessageService
func NewMessageService(cfg *config.Config, mod *moderation.ModerationService, wsManager *websocket.Manager) *MessageService {
	return &MessageService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		moderation: mod,
		wsManager:  wsManager,
	}
}

// conversationParticipants возвращает автора предложения и владельца объявления
func conversationParticipants(ctx context.Context, tradeID uuid.UUID) (proposerID, ownerID, offerID uuid.UUID, err error) {
	err = db.Pool.QueryRow(ctx, `
		SELECT t.proposer_id, o.user_id, o.id
		FROM proposed_trades t
		JOIN offers o ON o.id = t.offer_id
		WHERE t.id = $1
	`, tradeID).Scan(&proposerID, &ownerID, &offerID)
	return
}

// GetMessages возвращает сообщения переписки по предложению обмена.
// Параметр after принимает время в формате RFC3339 и используется
// клиентом для поллинга сообщений новее последнего известного.
func (s *MessageService) GetMessages(c fiber.Ctx) error {
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

	proposerID, ownerID, _, err := conversationParticipants(ctx, tradeUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено"})
		}
		log.Printf("Ошибка запроса переписки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения переписки"})
	}

	if userUUID != proposerID && userUUID != ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не участвуете в этой переписке"})
	}

	// Адресные системные сообщения видит только их получатель
	query := `
		SELECT id, offer_id, proposed_trade_id, sender_id, recipient_id, content, is_read, created_at
		FROM messages
		WHERE proposed_trade_id = $1
		  AND (sender_id = $2 OR recipient_id = $2 OR recipient_id IS NULL)
	`
	args := []interface{}{tradeUUID, userUUID}

	// Курсор поллинга: только сообщения новее указанного времени
	if after := c.Query("after"); after != "" {
		afterTime, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат курсора, ожидается время RFC3339"})
		}
		query += ` AND created_at > $3`
		args = append(args, afterTime)
	}

	query += ` ORDER BY created_at ASC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Ошибка запроса сообщений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщений"})
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.OfferID,
			&msg.ProposedTradeID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.Content,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования сообщения: %v", err)
			continue
		}

		msg.IsSystem = msg.SenderID == nil
		messages = append(messages, msg)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// SendMessage отправляет сообщение в переписку по предложению обмена
func (s *MessageService) SendMessage(c fiber.Ctx) error {
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

	var requestData struct {
		Content string `json:"content"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Сообщение не может быть пустым"})
	}

	// Проверяем текст через модерацию
	if ok, reason := s.moderation.Validate(requestData.Content, "message"); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	proposerID, ownerID, offerID, err := conversationParticipants(ctx, tradeUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено"})
		}
		log.Printf("Ошибка запроса переписки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения переписки"})
	}

	if userUUID != proposerID && userUUID != ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не участвуете в этой переписке"})
	}

	recipientID := proposerID
	if userUUID == proposerID {
		recipientID = ownerID
	}

	var msg models.Message
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO messages (offer_id, proposed_trade_id, sender_id, recipient_id, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, offer_id, proposed_trade_id, sender_id, recipient_id, content, is_read, created_at
	`, offerID, tradeUUID, userUUID, recipientID, requestData.Content).Scan(
		&msg.ID,
		&msg.OfferID,
		&msg.ProposedTradeID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&msg.IsRead,
		&msg.CreatedAt,
	)

	if err != nil {
		log.Printf("Ошибка сохранения сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка отправки сообщения"})
	}

	// Письмо получателю уходит через outbox, сбой очереди не
	// отменяет уже отправленное сообщение
	if err := enqueueEmailNotification(ctx, recipientID, tradeUUID); err != nil {
		log.Printf("Ошибка постановки уведомления в очередь: %v", err)
	}

	// Push-уведомление получателю
	s.wsManager.SendToConversation(tradeUUID.String(), websocket.Event{
		Type:      websocket.EventNewMessage,
		TradeID:   tradeUUID.String(),
		MessageID: msg.ID.String(),
		UserID:    userID,
	}, userID)
	s.wsManager.BroadcastUnreadCounts(recipientID.String(), countUnreadConversations(ctx, recipientID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

// MarkMessagesRead отмечает все входящие сообщения переписки прочитанными
func (s *MessageService) MarkMessagesRead(c fiber.Ctx) error {
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

	proposerID, ownerID, _, err := conversationParticipants(ctx, tradeUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено"})
		}
		log.Printf("Ошибка запроса переписки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения переписки"})
	}

	if userUUID != proposerID && userUUID != ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не участвуете в этой переписке"})
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE messages SET is_read = true
		WHERE proposed_trade_id = $1 AND recipient_id = $2 AND is_read = false
	`, tradeUUID, userUUID)

	if err != nil {
		log.Printf("Ошибка отметки сообщений прочитанными: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления сообщений"})
	}

	// Уведомляем собеседника, что его сообщения прочитаны
	if tag.RowsAffected() > 0 {
		s.wsManager.SendToConversation(tradeUUID.String(), websocket.Event{
			Type:    websocket.EventMessageRead,
			TradeID: tradeUUID.String(),
			UserID:  userID,
		}, userID)
	}
	s.wsManager.BroadcastUnreadCounts(userID, countUnreadConversations(ctx, userUUID))

	return c.JSON(fiber.Map{
		"success": true,
		"updated": tag.RowsAffected(),
	})
}

// DeleteMessage удаляет свое сообщение из переписки.
// Системные сообщения удалить нельзя.
func (s *MessageService) DeleteMessage(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	messageUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID сообщения"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var senderID *uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		SELECT sender_id FROM messages WHERE id = $1
	`, messageUUID).Scan(&senderID)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Сообщение не найдено"})
		}
		log.Printf("Ошибка запроса сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщения"})
	}

	if senderID == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Системные сообщения нельзя удалять"})
	}

	if *senderID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Можно удалять только свои сообщения"})
	}

	_, err = db.Pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageUUID)
	if err != nil {
		log.Printf("Ошибка удаления сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления сообщения"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// enqueueEmailNotification ставит письмо о новом сообщении в очередь outbox
func enqueueEmailNotification(ctx context.Context, recipientID, tradeID uuid.UUID) error {
	payload, err := json.Marshal(fiber.Map{
		"template": "new_message",
		"user_id":  recipientID,
		"trade_id": tradeID,
	})
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO outbox (topic, payload) VALUES ('email_notification', $1)
	`, payload)
	return err
}

// countUnreadConversations считает переписки с непрочитанными сообщениями
func countUnreadConversations(ctx context.Context, userID uuid.UUID) int {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT proposed_trade_id)
		FROM messages
		WHERE recipient_id = $1 AND is_read = false
	`, userID).Scan(&count)

	if err != nil {
		log.Printf("Ошибка подсчета непрочитанных переписок: %v", err)
		return 0
	}

	return count
}
