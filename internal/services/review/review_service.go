package review

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapmap-api/internal/config"
	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/models"
	"github.com/rajivgeraev/swapmap-api/internal/services/moderation"
	"github.com/rajivgeraev/swapmap-api/internal/utils"
)

// ReviewService представляет сервис для работы с отзывами
type ReviewService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	moderation *moderation.ModerationService
}

// NewReviewService создает новый экземпляр ReviewService
func NewReviewService(cfg *config.Config, mod *moderation.ModerationService) *ReviewService {
	return &ReviewService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		moderation: mod,
	}
}

// SubmitReview создает или редактирует отзыв по принятому обмену.
// Отзыв и пересчет репутации получателя выполняются одной транзакцией.
func (s *ReviewService) SubmitReview(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	reviewerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	tradeUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения обмена"})
	}

	var requestData struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Rating < 1 || requestData.Rating > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Оценка должна быть от 1 до 5"})
	}

	if ok, reason := s.moderation.Validate(requestData.Comment, "comment"); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	// Отзывы разрешены только участникам принятого обмена
	var proposerID, ownerID uuid.UUID
	var tradeStatus string
	err = tx.QueryRow(ctx, `
		SELECT t.proposer_id, o.user_id, t.status
		FROM proposed_trades t
		JOIN offers o ON o.id = t.offer_id
		WHERE t.id = $1
	`, tradeUUID).Scan(&proposerID, &ownerID, &tradeStatus)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Предложение обмена не найдено"})
		}
		log.Printf("Ошибка запроса предложения обмена: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения предложения обмена"})
	}

	if tradeStatus != models.TradeStatusAccepted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Отзыв можно оставить только по принятому обмену"})
	}

	var revieweeID uuid.UUID
	switch reviewerID {
	case proposerID:
		revieweeID = ownerID
	case ownerID:
		revieweeID = proposerID
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы не участвуете в этом обмене"})
	}

	// Повторная отправка редактирует существующий отзыв
	var review models.Review
	err = tx.QueryRow(ctx, `
		INSERT INTO reviews (proposed_trade_id, reviewer_id, reviewee_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (proposed_trade_id, reviewer_id) DO UPDATE
		SET rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			is_edited = true,
			updated_at = NOW()
		RETURNING id, proposed_trade_id, reviewer_id, reviewee_id, rating, comment, is_edited, created_at, updated_at
	`, tradeUUID, reviewerID, revieweeID, requestData.Rating, requestData.Comment).Scan(
		&review.ID,
		&review.ProposedTradeID,
		&review.ReviewerID,
		&review.RevieweeID,
		&review.Rating,
		&review.Comment,
		&review.IsEdited,
		&review.CreatedAt,
		&review.UpdatedAt,
	)

	if err != nil {
		log.Printf("Ошибка сохранения отзыва: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения отзыва"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Пересчет репутации носит справочный характер: его сбой не
	// отменяет уже сохраненный отзыв
	if err := recomputeReputation(ctx, revieweeID); err != nil {
		log.Printf("Ошибка пересчета репутации пользователя %s: %v", revieweeID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"review":  review,
	})
}

// recomputeReputation пересчитывает взвешенную репутацию пользователя
// по всем полученным отзывам
func recomputeReputation(ctx context.Context, userID uuid.UUID) error {
	rows, err := db.Pool.Query(ctx, `
		SELECT r.rating, u.reputation_score, u.review_count
		FROM reviews r
		JOIN users u ON u.id = r.reviewer_id
		WHERE r.reviewee_id = $1
	`, userID)

	if err != nil {
		return err
	}
	defer rows.Close()

	var samples []RatingSample
	for rows.Next() {
		var sample RatingSample
		if err := rows.Scan(&sample.Rating, &sample.ReviewerScore, &sample.ReviewerReviewNum); err != nil {
			return err
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	score := ComputeReputation(samples)

	_, err = db.Pool.Exec(ctx, `
		UPDATE users SET reputation_score = $1, review_count = $2, updated_at = NOW() WHERE id = $3
	`, score, len(samples), userID)
	return err
}

// GetUserReviews возвращает отзывы о пользователе.
// Отзыв по обмену виден только тому, кто сам оставил отзыв по этому
// обмену: автор видит свой, а получатель — после встречного отзыва.
// Односторонний отзыв до взаимного раскрытия не показывается никому.
func (s *ReviewService) GetUserReviews(c fiber.Ctx) error {
	requesterID := c.Locals("userID").(string)
	if requesterID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	requesterUUID, err := uuid.Parse(requesterID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	revieweeUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Запрашивающий должен сам иметь отзыв по тому же обмену
	rows, err := db.Pool.Query(ctx, `
		SELECT r.id, r.proposed_trade_id, r.reviewer_id, r.reviewee_id,
			   r.rating, r.comment, r.is_edited, r.created_at, r.updated_at
		FROM reviews r
		WHERE r.reviewee_id = $1
		  AND EXISTS (
			SELECT 1 FROM reviews own
			WHERE own.proposed_trade_id = r.proposed_trade_id
			  AND own.reviewer_id = $2
		  )
		ORDER BY r.created_at DESC
	`, revieweeUUID, requesterUUID)

	if err != nil {
		log.Printf("Ошибка запроса отзывов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения отзывов"})
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(
			&review.ID,
			&review.ProposedTradeID,
			&review.ReviewerID,
			&review.RevieweeID,
			&review.Rating,
			&review.Comment,
			&review.IsEdited,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		review.Reviewer = getReviewerSummary(ctx, review.ReviewerID)
		reviews = append(reviews, review)
	}

	return c.JSON(fiber.Map{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// getReviewerSummary получает краткую информацию об авторе отзыва
func getReviewerSummary(ctx context.Context, userID uuid.UUID) *models.User {
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
