package review

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/swapmap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API отзывов
func (s *ReviewService) SetupRoutes(app *fiber.App) {
	// Отзыв привязан к предложению обмена
	trades := app.Group("/api/trades")
	trades.Use(middleware.AuthMiddleware(s.jwtService))
	trades.Post("/:id/reviews", s.SubmitReview)

	// Список отзывов о пользователе
	users := app.Group("/api/users")
	users.Use(middleware.AuthMiddleware(s.jwtService))
	users.Get("/:id/reviews", s.GetUserReviews)
}
