package trade

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/swapmap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API предложений обмена
func (s *TradeService) SetupRoutes(app *fiber.App) {
	// Группа для API предложений обмена
	api := app.Group("/api/trades")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания предложения обмена
	api.Post("/", s.CreateTrade)

	// Маршрут для получения своих предложений обмена
	api.Get("/", s.GetMyTrades)

	// Маршрут для смены статуса предложения
	api.Put("/:id/status", s.UpdateTradeStatus)

	// Маршрут для перевода обмена в режим подарка
	api.Put("/:id/gift", s.SetGiftMode)
}
