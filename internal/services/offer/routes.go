package offer

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/swapmap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *OfferService) SetupRoutes(app *fiber.App) {
	// Группа для API объявлений
	api := app.Group("/api/offers")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания объявления
	api.Post("/", s.CreateOffer)

	// Маршрут для получения публичных объявлений
	api.Get("/", s.GetPublicOffers)

	// Маршрут для получения своих объявлений
	api.Get("/my", s.GetMyOffers)

	// Маршрут для получения одного объявления
	api.Get("/:id", s.GetOffer)

	// Маршрут для обновления объявления
	api.Put("/:id", s.UpdateOffer)

	// Маршрут для удаления объявления
	api.Delete("/:id", s.DeleteOffer)
}
