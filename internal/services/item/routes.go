package item

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/swapmap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API вещей
func (s *ItemService) SetupRoutes(app *fiber.App) {
	// Группа для API вещей
	api := app.Group("/api/items")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для добавления вещи в инвентарь
	api.Post("/", s.CreateItem)

	// Маршрут для получения своего инвентаря
	api.Get("/", s.GetMyItems)

	// Маршрут для передачи вещи другому пользователю
	api.Post("/transfer", s.TransferItem)

	// Маршрут для получения журнала передач вещи
	api.Get("/:id/history", s.GetItemHistory)
}
