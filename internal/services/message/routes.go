package message

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/swapmap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API переписки
func (s *MessageService) SetupRoutes(app *fiber.App) {
	// Переписка живет внутри предложения обмена
	trades := app.Group("/api/trades")
	trades.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения сообщений переписки
	trades.Get("/:id/messages", s.GetMessages)

	// Маршрут для отправки сообщения
	trades.Post("/:id/messages", s.SendMessage)

	// Маршрут для отметки сообщений прочитанными
	trades.Put("/:id/messages/read", s.MarkMessagesRead)

	// Удаление отдельного сообщения
	msgs := app.Group("/api/messages")
	msgs.Use(middleware.AuthMiddleware(s.jwtService))
	msgs.Delete("/:id", s.DeleteMessage)
}
