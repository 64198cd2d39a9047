package auth

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/swapmap-api/internal/middleware"
)

// SetupRoutes регистрирует маршруты в Fiber
func (s *AuthService) SetupRoutes(app *fiber.App) {
	app.Post("/api/auth/telegram", s.TelegramAuthHandler)

	// Защищенные маршруты
	protected := app.Group("/api")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	// Профиль текущего пользователя
	protected.Get("/profile", s.GetProfile)
	protected.Put("/profile", s.UpdateProfile)

	// Публичный профиль пользователя
	protected.Get("/users/:id", s.GetUser)
}
