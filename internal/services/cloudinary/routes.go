package cloudinary

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/swapmap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API загрузки изображений
func (s *CloudinaryService) SetupRoutes(app *fiber.App) {
	// Группа для API загрузки
	api := app.Group("/api/upload")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения параметров прямой загрузки
	api.Get("/params", s.GenerateUploadParams)

	// Маршрут для серверной загрузки изображения
	api.Post("/", s.UploadImage)
}
