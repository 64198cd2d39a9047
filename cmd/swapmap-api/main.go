package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/swapmap-api/internal/config"
	"github.com/rajivgeraev/swapmap-api/internal/db"
	"github.com/rajivgeraev/swapmap-api/internal/outbox"
	"github.com/rajivgeraev/swapmap-api/internal/services/auth"
	"github.com/rajivgeraev/swapmap-api/internal/services/cloudinary"
	"github.com/rajivgeraev/swapmap-api/internal/services/geocoder"
	"github.com/rajivgeraev/swapmap-api/internal/services/item"
	"github.com/rajivgeraev/swapmap-api/internal/services/message"
	"github.com/rajivgeraev/swapmap-api/internal/services/moderation"
	"github.com/rajivgeraev/swapmap-api/internal/services/offer"
	"github.com/rajivgeraev/swapmap-api/internal/services/review"
	"github.com/rajivgeraev/swapmap-api/internal/services/trade"
	"github.com/rajivgeraev/swapmap-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Применяем миграции
	if err := db.Migrate(cfg); err != nil {
		log.Fatalf("❌ Ошибка при применении миграций: %v", err)
	}

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "SwapMap API (MVP)",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Общая инфраструктура сервисов
	wsManager := websocket.NewManager()
	defer wsManager.Shutdown()

	geocoderService := geocoder.NewGeocoderService(cfg)
	moderationService := moderation.NewModerationService()

	// Создаём сервисы
	authService := auth.NewAuthService(cfg)
	cloudinaryService := cloudinary.NewCloudinaryService(cfg)
	offerService := offer.NewOfferService(cfg, geocoderService, moderationService)
	tradeService := trade.NewTradeService(cfg, moderationService, wsManager)
	itemService := item.NewItemService(cfg, moderationService)
	messageService := message.NewMessageService(cfg, moderationService, wsManager)
	reviewService := review.NewReviewService(cfg, moderationService)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)
	offerService.SetupRoutes(app)
	tradeService.SetupRoutes(app)
	itemService.SetupRoutes(app)
	messageService.SetupRoutes(app)
	reviewService.SetupRoutes(app)

	// Фоновый воркер отложенных задач (почта, дата встречи)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go outbox.NewWorker(cfg).Start(workerCtx)

	// WebSocket сервер для live-обновлений на отдельном порту
	wsServer := websocket.NewServer(wsManager, authService.GetJWTService())
	go func() {
		if err := wsServer.ListenAndServe(":8081"); err != nil {
			log.Printf("❌ Ошибка WebSocket сервера: %v", err)
		}
	}()

	// Запускаем сервер
	log.Println("✅ SwapMap API запущен на порту 8080")
	log.Fatal(app.Listen(":8080"))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
