package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tiemcom/internal/config"
	"tiemcom/internal/handlers"
	"tiemcom/internal/models"
	"tiemcom/internal/repositories"
	"tiemcom/internal/services"
	"tiemcom/pkg/cloudinary"
	"tiemcom/pkg/paypal"
	"tiemcom/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	// --- Database ---
	// TranslateError is required: the order repository relies on
	// gorm.ErrDuplicatedKey to detect UID collisions.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.Food{}, &models.Order{}, &models.OrderItem{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- RabbitMQ ---
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
	}
	defer mqClient.Close() // Ensure the connection is closed on exit

	// --- External Clients ---
	gateway := paypal.NewClient(paypal.Config{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		BusinessName: cfg.BusinessName,
		Timeout:      cfg.PayPalTimeout,
		MaxRetries:   cfg.PayPalMaxRetries,
	})
	imageStore := cloudinary.NewClient(cloudinary.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	})

	// --- Repositories ---
	foodRepo := repositories.NewGORMFoodRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	// --- Services ---
	foodService := services.NewFoodService(foodRepo)
	orderService := services.NewOrderService(orderRepo, foodRepo, gateway, imageStore, mqClient,
		services.OrderConfig{VNDToUSDRate: cfg.VNDToUSDRate})

	// --- Handlers ---
	foodHandler := handlers.NewFoodHandler(foodService)
	orderHandler := handlers.NewOrderHandler(orderService)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(logger.New()) // Request logger

	foodHandler.RegisterRoutes(app)
	orderHandler.RegisterRoutes(app)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Order Event Consumer ---
	// Staff displays and notification senders hang off this queue; here we
	// log the events so a single-process deployment still drains them.
	go func() {
		log.Println("Starting RabbitMQ consumer for order events...")
		messageHandler := func(msg amqp.Delivery) error {
			log.Printf("Received order event (tag %d): %s", msg.DeliveryTag, string(msg.Body))
			return nil
		}
		if consumerErr := mqClient.ConsumeOrderEvents(messageHandler); consumerErr != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
		}
	}()

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
