package main

import (
	"net/http"
	"time"

	"soora-backend/internal/config"
	"soora-backend/internal/database"
	"soora-backend/internal/geocode"
	"soora-backend/internal/handlers"
	"soora-backend/internal/logger"
	"soora-backend/internal/middleware"
	"soora-backend/internal/redis"
	"soora-backend/internal/repository"
	"soora-backend/internal/services"
	"soora-backend/pkg/lalamove"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger.Init(cfg.Environment)
	defer logger.Sync()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("failed to connect to database", zap.Error(err))
	}

	// Initialize Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logger.L().Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// External clients, constructed once and injected
	lalamoveClient := lalamove.NewClient(
		cfg.LalamoveBaseURL,
		cfg.LalamoveAPIKey,
		cfg.LalamoveAPISecret,
		cfg.LalamoveMarket,
	)
	geocoder := geocode.NewClient(cfg.GeocodeBaseURL)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Initialize services
	deliveryService := services.NewDeliveryService(
		lalamoveClient,
		geocoder,
		redisClient,
		orderRepo,
		addressRepo,
		services.StoreConfig{
			Name:    cfg.StoreName,
			Phone:   cfg.StorePhone,
			Address: cfg.StoreAddress,
			Lat:     cfg.StoreLat,
			Lng:     cfg.StoreLng,
			FlatFee: cfg.DeliveryFlatFee,
		},
		time.Duration(cfg.GeocodeCacheTTL)*time.Second,
	)
	orderService := services.NewOrderService(orderRepo, productRepo, addressRepo, userRepo, deliveryService)

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(orderService)
	deliveryHandler := handlers.NewDeliveryHandler(deliveryService)
	paymentHandler := handlers.NewPaymentHandler(orderService, cfg.PaymentWebhookSecret)

	// Setup routes
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"region":    "Singapore",
		})
	})

	// Provider and collaborator webhooks stay outside the rate limiter
	router.POST("/api/delivery/webhook", deliveryHandler.Webhook)
	router.POST("/api/payments/confirm", paymentHandler.Confirm)

	// API endpoints
	api := router.Group("/api", middleware.RateLimit(10, 20))
	{
		api.POST("/orders", orderHandler.CreateOrder)
		api.GET("/orders", orderHandler.ListOrders)
		api.GET("/orders/:id", orderHandler.GetOrder)
		api.PUT("/orders/:id/cancel", orderHandler.CancelOrder)

		api.POST("/delivery/quote", deliveryHandler.Quote)
		api.POST("/delivery/dispatch", deliveryHandler.Dispatch)
		api.GET("/delivery/track/:id", deliveryHandler.Track)
		api.GET("/delivery/driver/:id", deliveryHandler.DriverLocation)
	}

	// Start server
	logger.L().Info("server starting", zap.String("port", cfg.ServerPort))
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		logger.L().Fatal("failed to start server", zap.Error(err))
	}
}
