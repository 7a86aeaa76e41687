package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"stockledger-service/internal/config"
	"stockledger-service/internal/events"
	"stockledger-service/internal/handlers"
	"stockledger-service/internal/ledger"
	"stockledger-service/internal/middleware"
	"stockledger-service/internal/models"
	"stockledger-service/internal/repository"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logrus logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.StorageLocation{},
		&models.StockItem{},
		&models.InventoryTransaction{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize NATS event publisher (optional - graceful degradation if NATS unavailable)
	var notifier ledger.Notifier
	if cfg.NATSURL != "" {
		eventPublisher, err := events.NewStockEventPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("Warning: Failed to initialize NATS event publisher: %v", err)
			log.Println("Continuing without event publishing...")
		} else {
			log.Println("✓ Connected to NATS JetStream for event publishing")
			defer eventPublisher.Close()
			notifier = eventPublisher
		}
	} else {
		log.Println("NATS_URL not configured, event publishing disabled")
	}

	// Initialize optional Redis read cache
	redisClient := config.InitRedis(cfg)
	if redisClient != nil {
		log.Println("✓ Redis read cache enabled")
		defer redisClient.Close()
	}

	// Initialize repository and ledger services
	repo := repository.NewLedgerRepository(db, redisClient)
	ledgerService := ledger.NewService(repo, notifier)
	reversalEngine := ledger.NewReversalEngine(repo, notifier)

	// Initialize handlers
	ledgerHandler := handlers.NewLedgerHandler(repo, ledgerService, reversalEngine)
	importHandler := handlers.NewImportHandler(repo, ledgerService)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)
	router.GET("/health/extended", ledgerHandler.ExtendedHealthCheck)

	api := router.Group("/api/v1")

	// Stock item routes
	items := api.Group("/items")
	{
		items.POST("", ledgerHandler.RegisterItem)
		items.GET("", ledgerHandler.ListItems)
		items.GET("/:id", ledgerHandler.GetItem)
		items.DELETE("/:id", ledgerHandler.DeactivateItem)
		items.GET("/:id/transactions", ledgerHandler.ListItemTransactions)
	}

	// Storage location routes
	locations := api.Group("/locations")
	{
		locations.POST("", ledgerHandler.CreateLocation)
		locations.GET("", ledgerHandler.ListLocations)
		locations.GET("/:id", ledgerHandler.GetLocation)
		locations.GET("/:id/utilization", ledgerHandler.GetUtilization)
	}

	// Stock movement routes
	stock := api.Group("/stock")
	{
		stock.POST("/adjust", ledgerHandler.AdjustStock)
		stock.GET("/low", ledgerHandler.GetLowStockItems)
		stock.GET("/import/template", importHandler.GetImportTemplate)
		stock.POST("/import", importHandler.ImportStockMovements)
	}

	// Transaction routes
	transactions := api.Group("/transactions")
	{
		transactions.GET("/:id", ledgerHandler.GetTransaction)
		transactions.POST("/:id/reverse", ledgerHandler.ReverseTransaction)
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Stock ledger service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down stockledger-service...")
	log.Println("Stock ledger service stopped")
}
