package main

import (
	"context"
	"log"
	"net/http"

	config "storeops-api/configs"
	"storeops-api/pkg/copilot"
	"storeops-api/pkg/handlers"
	"storeops-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.LoadConfig()

	r := gin.Default()

	// Services.
	monitoringService := services.NewMonitoringService()
	azureOpenAIService := services.NewAzureOpenAIService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIAPIKey,
		cfg.AzureOpenAIAPIVersion,
		cfg.AzureOpenAIChatDeploymentName,
		cfg.AzureOpenAIEmbeddingDeploymentName,
	)

	storeService, err := services.NewStoreService(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to the store database: %v", err)
	}
	defer storeService.Close()

	// The vector store is optional: without it the copilot answers without
	// policy snippets.
	var vectorStoreService *services.VectorStoreService
	if vs, err := services.NewVectorStoreService(azureOpenAIService, cfg.QdrantURL, cfg.QdrantAPIKey); err != nil {
		log.Printf("Warning: vector store unavailable, policy retrieval disabled: %v", err)
	} else {
		vectorStoreService = vs
	}

	// Copilot pipeline: model-backed classification falling back to
	// heuristics, and model-backed composition falling back to templates.
	heuristic := copilot.HeuristicClassifier{}
	var classifier copilot.Classifier = heuristic
	var writer copilot.AnswerWriter
	if azureOpenAIService.Ready() {
		classifier = copilot.NewFallbackClassifier(copilot.NewModelClassifier(azureOpenAIService), heuristic)
		writer = azureOpenAIService
	} else {
		log.Println("Azure OpenAI not configured; copilot runs on heuristics and template answers")
	}

	var retriever copilot.Retriever
	if vectorStoreService != nil {
		retriever = vectorStoreService
	}

	pipeline := copilot.NewPipeline(
		classifier,
		storeService,
		copilot.NewForecastEngine(storeService),
		retriever,
		copilot.NewComposer(writer),
	)

	// Handlers.
	copilotHandler := handlers.NewCopilotHandler(pipeline)
	storeHandler := handlers.NewStoreHandler(storeService)
	adminHandler := handlers.NewAdminHandler(cfg)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// Middleware.
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	r.GET("/health", handlers.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		v1.GET("/info", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"llm_ready":    azureOpenAIService.Ready(),
				"db_ready":     storeService.Ping(c.Request.Context()) == nil,
				"vector_ready": vectorStoreService != nil,
				"environment":  cfg.Environment,
			})
		})

		// Copilot.
		cp := v1.Group("/copilot")
		{
			cp.POST("/ask", copilotHandler.Ask)
		}

		// Customers.
		customers := v1.Group("/customers")
		{
			customers.GET("", storeHandler.ListCustomers)
			customers.POST("", storeHandler.CreateCustomer)
			customers.PUT("/:id", storeHandler.UpdateCustomer)
			customers.DELETE("/:id", storeHandler.DeleteCustomer)
		}

		// Products & inventory.
		products := v1.Group("/products")
		{
			products.GET("", storeHandler.ListProducts)
			products.POST("", storeHandler.CreateProduct)
			products.DELETE("/:sku", storeHandler.DeleteProduct)
		}
		inventory := v1.Group("/inventory")
		{
			inventory.GET("", storeHandler.ListInventory)
			inventory.PUT("/stock/:sku", storeHandler.SetInventoryStock)
			inventory.GET("/out_of_stock", storeHandler.ListOutOfStock)
		}

		// Orders.
		orders := v1.Group("/orders")
		{
			orders.GET("", storeHandler.ListOrders)
			orders.POST("", storeHandler.CreateOrder)
			orders.GET("/:id", storeHandler.GetOrder)
			orders.PUT("/:id/status", storeHandler.UpdateOrderStatus)
			orders.DELETE("/:id", storeHandler.DeleteOrder)
			orders.GET("/:id/status", storeHandler.GetOrderStatus)
		}

		// Analytics.
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/sales/week_over_week", storeHandler.SalesWeekOverWeek)
		}

		// Admin & monitoring.
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	addr := ":" + cfg.Port
	log.Println("Starting StoreOps API server on " + addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
