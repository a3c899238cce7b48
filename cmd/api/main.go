package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/archgenie/cloud-architect/internal/auth"
	"github.com/archgenie/cloud-architect/internal/config"
	"github.com/archgenie/cloud-architect/internal/cost"
	"github.com/archgenie/cloud-architect/internal/gateway"
	"github.com/archgenie/cloud-architect/internal/llm"
	"github.com/archgenie/cloud-architect/internal/metrics"
	"github.com/archgenie/cloud-architect/internal/orchestration"
	"github.com/archgenie/cloud-architect/internal/pricing"

	_ "github.com/archgenie/cloud-architect/docs" // swagger docs
)

// @title Cloud Architect API
// @version 1.0
// @description Conversational Azure architecture design backend.
// @description
// @description Turns prompts into sanitized Mermaid diagrams, Terraform and monthly cost
// @description estimates priced against the Azure Retail Prices catalog.

// @contact.name API Support
// @contact.email support@archgenie.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	// Initialize OpenTelemetry
	if err := initTracer(); err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	cfg := config.Load()

	// Connect to PostgreSQL with retry logic
	log.Println("Connecting to PostgreSQL database...")
	var pool *pgxpool.Pool
	var err error

	// Add a retry loop for the initial connection
	for i := 0; i < 10; i++ {
		pool, err = pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(context.Background())
			if err == nil {
				break
			}
		}
		log.Printf("Waiting for database... (attempt %d/10): %v", i+1, err)
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}

	defer pool.Close()
	log.Println("Connected to PostgreSQL database")

	// Pricing and cost estimation
	retailClient := pricing.NewRetailClient()
	resolver := pricing.NewResolver(retailClient, pricing.NewCache(), cfg)
	estimator := cost.NewEstimator(resolver, cfg)

	// Model client and generation pipeline
	llmClient := llm.NewClient(cfg)
	if !llmClient.Configured() {
		log.Printf(`{"level":"warn","message":"Azure OpenAI not configured; generation will fail open=%v"}`, cfg.FailOpen)
	}
	pipeline := orchestration.NewPipeline(llmClient, estimator, cfg)
	service := orchestration.NewService(pool)

	// Initialize JWT manager
	jwtManager, err := auth.NewJWTManager()
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	pipelineMetrics, err := metrics.NewPipelineMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize gateway layer
	handler := gateway.NewHandler(service, pipeline, jwtManager, pool, cfg, pipelineMetrics)
	stream := gateway.NewGenerationStream(service, pipeline, jwtManager)

	// Setup Gin router
	router := gin.Default()

	// Add structured JSON logging middleware
	router.Use(structuredLoggingMiddleware())

	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"model_healthy": llmClient.IsHealthy(c.Request.Context()),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		// Check database connectivity for readiness
		if err := pool.Ping(context.Background()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "database connection failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// API routes
	api := router.Group("/api")

	// Public routes (no authentication required)
	api.POST("/auth/login", handler.Login)
	api.POST("/auth/refresh", handler.RefreshToken)

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API-key protected stateless generation endpoint
	api.POST("/architect", auth.RequireAPIKey(cfg.APIKey), handler.Architect)

	// Protected routes (require JWT authentication)
	protected := api.Group("")
	protected.Use(auth.RequireAuth(jwtManager))

	// User routes
	protected.GET("/auth/me", handler.CurrentUser)

	// Session routes
	protected.POST("/sessions", handler.CreateSession)
	protected.GET("/sessions", handler.ListSessions)
	protected.GET("/sessions/:id", handler.GetSession)
	protected.POST("/sessions/:id/messages", handler.SendMessage)
	protected.POST("/sessions/:id/finalize", handler.FinalizeSession)

	// Code generation routes
	protected.POST("/sessions/:id/generate-code", handler.GenerateCode)
	protected.GET("/sessions/:id/codes", handler.ListCodes)
	protected.GET("/codes/:id", handler.GetCode)

	// Export routes
	protected.GET("/sessions/:id/export/zip", handler.ExportCodeZip)
	protected.GET("/sessions/:id/export/costs.csv", handler.ExportCostsCSV)

	// WebSocket routes (token validated in-handler; browsers cannot set headers)
	api.GET("/ws/sessions/:id/generate", stream.Generate)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls are synchronous
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Cloud Architect API server on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// initTracer initializes OpenTelemetry tracing
func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return nil
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)

		// Get user ID from context if available
		userID, _ := c.Get("user_id")

		// Build log entry
		logEntry := map[string]interface{}{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		// Add user ID if authenticated
		if userID != nil {
			logEntry["user_id"] = userID
		}

		// Add error if present
		if len(c.Errors) > 0 {
			logEntry["errors"] = c.Errors.String()
		}

		// Output as JSON
		logJSON, _ := json.Marshal(logEntry)
		log.Println(string(logJSON))
	}
}
