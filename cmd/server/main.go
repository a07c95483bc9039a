package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rdsxdev/misinfo-bot/internal/config"
	"github.com/rdsxdev/misinfo-bot/internal/gemini"
	"github.com/rdsxdev/misinfo-bot/internal/handler"
	"github.com/rdsxdev/misinfo-bot/internal/llm"
	"github.com/rdsxdev/misinfo-bot/internal/repository"
	"github.com/rdsxdev/misinfo-bot/internal/service"
	"github.com/rdsxdev/misinfo-bot/internal/twilio"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting WhatsApp misinformation bot...")

	// Load local .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("configs/config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize explanation providers with rate limiting and fallback
	llmClient, err := llm.NewFallbackClient(llm.FallbackConfig{
		Providers:   cfg.Providers,
		MaxFailures: cfg.MaxFailuresBeforeSwitch,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize explanation providers", zap.Error(err))
	}
	defer llmClient.Close()

	// Dedicated Gemini handle for image text extraction
	extractor, err := gemini.NewClient(geminiConfig(cfg.Providers), logger)
	if err != nil {
		logger.Fatal("Failed to initialize text extraction client", zap.Error(err))
	}
	defer extractor.Close()

	// Messaging client; missing credentials surface on the first call
	messenger := twilio.NewClient(twilio.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.WhatsAppFrom,
	}, logger)

	// Record store; unavailability degrades to skipped log writes
	os.MkdirAll("./data", 0755)

	var store service.RecordStore
	var records handler.RecordReader
	repo, err := repository.NewMessageRepository(cfg.Database.Path, logger)
	if err != nil {
		logger.Error("Record store unavailable, log writes will be skipped", zap.Error(err))
	} else {
		defer repo.Close()
		store = repo
		records = repo
	}

	orchestrator := service.NewOrchestrator(llmClient, extractor, messenger, messenger, store, logger)

	apiHandler := handler.NewHandler(orchestrator, records, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.Use(handler.RequestLogger(logger))

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	apiHandler.RegisterRoutes(router)

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	modelInfo := llmClient.GetModelInfo()
	modelName := "unknown"
	if m, ok := modelInfo["model"].(string); ok {
		modelName = m
	}

	logger.Info("WhatsApp misinformation bot is running",
		zap.String("port", cfg.Server.Port),
		zap.String("model", modelName))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// geminiConfig picks the configured Gemini provider for the extraction
// client, falling back to the GEMINI_API_KEY environment variable.
func geminiConfig(providers []llm.ProviderConfig) gemini.Config {
	for _, p := range providers {
		if p.Type == llm.ProviderGemini {
			return gemini.Config{
				APIKey:     p.APIKey,
				ModelName:  p.ModelName,
				MaxRetries: p.MaxRetries,
				RetryDelay: p.RetryDelay,
			}
		}
	}
	return gemini.Config{APIKey: os.Getenv("GEMINI_API_KEY")}
}
