// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/iyusef/go-chatstream/internal/cache"
	"github.com/iyusef/go-chatstream/internal/config"
	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/events"
	"github.com/iyusef/go-chatstream/internal/handlers"
	"github.com/iyusef/go-chatstream/internal/middleware"
	"github.com/iyusef/go-chatstream/internal/ratelimit"
	chatrepo "github.com/iyusef/go-chatstream/internal/repository/chat"
	messagerepo "github.com/iyusef/go-chatstream/internal/repository/message"
	usagerepo "github.com/iyusef/go-chatstream/internal/repository/usage"
	userrepo "github.com/iyusef/go-chatstream/internal/repository/user"
	"github.com/iyusef/go-chatstream/internal/services"
	"github.com/iyusef/go-chatstream/internal/services/ai"
	chatsvc "github.com/iyusef/go-chatstream/internal/services/chat"
	"github.com/iyusef/go-chatstream/internal/services/memory"
	"github.com/iyusef/go-chatstream/internal/services/vector"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
}

func main() {
	cfg := config.Load()
	logger := services.NewLogger("chatstream")

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.Chat{}, &domain.Message{}, &domain.UsageRecord{}); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Change bus and cache ---
	bus := events.NewBus()

	var listCache *cache.ChatListCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		listCache = cache.NewChatListCache(redisClient, bus, logger)
		logger.Info("Chat list cache enabled", "addr", cfg.RedisAddr)
	}

	// --- Repositories ---
	chatRepo := chatrepo.NewChatRepository(db, bus)
	messageRepo := messagerepo.NewMessageRepository(db, bus)
	usageRepo := usagerepo.NewUsageRepository(db)
	userRepo := userrepo.NewUserRepository(db)

	// --- AI provider ---
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenRouterAPIKey
	aiConfig.BaseURL = cfg.OpenRouterBaseURL
	aiConfig.DefaultModel = cfg.DefaultChatModel
	aiConfig.EmbeddingKey = cfg.EmbeddingAPIKey
	aiConfig.EmbeddingBaseURL = cfg.EmbeddingBaseURL
	aiConfig.EmbeddingModel = cfg.EmbeddingModelName
	if err := aiConfig.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid AI configuration: %v", err)
	}
	provider := ai.NewOpenRouterProvider(aiConfig)
	catalog := ai.NewModelCatalog(aiConfig.DefaultModel, logger)

	if !provider.IsConfigured() {
		logger.Warn("OPENROUTER_API_KEY not set; messages will be accepted but not generated")
	}

	// --- Optional memory and vector collaborators ---
	var (
		memoryUpdater chatsvc.MemoryUpdater
		memoryFetcher chatsvc.MemoryFetcher
		memoryCleaner chatsvc.MemoryCleaner
	)
	if cfg.MemoryAPIURL != "" {
		memoryConfig := memory.DefaultConfig()
		memoryConfig.APIURL = cfg.MemoryAPIURL
		memoryConfig.APIKey = cfg.MemoryAPIKey
		client, err := memory.NewClient(memoryConfig, logger)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize memory service: %v", err)
		}
		memoryUpdater, memoryFetcher, memoryCleaner = client, client, client
	}

	var (
		vectorIndexer chatsvc.VectorIndexer
		vectorCleaner chatsvc.VectorCleaner
	)
	if cfg.PineconeAPIKey != "" && cfg.PineconeIndexHost != "" {
		vectorConfig := vector.DefaultConfig()
		vectorConfig.APIKey = cfg.PineconeAPIKey
		vectorConfig.IndexHost = cfg.PineconeIndexHost
		vectorConfig.Namespace = cfg.PineconeNamespace
		svc, err := vector.NewService(vectorConfig, provider, logger)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize vector service: %v", err)
		}
		vectorIndexer, vectorCleaner = svc, svc
	}

	// --- Chat services ---
	chatConfig := chatsvc.DefaultConfig()
	chatConfig.MaxConcurrent = int64(cfg.MaxConcurrentGenerations)
	chatConfig.RateLimitAttempts = cfg.AIRateLimit
	chatConfig.RateLimitWindow = time.Duration(cfg.AIRateWindowMinutes) * time.Minute
	if err := chatConfig.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid chat configuration: %v", err)
	}

	generationLimiter := ratelimit.NewMemoryRateLimiter(
		ratelimit.GenerationConfig(chatConfig.RateLimitAttempts, chatConfig.RateLimitWindow))
	defer generationLimiter.Close()

	fanout := chatsvc.NewFanout(usageRepo, userRepo, memoryUpdater, vectorIndexer, catalog, logger)
	worker := chatsvc.NewWorker(chatRepo, messageRepo, userRepo, provider, catalog, generationLimiter, memoryFetcher, fanout, chatConfig, logger)
	dispatcher := chatsvc.NewDispatcher(chatConfig.MaxConcurrent, logger)
	pipeline := chatsvc.NewPipeline(chatRepo, messageRepo, provider, catalog, dispatcher, worker, logger)
	publisher := chatsvc.NewPublisher(messageRepo, chatConfig, logger)
	chatService := chatsvc.NewService(chatRepo, messageRepo, catalog, memoryCleaner, vectorCleaner, logger)

	// --- Handlers ---
	chatHandler := handlers.NewChatHandler(chatService, pipeline, publisher, listCache)
	usageHandler := handlers.NewUsageHandler(usageRepo)

	// --- Router Setup ---
	r := mux.NewRouter()
	authMiddleware := middleware.NewJWTMiddleware([]byte(cfg.JWTSecretKey))
	apiLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultAPIConfig())
	defer apiLimiter.Close()

	r.Use(corsMiddleware)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)
	api.Use(middleware.RateLimitMiddleware(apiLimiter, "api"))

	api.HandleFunc("/chats", chatHandler.ListChats).Methods("GET")
	api.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	api.HandleFunc("/chats/{id}", chatHandler.GetChat).Methods("GET")
	api.HandleFunc("/chats/{id}", chatHandler.DeleteChat).Methods("DELETE")
	api.HandleFunc("/chats/{id}/messages", chatHandler.GetChatMessages).Methods("GET")
	api.HandleFunc("/chats/{id}/messages", chatHandler.SendMessage).Methods("POST")
	api.HandleFunc("/chats/{id}/messages/{messageID}", chatHandler.EditMessage).Methods("PUT")
	api.HandleFunc("/chats/{id}/messages/{messageID}/regenerate", chatHandler.RegenerateMessage).Methods("POST")
	api.HandleFunc("/chats/{id}/messages/{messageID}/stream", chatHandler.StreamMessage).Methods("GET")
	api.HandleFunc("/usage", usageHandler.GetUserUsage).Methods("GET")

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Long enough for a full SSE stream plus its completion frame.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.ServerPort, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Let in-flight generations settle their rows before exit.
	dispatcher.Close()
	logger.Info("Server stopped")
}
