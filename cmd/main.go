package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"lms-video-platform/internal/ai"
	"lms-video-platform/internal/config"
	"lms-video-platform/internal/logger"
	"lms-video-platform/internal/storage"
	"lms-video-platform/internal/telemetry"
	"lms-video-platform/middleware"
	"lms-video-platform/routes"
	"lms-video-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Connect to Redis
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Tracing
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("lms-video-platform", cfg.OTLPEndpoint)
		if err != nil {
			log.Printf("Tracing disabled: %v", err)
		} else {
			defer shutdown()
		}
	}

	// Object storage for videos and subtitle documents
	objects, err := storage.NewDiskStorage(cfg.FileStorageDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	// Asynq client for enqueuing pipeline jobs
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

	// Embeddings provider used for semantic search queries
	embedder, err := ai.NewEmbeddingClient(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}
	defer embedder.Close()

	assistant, err := ai.NewAssistantClient(cfg.GeminiAPIKey, "free")
	if err != nil {
		log.Fatal("Failed to initialize assistant client:", err)
	}
	defer assistant.Close()

	// Stores and read-side services
	videoStore := services.NewVideoStore(db)
	segmentStore := services.NewSegmentStore(db)
	subtitleService := services.NewSubtitleService(videoStore, objects, redisClient)
	contextService := services.NewContextService(segmentStore, cfg)
	searchService := services.NewSearchService(segmentStore, embedder, cfg)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.RateLimitMiddleware(redisClient, cfg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupVideoRoutes(router, routes.VideoDeps{
		Cfg:       cfg,
		Videos:    videoStore,
		Objects:   objects,
		Queue:     asynqClient,
		Subtitles: subtitleService,
	})
	routes.SetupTranscriptRoutes(router, routes.TranscriptDeps{
		Subtitles: subtitleService,
		Context:   contextService,
		Search:    searchService,
	})
	routes.SetupAssistantRoutes(router, routes.AssistantDeps{
		Context:   contextService,
		Search:    searchService,
		Assistant: assistant,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
