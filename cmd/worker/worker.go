package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"lms-video-platform/internal/ai"
	"lms-video-platform/internal/config"
	"lms-video-platform/internal/logger"
	"lms-video-platform/internal/queue"
	"lms-video-platform/internal/storage"
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
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.DBName)

	// Object storage shared with the API server
	objects, err := storage.NewDiskStorage(cfg.FileStorageDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	// Embeddings provider
	embedder, err := ai.NewEmbeddingClient(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}
	defer embedder.Close()

	// Pipeline services
	videoStore := services.NewVideoStore(db)
	segmentStore := services.NewSegmentStore(db)
	extractor := services.NewFFmpegExtractor(cfg.FFmpegPath, cfg.AudioSampleRate, cfg.AudioBitrateK)
	planner := services.NewChunkPlanner(extractor, cfg)
	transcriber := services.NewWhisperTranscriber(cfg)
	pipeline := services.NewTranscriptPipeline(cfg, objects, extractor, planner, transcriber, segmentStore, videoStore)
	embeddings := services.NewEmbeddingService(segmentStore, embedder, cfg)

	// Periodic backfill sweeps up segments whose embedding call failed
	scheduler := embeddings.StartBackfillScheduler()
	defer scheduler.Stop()

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6, // transcript generation
				"default":  3, // embeddings
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(pipeline, embeddings, asynqClient)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskGenerateTranscript, processor.GenerateTranscript)
	mux.HandleFunc(queue.TaskGenerateEmbeddings, processor.GenerateEmbeddings)

	log.Println("Starting transcript worker...")
	log.Printf("   Queues: critical(6), default(3), low(1)")
	log.Printf("   Redis: %s", redisOpt.Addr)

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
