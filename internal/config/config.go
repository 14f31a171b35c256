package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration (asynq broker, rate limiting, subtitle cache)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Object storage
	FileStorageDir string
	PublicBaseURL  string
	MaxFileSize    int64
	AllowedTypes   []string

	// Audio extraction
	FFmpegPath      string
	AudioSampleRate int
	AudioBitrateK   int

	// Chunk planning
	ProviderByteCeiling int64   // transcription provider request-size limit
	ChunkSafetyMargin   float64 // fraction of the ceiling targeted per chunk
	MinChunkSeconds     float64 // clamp band lower bound
	MaxChunkSeconds     float64 // clamp band upper bound
	ChunkFloorSeconds   float64 // re-split floor; below this an oversize chunk is fatal

	// Transcription provider
	OpenAIAPIKey       string
	WhisperModel       string
	TranscribeAttempts int
	TranscribeBackoff  int // base backoff in seconds
	ChunkConcurrency   int

	// Embeddings
	EmbeddingsProvider    string // "google" (default), "openai"
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	OpenAIEmbeddingsModel string
	VectorDimensions      int
	EmbedConcurrency      int
	EmbedBackfillMinutes  int

	// Context window extraction
	ContextWindowSeconds float64
	ContextCharBudget    int

	// Semantic search
	SearchDefaultLimit int
	SearchMaxLimit     int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Tracing
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/lms_video"),
		DBName:      getEnv("DB_NAME", "lms_video"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080/files"),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 2147483648), // 2GB ceiling for lecture videos
		AllowedTypes:   strings.Split(getEnv("ALLOWED_FILE_TYPES", "video/mp4,video/webm,video/quicktime"), ","),

		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		AudioSampleRate: getEnvInt("AUDIO_SAMPLE_RATE", 16000),
		AudioBitrateK:   getEnvInt("AUDIO_BITRATE_KBPS", 32),

		ProviderByteCeiling: getEnvInt64("TRANSCRIBE_BYTE_CEILING", 26214400), // 25MB, OpenAI audio API limit
		ChunkSafetyMargin:   getEnvFloat64("CHUNK_SAFETY_MARGIN", 0.8),
		MinChunkSeconds:     getEnvFloat64("MIN_CHUNK_SECONDS", 60),
		MaxChunkSeconds:     getEnvFloat64("MAX_CHUNK_SECONDS", 600),
		ChunkFloorSeconds:   getEnvFloat64("CHUNK_FLOOR_SECONDS", 10),

		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		WhisperModel:       getEnv("WHISPER_MODEL", "whisper-1"),
		TranscribeAttempts: getEnvInt("TRANSCRIBE_ATTEMPTS", 3),
		TranscribeBackoff:  getEnvInt("TRANSCRIBE_BACKOFF_SECONDS", 2),
		ChunkConcurrency:   getEnvInt("CHUNK_CONCURRENCY", 4),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),
		EmbedConcurrency:      getEnvInt("EMBED_CONCURRENCY", 5),
		EmbedBackfillMinutes:  getEnvInt("EMBED_BACKFILL_MINUTES", 15),

		ContextWindowSeconds: getEnvFloat64("CONTEXT_WINDOW_SECONDS", 30),
		ContextCharBudget:    getEnvInt("CONTEXT_CHAR_BUDGET", 1000),

		SearchDefaultLimit: getEnvInt("SEARCH_DEFAULT_LIMIT", 5),
		SearchMaxLimit:     getEnvInt("SEARCH_MAX_LIMIT", 20),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	// Validate required fields
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required - set it in .env file")
	}

	if cfg.EmbeddingsProvider == "google" && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for google embeddings - set it in .env file")
	}

	if cfg.ChunkFloorSeconds <= 0 || cfg.ChunkFloorSeconds > cfg.MinChunkSeconds {
		return nil, fmt.Errorf("CHUNK_FLOOR_SECONDS must be positive and no larger than MIN_CHUNK_SECONDS")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
