/**
 * Configuration for SlideAnalysis Worker
 *
 * Loads configuration from environment variables matching .env.nexus
 */

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration
	RedisURL string

	// PostgreSQL configuration
	DatabaseURL string

	// Qdrant vector database configuration
	QdrantURL        string
	QdrantCollection string

	// External service configuration
	VisionAPIURL    string
	EmbeddingAPIKey string

	// Workflow platform integration (optional)
	WorkflowAPIURL  string
	WorkflowAPIKey  string
	WorkflowDataset string

	// Extraction pipeline configuration
	QualityTier          string
	MaxImageSizeMB       int
	MaxDimensionPx       int
	SlidesPerChunk       int
	OverlapSlides        int
	TempDir              string
	RenderTimeoutSeconds int
	SofficePath          string
	NormalizeWorkers     int

	// Worker configuration
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:         getEnvOrDefault("REDIS_URL", "redis://nexus-redis:6379"),
		DatabaseURL:      getEnvOrThrow("DATABASE_URL"),
		QdrantURL:        getEnvOrDefault("QDRANT_URL", "nexus-qdrant:6334"),
		QdrantCollection: getEnvOrDefault("QDRANT_COLLECTION", "slideanalysis_slides"),

		VisionAPIURL:    getEnvOrThrow("VISION_API_URL"),
		EmbeddingAPIKey: getEnvOrDefault("EMBEDDING_API_KEY", ""),

		WorkflowAPIURL:  getEnvOrDefault("WORKFLOW_API_URL", ""),
		WorkflowAPIKey:  getEnvOrDefault("WORKFLOW_API_KEY", ""),
		WorkflowDataset: getEnvOrDefault("WORKFLOW_DATASET", ""),

		QualityTier:          getEnvOrDefault("QUALITY_TIER", "high"),
		MaxImageSizeMB:       getEnvAsIntOrDefault("MAX_IMAGE_SIZE_MB", 20),
		MaxDimensionPx:       getEnvAsIntOrDefault("MAX_DIMENSION_PX", 1536),
		SlidesPerChunk:       getEnvAsIntOrDefault("SLIDES_PER_CHUNK", 5),
		OverlapSlides:        getEnvAsIntOrDefault("OVERLAP_SLIDES", 1),
		TempDir:              getEnvOrDefault("TEMP_DIR", "/tmp/slideanalysis"),
		RenderTimeoutSeconds: getEnvAsIntOrDefault("RENDER_TIMEOUT_SECONDS", 120),
		SofficePath:          getEnvOrDefault("SOFFICE_PATH", "soffice"),
		NormalizeWorkers:     getEnvAsIntOrDefault("NORMALIZE_WORKERS", 4),

		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		ProcessingTimeout: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 600000), // 10 minutes
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.VisionAPIURL == "" {
		return fmt.Errorf("VISION_API_URL is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxImageSizeMB < 1 || c.MaxImageSizeMB > 100 {
		return fmt.Errorf("MAX_IMAGE_SIZE_MB must be between 1 and 100, got %d", c.MaxImageSizeMB)
	}

	if c.MaxDimensionPx < 256 {
		return fmt.Errorf("MAX_DIMENSION_PX must be at least 256, got %d", c.MaxDimensionPx)
	}

	if c.SlidesPerChunk < 1 {
		return fmt.Errorf("SLIDES_PER_CHUNK must be at least 1, got %d", c.SlidesPerChunk)
	}

	if c.OverlapSlides < 0 || c.OverlapSlides >= c.SlidesPerChunk {
		return fmt.Errorf("OVERLAP_SLIDES must be between 0 and SLIDES_PER_CHUNK-1, got %d", c.OverlapSlides)
	}

	if c.RenderTimeoutSeconds < 1 {
		return fmt.Errorf("RENDER_TIMEOUT_SECONDS must be at least 1, got %d", c.RenderTimeoutSeconds)
	}

	if c.NormalizeWorkers < 1 || c.NormalizeWorkers > 64 {
		return fmt.Errorf("NORMALIZE_WORKERS must be between 1 and 64, got %d", c.NormalizeWorkers)
	}

	return nil
}

// MaxImageSizeBytes returns the image byte budget
func (c *Config) MaxImageSizeBytes() int {
	return c.MaxImageSizeMB * 1024 * 1024
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrThrow gets environment variable or returns error
func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
