/**
 * SlideAnalysis Worker - Main Entry Point
 *
 * Go worker that turns presentations into analyzed slide decks.
 *
 * Architecture:
 * - Asynq consumer for the Redis-backed job queue
 * - Slide extraction pipeline: MuPDF pages or LibreOffice conversion,
 *   with embedded-asset and placeholder fallbacks
 * - Overlapping chunk analysis through the vision service
 * - VoyageAI embeddings for deck summary search
 * - PostgreSQL + Qdrant persistence, optional workflow platform push
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adverant/nexus/slideanalysis-worker/internal/config"
	"github.com/adverant/nexus/slideanalysis-worker/internal/processor"
	"github.com/adverant/nexus/slideanalysis-worker/internal/queue"
	"github.com/adverant/nexus/slideanalysis-worker/internal/storage"
	"github.com/joho/godotenv"
)

const queueName = "slideanalysis:jobs"

func main() {
	// Load environment variables
	if err := godotenv.Load(".env.nexus"); err != nil {
		log.Printf("Warning: .env.nexus not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("SlideAnalysis Worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Qdrant=%s, Vision=%s, Workers=%d",
		cfg.RedisURL, cfg.QdrantURL, cfg.VisionAPIURL, cfg.WorkerConcurrency)

	// Initialize unified storage manager (PostgreSQL + Qdrant)
	log.Printf("Connecting to storage (PostgreSQL + Qdrant)...")
	storageManager, err := storage.NewStorageManager(
		cfg.DatabaseURL,
		cfg.QdrantURL,
		cfg.QdrantCollection,
	)
	if err != nil {
		log.Fatalf("Failed to initialize storage manager: %v", err)
	}
	defer storageManager.Close()
	log.Printf("Storage manager initialized (PostgreSQL + Qdrant)")

	// Initialize event publisher for job status streaming
	publisher, err := queue.NewEventPublisher(cfg.RedisURL, queueName)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	defer publisher.Close()
	log.Printf("Event publisher initialized")

	// Initialize presentation processor
	log.Printf("Initializing presentation processor...")
	proc, err := processor.NewPresentationProcessor(&processor.ProcessorConfig{
		StorageManager:    storageManager,
		VisionAPIURL:      cfg.VisionAPIURL,
		EmbeddingAPIKey:   cfg.EmbeddingAPIKey,
		WorkflowAPIURL:    cfg.WorkflowAPIURL,
		WorkflowAPIKey:    cfg.WorkflowAPIKey,
		WorkflowDataset:   cfg.WorkflowDataset,
		QualityTier:       cfg.QualityTier,
		MaxImageSizeBytes: cfg.MaxImageSizeBytes(),
		MaxDimensionPx:    cfg.MaxDimensionPx,
		TempDir:           cfg.TempDir,
		SofficePath:       cfg.SofficePath,
		RenderTimeout:     time.Duration(cfg.RenderTimeoutSeconds) * time.Second,
		NormalizeWorkers:  cfg.NormalizeWorkers,
		SlidesPerChunk:    cfg.SlidesPerChunk,
		OverlapSlides:     cfg.OverlapSlides,
		Publisher:         publisher,
	})
	if err != nil {
		log.Fatalf("Failed to initialize presentation processor: %v", err)
	}
	log.Printf("Presentation processor initialized")

	// Initialize queue consumer
	log.Printf("Connecting to Redis queue...")
	queueConsumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         queueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		ProcessingTimeout: int64(cfg.ProcessingTimeout),
	})
	if err != nil {
		log.Fatalf("Failed to initialize queue consumer: %v", err)
	}
	log.Printf("Queue consumer initialized with concurrency=%d", cfg.WorkerConcurrency)

	// Start queue consumer
	ctx := context.Background()
	if err := queueConsumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	// Print startup summary
	log.Printf("===========================================")
	log.Printf("SlideAnalysis Worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s", queueName)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Quality tier: %s", cfg.QualityTier)
	log.Printf("Chunking: %d slides per chunk, %d overlap", cfg.SlidesPerChunk, cfg.OverlapSlides)
	log.Printf("Image budget: %dMB, max edge %dpx", cfg.MaxImageSizeMB, cfg.MaxDimensionPx)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	if err := queueConsumer.Stop(ctx); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	}

	if err := storageManager.Close(); err != nil {
		log.Printf("Error closing storage manager: %v", err)
	} else {
		log.Printf("Storage manager closed")
	}

	log.Printf("Shutdown complete")
}
