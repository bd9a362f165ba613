/**
 * Queue Consumer for SlideAnalysis Worker
 *
 * Consumes presentation analysis jobs from the Redis-backed queue.
 * Uses Asynq for queue management.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/adverant/nexus/slideanalysis-worker/internal/errors"
	"github.com/adverant/nexus/slideanalysis-worker/internal/processor"
	"github.com/hibiken/asynq"
)

// TaskProcessPresentation is the task type enqueued by the API service
const TaskProcessPresentation = "process-presentation"

// JobData represents the structure of job data from the queue
type JobData struct {
	JobID       string                 `json:"jobId"`
	UserID      string                 `json:"userId"`
	Filename    string                 `json:"filename"`
	FilePath    string                 `json:"filePath,omitempty"`
	FileSize    int64                  `json:"fileSize,omitempty"`
	FileBuffer  []byte                 `json:"fileBuffer,omitempty"`
	QualityTier string                 `json:"qualityTier,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Consumer handles job consumption from the Redis queue
type Consumer struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.PresentationProcessorInterface
	config    *ConsumerConfig
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.PresentationProcessorInterface
	ProcessingTimeout int64 // milliseconds, default 600000 (10 minutes)
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// Exponential backoff: 5s, 10s, 20s, capped at 60s
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task processing error: type=%s, error=%v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:    client,
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		config:    cfg,
	}

	mux.HandleFunc(TaskProcessPresentation, consumer.handleProcessPresentation)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			log.Printf("Queue consumer error: %v", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	log.Printf("Stopping queue consumer...")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	log.Printf("Queue consumer stopped")
	return nil
}

// handleProcessPresentation processes a presentation analysis job
func (c *Consumer) handleProcessPresentation(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var jobData JobData
	if err := json.Unmarshal(task.Payload(), &jobData); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	log.Printf("[Job %s] Processing presentation: filename=%s, size=%d bytes, tier=%s, user=%s",
		jobData.JobID, jobData.Filename, jobData.FileSize, jobData.QualityTier, jobData.UserID)

	if err := c.processor.UpdateJobStatus(ctx, jobData.JobID, "processing", nil); err != nil {
		log.Printf("[Job %s] Warning: Failed to update status to processing: %v", jobData.JobID, err)
	}

	// Job-level timeout so a hung conversion or analysis call cannot
	// occupy a worker slot forever
	timeout := time.Duration(600000) * time.Millisecond
	if c.config.ProcessingTimeout > 0 {
		timeout = time.Duration(c.config.ProcessingTimeout) * time.Millisecond
	}

	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.processor.ProcessPresentation(processCtx, &processor.ProcessRequest{
		JobID:       jobData.JobID,
		UserID:      jobData.UserID,
		Filename:    jobData.Filename,
		FilePath:    jobData.FilePath,
		FileSize:    jobData.FileSize,
		FileBuffer:  jobData.FileBuffer,
		QualityTier: jobData.QualityTier,
		Metadata:    jobData.Metadata,
	})

	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded {
			log.Printf("[Job %s] Processing timed out after %v (timeout: %v)", jobData.JobID, duration, timeout)

			timeoutErr := errors.NewProcessingTimeoutError(jobData.JobID, timeout, err)

			if updateErr := c.processor.UpdateJobStatus(ctx, jobData.JobID, "failed", timeoutErr.ToMap()); updateErr != nil {
				log.Printf("[Job %s] Warning: Failed to update status to failed: %v", jobData.JobID, updateErr)
			}

			return fmt.Errorf("processing timeout: %w", timeoutErr)
		}

		log.Printf("[Job %s] Processing failed after %v: %v", jobData.JobID, duration, err)

		failDetails := map[string]interface{}{
			"error":          err.Error(),
			"processingTime": duration.Milliseconds(),
		}
		if procErr, ok := errors.AsProcessingError(err); ok {
			failDetails["errorCode"] = string(procErr.Code)
		}

		if updateErr := c.processor.UpdateJobStatus(ctx, jobData.JobID, "failed", failDetails); updateErr != nil {
			log.Printf("[Job %s] Warning: Failed to update status to failed: %v", jobData.JobID, updateErr)
		}

		return fmt.Errorf("presentation processing failed: %w", err)
	}

	log.Printf("[Job %s] Processing completed successfully in %v: slides=%d, chunks=%d, analysisId=%s",
		jobData.JobID, duration, result.TotalSlides, result.ChunksAnalyzed, result.AnalysisID)

	if err := c.processor.UpdateJobStatus(ctx, jobData.JobID, "completed", map[string]interface{}{
		"processingTime":     duration.Milliseconds(),
		"analysisId":         result.AnalysisID,
		"totalSlides":        result.TotalSlides,
		"chunksAnalyzed":     result.ChunksAnalyzed,
		"slidesDegraded":     result.SlidesDegraded,
		"warnings":           result.Warnings,
		"qualityTier":        result.QualityTier,
		"embeddingGenerated": result.EmbeddingGenerated,
	}); err != nil {
		log.Printf("[Job %s] Warning: Failed to update status to completed: %v", jobData.JobID, err)
	}

	return nil
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"redisURL":    c.config.RedisURL,
	}
}
