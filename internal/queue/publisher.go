/**
 * Redis Event Publisher for SlideAnalysis Worker
 *
 * Publishes job lifecycle events for WebSocket streaming and keeps
 * lightweight queue bookkeeping sets in sync. Compatible with the
 * TypeScript API service's Redis event channel.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventPublisher publishes job status events to Redis
type EventPublisher struct {
	client    *redis.Client
	queueName string
}

// NewEventPublisher creates a publisher on the same Redis the queue uses
func NewEventPublisher(redisURL string, queueName string) (*EventPublisher, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if queueName == "" {
		queueName = "slideanalysis:jobs"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &EventPublisher{
		client:    client,
		queueName: queueName,
	}, nil
}

// PublishStatus publishes a job status event and updates the tracking sets.
// Publishing is best effort: failures are logged, never returned to the job.
func (p *EventPublisher) PublishStatus(ctx context.Context, jobID string, status string, detail map[string]interface{}) {
	// Keep the queue bookkeeping sets in sync
	switch status {
	case "processing":
		p.client.SAdd(ctx, fmt.Sprintf("%s:processing", p.queueName), jobID)
	case "completed":
		p.client.SRem(ctx, fmt.Sprintf("%s:processing", p.queueName), jobID)
		p.client.SAdd(ctx, fmt.Sprintf("%s:completed", p.queueName), jobID)
		if detail != nil {
			if resultData, err := json.Marshal(detail); err == nil {
				p.client.HSet(ctx, fmt.Sprintf("%s:results", p.queueName), jobID, resultData)
			}
		}
	case "failed":
		p.client.SRem(ctx, fmt.Sprintf("%s:processing", p.queueName), jobID)
		p.client.SAdd(ctx, fmt.Sprintf("%s:failed", p.queueName), jobID)
		if detail != nil {
			if errorData, err := json.Marshal(detail); err == nil {
				p.client.HSet(ctx, fmt.Sprintf("%s:errors", p.queueName), jobID, errorData)
			}
		}
	}

	event := map[string]interface{}{
		"event":     fmt.Sprintf("job:%s", status),
		"jobId":     jobID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for k, v := range detail {
		event[k] = v
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Job %s] Warning: Failed to marshal status event: %v", jobID, err)
		return
	}

	if err := p.client.Publish(ctx, fmt.Sprintf("%s:events", p.queueName), eventData).Err(); err != nil {
		log.Printf("[Job %s] Warning: Failed to publish status event: %v", jobID, err)
	}
}

// GetStats returns queue statistics
func (p *EventPublisher) GetStats(ctx context.Context) (map[string]int64, error) {
	waiting, _ := p.client.LLen(ctx, p.queueName).Result()
	processing, _ := p.client.SCard(ctx, fmt.Sprintf("%s:processing", p.queueName)).Result()
	completed, _ := p.client.SCard(ctx, fmt.Sprintf("%s:completed", p.queueName)).Result()
	failed, _ := p.client.SCard(ctx, fmt.Sprintf("%s:failed", p.queueName)).Result()

	return map[string]int64{
		"waiting":    waiting,
		"processing": processing,
		"completed":  completed,
		"failed":     failed,
	}, nil
}

// Close closes the Redis connection
func (p *EventPublisher) Close() error {
	return p.client.Close()
}
