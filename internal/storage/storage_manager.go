/**
 * Storage Manager for SlideAnalysis Worker
 *
 * Coordinates storage operations across PostgreSQL (analysis records) and
 * Qdrant (deck summary vectors). Vector and row are written as a pair:
 * the Qdrant point is rolled back when the PostgreSQL insert fails.
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StorageManager coordinates PostgreSQL and Qdrant operations
type StorageManager struct {
	postgres *PostgresClient
	qdrant   *QdrantClient
}

// AnalysisInput represents a finished analysis ready for persistence
type AnalysisInput struct {
	JobID            string
	Filename         string
	SourceFormat     string
	TotalSlides      int
	OverallSummary   string
	KeyConcepts      []string
	PresentationType string
	Slides           []map[string]interface{}
	Warnings         []string
	SummaryEmbedding []float32
}

// AnalysisOutput represents a stored analysis with all IDs
type AnalysisOutput struct {
	AnalysisID    string
	JobID         string
	QdrantPointID string
	CreatedAt     time.Time
}

// NewStorageManager creates a new storage manager
func NewStorageManager(postgresURL string, qdrantAddress string, qdrantCollection string) (*StorageManager, error) {
	postgres, err := NewPostgresClient(postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}

	qdrant, err := NewQdrantClient(qdrantAddress, qdrantCollection)
	if err != nil {
		postgres.Close()
		return nil, fmt.Errorf("failed to initialize Qdrant client: %w", err)
	}

	return &StorageManager{
		postgres: postgres,
		qdrant:   qdrant,
	}, nil
}

// StoreAnalysis persists the analysis row and its summary vector together
func (sm *StorageManager) StoreAnalysis(ctx context.Context, input *AnalysisInput) (*AnalysisOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("input is required")
	}

	if input.JobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	// Step 1: Store vector in Qdrant first (fails fast if vector invalid)
	qdrantPointID := ""
	if len(input.SummaryEmbedding) > 0 {
		if len(input.SummaryEmbedding) != embeddingDimensions {
			return nil, fmt.Errorf("invalid embedding dimensions: expected %d, got %d",
				embeddingDimensions, len(input.SummaryEmbedding))
		}

		qdrantPointID = uuid.New().String()
		qdrantPoint := &VectorPoint{
			ID:     qdrantPointID,
			Vector: input.SummaryEmbedding,
			Metadata: map[string]interface{}{
				"job_id":            input.JobID,
				"filename":          input.Filename,
				"total_slides":      int64(input.TotalSlides),
				"presentation_type": input.PresentationType,
			},
			Timestamp: time.Now().Unix(),
		}

		if err := sm.qdrant.UpsertVector(ctx, qdrantPoint); err != nil {
			return nil, fmt.Errorf("failed to store vector in Qdrant: %w", err)
		}
	}

	// Step 2: Store the analysis record in PostgreSQL
	analysisID, err := sm.postgres.StoreAnalysis(ctx, &PresentationAnalysis{
		JobID:            input.JobID,
		Filename:         input.Filename,
		SourceFormat:     input.SourceFormat,
		TotalSlides:      input.TotalSlides,
		OverallSummary:   input.OverallSummary,
		KeyConcepts:      input.KeyConcepts,
		PresentationType: input.PresentationType,
		Slides:           input.Slides,
		Warnings:         input.Warnings,
	})

	if err != nil {
		// Rollback: delete the Qdrant point
		if qdrantPointID != "" {
			sm.qdrant.DeleteVector(ctx, qdrantPointID)
		}
		return nil, fmt.Errorf("failed to store analysis in PostgreSQL: %w", err)
	}

	return &AnalysisOutput{
		AnalysisID:    analysisID,
		JobID:         input.JobID,
		QdrantPointID: qdrantPointID,
		CreatedAt:     time.Now(),
	}, nil
}

// SearchSimilarDecks performs semantic search across stored deck summaries
func (sm *StorageManager) SearchSimilarDecks(ctx context.Context, queryVector []float32, limit int) ([]*VectorPoint, error) {
	return sm.qdrant.SearchVectors(ctx, queryVector, limit)
}

// UpdateJobStatus updates job status in PostgreSQL
func (sm *StorageManager) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	return sm.postgres.UpdateJobStatus(ctx, update)
}

// GetJobByID retrieves job by ID
func (sm *StorageManager) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	return sm.postgres.GetJobByID(ctx, jobID)
}

// GetAnalysis retrieves a stored analysis by ID
func (sm *StorageManager) GetAnalysis(ctx context.Context, analysisID string) (*PresentationAnalysis, error) {
	return sm.postgres.GetAnalysis(ctx, analysisID)
}

// Ping checks PostgreSQL connectivity
func (sm *StorageManager) Ping(ctx context.Context) error {
	return sm.postgres.Ping(ctx)
}

// GetStats returns statistics from both systems
func (sm *StorageManager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	pgStats := sm.postgres.GetStats()

	qdrantStats, err := sm.qdrant.GetCollectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Qdrant stats: %w", err)
	}

	return map[string]interface{}{
		"postgres": map[string]interface{}{
			"max_open_connections": pgStats.MaxOpenConnections,
			"open_connections":     pgStats.OpenConnections,
			"in_use":               pgStats.InUse,
			"idle":                 pgStats.Idle,
			"wait_count":           pgStats.WaitCount,
			"wait_duration":        pgStats.WaitDuration.String(),
		},
		"qdrant": qdrantStats,
	}, nil
}

// Close closes all connections
func (sm *StorageManager) Close() error {
	var pgErr, qdErr error

	if sm.postgres != nil {
		pgErr = sm.postgres.Close()
	}

	if sm.qdrant != nil {
		qdErr = sm.qdrant.Close()
	}

	if pgErr != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", pgErr)
	}

	if qdErr != nil {
		return fmt.Errorf("failed to close Qdrant: %w", qdErr)
	}

	return nil
}
