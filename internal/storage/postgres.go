/**
 * PostgreSQL Client for SlideAnalysis Worker
 *
 * Handles database operations for job persistence and presentation
 * analysis storage.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	ProcessingTimeMs int64
	AnalysisID       string
	ErrorCode        string
	ErrorMessage     string
	QualityTier      string
	Metadata         map[string]interface{}
}

// PresentationAnalysis represents the stored analysis of one deck
type PresentationAnalysis struct {
	ID               string
	JobID            string
	Filename         string
	SourceFormat     string
	TotalSlides      int
	OverallSummary   string
	KeyConcepts      []string
	PresentationType string
	Slides           []map[string]interface{}
	Warnings         []string
	CreatedAt        time.Time
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// UpdateJobStatus updates job status in the database
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	// UPSERT so the worker can create the job record if the API didn't
	// create it yet. Jobs live in the slideanalysis schema.
	query := `
		INSERT INTO slideanalysis.processing_jobs (
			id, user_id, filename, file_size,
			status, processing_time_ms, analysis_id,
			error_code, error_message, quality_tier, metadata,
			created_at, updated_at
		) VALUES (
			$1::uuid, COALESCE($10, 'anonymous'), COALESCE($8, 'unknown.pptx'),
			COALESCE($9, 0),
			$2, NULLIF($3, 0),
			CASE WHEN $4 = '' THEN NULL ELSE $4::uuid END,
			NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
			COALESCE($11::jsonb, '{}'::jsonb),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			processing_time_ms = COALESCE(NULLIF(EXCLUDED.processing_time_ms, 0), slideanalysis.processing_jobs.processing_time_ms),
			analysis_id = CASE
				WHEN EXCLUDED.analysis_id IS NOT NULL THEN EXCLUDED.analysis_id
				ELSE slideanalysis.processing_jobs.analysis_id
			END,
			error_code = NULLIF(EXCLUDED.error_code, ''),
			error_message = NULLIF(EXCLUDED.error_message, ''),
			quality_tier = COALESCE(NULLIF(EXCLUDED.quality_tier, ''), slideanalysis.processing_jobs.quality_tier),
			metadata = COALESCE(EXCLUDED.metadata, slideanalysis.processing_jobs.metadata),
			filename = COALESCE(EXCLUDED.filename, slideanalysis.processing_jobs.filename),
			file_size = COALESCE(NULLIF(EXCLUDED.file_size, 0), slideanalysis.processing_jobs.file_size),
			user_id = COALESCE(EXCLUDED.user_id, slideanalysis.processing_jobs.user_id),
			updated_at = NOW()
		RETURNING id
	`

	// Extract additional fields from metadata if present
	var filename, userID string
	var fileSize int64
	if update.Metadata != nil {
		if fn, ok := update.Metadata["filename"].(string); ok {
			filename = fn
		}
		if fs, ok := update.Metadata["fileSize"].(int64); ok {
			fileSize = fs
		} else if fs, ok := update.Metadata["fileSize"].(float64); ok {
			fileSize = int64(fs)
		}
		if uid, ok := update.Metadata["userId"].(string); ok {
			userID = uid
		}
	}

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,            // $1
		update.Status,           // $2
		update.ProcessingTimeMs, // $3
		update.AnalysisID,       // $4
		update.ErrorCode,        // $5
		update.ErrorMessage,     // $6
		update.QualityTier,      // $7
		filename,                // $8
		fileSize,                // $9
		userID,                  // $10
		metadataJSON,            // $11
	).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("job not found: %s", update.JobID)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// StoreAnalysis stores a completed presentation analysis
func (p *PostgresClient) StoreAnalysis(ctx context.Context, analysis *PresentationAnalysis) (string, error) {
	if analysis.JobID == "" {
		return "", fmt.Errorf("job ID is required")
	}

	slidesJSON, err := json.Marshal(analysis.Slides)
	if err != nil {
		return "", fmt.Errorf("failed to marshal slides: %w", err)
	}

	conceptsJSON, err := json.Marshal(analysis.KeyConcepts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal key concepts: %w", err)
	}

	warningsJSON, err := json.Marshal(analysis.Warnings)
	if err != nil {
		return "", fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		INSERT INTO slideanalysis.presentation_analyses (
			job_id,
			filename,
			source_format,
			total_slides,
			overall_summary,
			key_concepts,
			presentation_type,
			slides,
			warnings,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id
	`

	var analysisID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		analysis.JobID,
		analysis.Filename,
		analysis.SourceFormat,
		analysis.TotalSlides,
		analysis.OverallSummary,
		conceptsJSON,
		analysis.PresentationType,
		slidesJSON,
		warningsJSON,
	).Scan(&analysisID)

	if err != nil {
		return "", fmt.Errorf("failed to store analysis: %w", err)
	}

	return analysisID, nil
}

// GetAnalysis retrieves a presentation analysis by ID
func (p *PostgresClient) GetAnalysis(ctx context.Context, analysisID string) (*PresentationAnalysis, error) {
	if analysisID == "" {
		return nil, fmt.Errorf("analysis ID is required")
	}

	query := `
		SELECT
			id,
			job_id,
			filename,
			source_format,
			total_slides,
			overall_summary,
			key_concepts,
			presentation_type,
			slides,
			warnings,
			created_at
		FROM slideanalysis.presentation_analyses
		WHERE id = $1
	`

	var (
		analysis     PresentationAnalysis
		conceptsJSON []byte
		slidesJSON   []byte
		warningsJSON []byte
	)

	err := p.db.QueryRowContext(ctx, query, analysisID).Scan(
		&analysis.ID,
		&analysis.JobID,
		&analysis.Filename,
		&analysis.SourceFormat,
		&analysis.TotalSlides,
		&analysis.OverallSummary,
		&conceptsJSON,
		&analysis.PresentationType,
		&slidesJSON,
		&warningsJSON,
		&analysis.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis not found: %s", analysisID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	if err := json.Unmarshal(conceptsJSON, &analysis.KeyConcepts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key concepts: %w", err)
	}
	if err := json.Unmarshal(slidesJSON, &analysis.Slides); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slides: %w", err)
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &analysis.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}

	return &analysis, nil
}

// GetJobByID retrieves a job by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT
			id,
			user_id,
			filename,
			file_size,
			status,
			processing_time_ms,
			analysis_id,
			error_code,
			error_message,
			quality_tier,
			metadata,
			created_at,
			updated_at
		FROM slideanalysis.processing_jobs
		WHERE id = $1::uuid
	`

	var (
		id, userID, filename                 string
		fileSize                             sql.NullInt64
		status                               sql.NullString
		processingTimeMs                     sql.NullInt64
		analysisID, errorCode, errorMessage  sql.NullString
		qualityTier                          sql.NullString
		metadataJSON                         []byte
		createdAt, updatedAt                 time.Time
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&id, &userID, &filename, &fileSize, &status,
		&processingTimeMs, &analysisID,
		&errorCode, &errorMessage, &qualityTier,
		&metadataJSON, &createdAt, &updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var metadata map[string]interface{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	result := map[string]interface{}{
		"id":        id,
		"userId":    userID,
		"filename":  filename,
		"status":    status.String,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
		"metadata":  metadata,
	}

	if fileSize.Valid {
		result["fileSize"] = fileSize.Int64
	}
	if processingTimeMs.Valid {
		result["processingTimeMs"] = processingTimeMs.Int64
	}
	if analysisID.Valid {
		result["analysisId"] = analysisID.String
	}
	if errorCode.Valid {
		result["errorCode"] = errorCode.String
	}
	if errorMessage.Valid {
		result["errorMessage"] = errorMessage.String
	}
	if qualityTier.Valid {
		result["qualityTier"] = qualityTier.String
	}

	return result, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
