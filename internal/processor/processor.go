/**
 * Presentation Processor for SlideAnalysis Worker
 *
 * Orchestrates the full analysis pipeline:
 * - Slide extraction and normalization (primary render + fallback cascade)
 * - Overlapping chunk analysis via the vision service
 * - Deck-level summary generation
 * - VoyageAI embedding of the summary for semantic search
 * - Persistence across PostgreSQL + Qdrant, optional workflow platform push
 */

package processor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adverant/nexus/slideanalysis-worker/internal/clients"
	apperrors "github.com/adverant/nexus/slideanalysis-worker/internal/errors"
	"github.com/adverant/nexus/slideanalysis-worker/internal/extraction"
	"github.com/adverant/nexus/slideanalysis-worker/internal/storage"
)

// PresentationProcessorInterface defines the interface for presentation processing
type PresentationProcessorInterface interface {
	ProcessPresentation(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error
}

// StatusPublisher publishes job lifecycle events; best effort
type StatusPublisher interface {
	PublishStatus(ctx context.Context, jobID string, status string, detail map[string]interface{})
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	StorageManager    *storage.StorageManager
	VisionAPIURL      string
	EmbeddingAPIKey   string
	WorkflowAPIURL    string
	WorkflowAPIKey    string
	WorkflowDataset   string
	QualityTier       string
	MaxImageSizeBytes int
	MaxDimensionPx    int
	TempDir           string
	SofficePath       string
	RenderTimeout     time.Duration
	NormalizeWorkers  int
	SlidesPerChunk    int
	OverlapSlides     int
	Publisher         StatusPublisher
}

// ProcessRequest represents a presentation processing request
type ProcessRequest struct {
	JobID       string
	UserID      string
	Filename    string
	FilePath    string
	FileSize    int64
	FileBuffer  []byte
	QualityTier string
	Metadata    map[string]interface{}
}

// ProcessResult represents the processing result
type ProcessResult struct {
	AnalysisID         string
	TotalSlides        int
	ChunksAnalyzed     int
	SlidesDegraded     int
	Warnings           []string
	QualityTier        string
	EmbeddingGenerated bool
	ProcessingTimeMs   int64
}

// PresentationProcessor handles presentation analysis jobs
type PresentationProcessor struct {
	config          *ProcessorConfig
	storage         *storage.StorageManager
	visionClient    *clients.VisionClient
	embeddingClient *clients.EmbeddingClient
	workflowClient  *clients.WorkflowClient
	publisher       StatusPublisher
}

// NewPresentationProcessor creates a new presentation processor
func NewPresentationProcessor(cfg *ProcessorConfig) (*PresentationProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if cfg.StorageManager == nil {
		return nil, fmt.Errorf("storage manager is required")
	}

	if cfg.VisionAPIURL == "" {
		return nil, fmt.Errorf("vision API URL is required for slide analysis")
	}

	visionClient := clients.NewVisionClient(cfg.VisionAPIURL)

	// Test vision service connection (non-fatal if unavailable at startup)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := visionClient.HealthCheck(ctx); err != nil {
		log.Printf("WARNING: Vision service health check failed: %v. Jobs will fail until it recovers.", err)
	} else {
		log.Printf("Vision service connection verified: %s", cfg.VisionAPIURL)
	}

	// Create embedding client; without it decks are stored but not searchable
	var embeddingClient *clients.EmbeddingClient
	if cfg.EmbeddingAPIKey != "" {
		ec, err := clients.NewEmbeddingClient(cfg.EmbeddingAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		embeddingClient = ec
	} else {
		log.Printf("WARNING: Embedding API key not configured. Deck summaries will not be searchable.")
	}

	// Create workflow platform client (nil when not configured)
	workflowClient := clients.NewWorkflowClient(cfg.WorkflowAPIURL, cfg.WorkflowAPIKey, cfg.WorkflowDataset)
	if workflowClient == nil {
		log.Printf("WARNING: Workflow platform not configured. Analyses will not be pushed to the knowledge dataset.")
	}

	return &PresentationProcessor{
		config:          cfg,
		storage:         cfg.StorageManager,
		visionClient:    visionClient,
		embeddingClient: embeddingClient,
		workflowClient:  workflowClient,
		publisher:       cfg.Publisher,
	}, nil
}

// ProcessPresentation processes a presentation through the complete pipeline
func (p *PresentationProcessor) ProcessPresentation(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	startTime := time.Now()
	log.Printf("[Job %s] Starting presentation analysis pipeline", req.JobID)

	// Step 1: Materialize the input file on disk
	log.Printf("[Job %s] Step 1: Materializing input file (%d bytes)", req.JobID, req.FileSize)
	filePath, cleanup, err := p.materializeFile(req)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize file: %w", err)
	}
	defer cleanup()

	tier := req.QualityTier
	if tier == "" {
		tier = p.config.QualityTier
	}

	// Step 2: Extract and normalize slides
	log.Printf("[Job %s] Step 2: Extracting slides (tier=%s)", req.JobID, tier)
	p.reportPhase(ctx, req.JobID, "extracting_slides", nil)

	extractor, err := extraction.NewExtractor(&extraction.ExtractorConfig{
		QualityTier:       tier,
		MaxImageSizeBytes: p.config.MaxImageSizeBytes,
		MaxDimensionPx:    p.config.MaxDimensionPx,
		TempDir:           p.config.TempDir,
		NormalizeWorkers:  p.config.NormalizeWorkers,
		RenderTimeout:     p.config.RenderTimeout,
		SofficePath:       p.config.SofficePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	result, chunks, err := extractor.ExtractChunks(ctx, filePath, p.config.SlidesPerChunk, p.config.OverlapSlides)
	if err != nil {
		return nil, fmt.Errorf("slide extraction failed: %w", err)
	}

	degraded := 0
	for _, slide := range result.Slides {
		if slide.RenderMethod != extraction.RenderPrimary {
			degraded++
		}
	}
	log.Printf("[Job %s] Extraction complete: slides=%d, chunks=%d, degraded=%d, warnings=%d",
		req.JobID, result.TotalSlides, len(chunks), degraded, len(result.Warnings))

	warnings := append([]string(nil), result.Warnings...)

	if result.TotalSlides == 0 {
		log.Printf("[Job %s] Presentation has no slides, storing empty analysis", req.JobID)
	}

	// Step 3: Analyze chunks through the vision service
	log.Printf("[Job %s] Step 3: Analyzing %d chunks", req.JobID, len(chunks))
	p.reportPhase(ctx, req.JobID, "analyzing_slides", map[string]interface{}{
		"totalSlides": result.TotalSlides,
		"chunks":      len(chunks),
	})

	analyzed, err := p.analyzeChunks(ctx, req.JobID, result.TotalSlides, chunks)
	if err != nil {
		return nil, fmt.Errorf("chunk analysis failed: %w", err)
	}
	log.Printf("[Job %s] Chunk analysis complete: %d slides analyzed", req.JobID, len(analyzed))

	// Step 4: Generate the deck-level summary
	log.Printf("[Job %s] Step 4: Generating deck summary", req.JobID)
	p.reportPhase(ctx, req.JobID, "generating_summary", nil)

	var overallSummary, presentationType string
	var keyConcepts []string
	if len(analyzed) > 0 {
		summaryResp, err := p.visionClient.SummarizeDeck(ctx, &clients.DeckSummaryRequest{
			JobID:  req.JobID,
			Slides: analyzed,
		})
		if err != nil {
			// The per-slide analysis is still valuable on its own
			log.Printf("[Job %s] WARNING: Deck summary failed: %v. Storing analysis without summary.", req.JobID, err)
			warnings = append(warnings, fmt.Sprintf("deck summary unavailable: %v", err))
		} else {
			overallSummary = summaryResp.OverallSummary
			keyConcepts = summaryResp.KeyConcepts
			presentationType = summaryResp.PresentationType
			log.Printf("[Job %s] Deck summary generated: type=%s, concepts=%d",
				req.JobID, presentationType, len(keyConcepts))
		}
	}

	// Step 5: Generate VoyageAI embedding of the summary (1024 dimensions)
	var embedding []float32
	if p.embeddingClient != nil && overallSummary != "" {
		log.Printf("[Job %s] Step 5: Generating summary embedding", req.JobID)
		embedding, err = p.embeddingClient.GenerateEmbedding(ctx, overallSummary)
		if err != nil {
			log.Printf("[Job %s] WARNING: Embedding generation failed: %v. Deck will not be searchable.", req.JobID, err)
			warnings = append(warnings, fmt.Sprintf("summary embedding unavailable: %v", err))
			embedding = nil
		} else {
			log.Printf("[Job %s] Embedding generated: dimensions=%d", req.JobID, len(embedding))
		}
	} else {
		log.Printf("[Job %s] Step 5: Skipping summary embedding (client or summary unavailable)", req.JobID)
	}

	// Step 6: Store the analysis across PostgreSQL + Qdrant
	log.Printf("[Job %s] Step 6: Storing analysis", req.JobID)
	p.reportPhase(ctx, req.JobID, "storing", nil)

	sourceFormat := ""
	if len(result.Slides) > 0 {
		sourceFormat = string(result.Slides[0].SourceFormat)
	}

	stored, err := p.storage.StoreAnalysis(ctx, &storage.AnalysisInput{
		JobID:            req.JobID,
		Filename:         req.Filename,
		SourceFormat:     sourceFormat,
		TotalSlides:      result.TotalSlides,
		OverallSummary:   overallSummary,
		KeyConcepts:      keyConcepts,
		PresentationType: presentationType,
		Slides:           buildSlideRows(result, analyzed),
		Warnings:         warnings,
		SummaryEmbedding: embedding,
	})
	if err != nil {
		return nil, apperrors.NewStorageFailedError(req.JobID, err)
	}
	log.Printf("[Job %s] Analysis stored: analysisId=%s, qdrantPointId=%s",
		req.JobID, stored.AnalysisID, stored.QdrantPointID)

	// Step 7: Push the analysis document to the workflow platform
	if p.workflowClient != nil && (overallSummary != "" || len(analyzed) > 0) {
		log.Printf("[Job %s] Step 7: Pushing analysis to workflow platform", req.JobID)
		docText := buildAnalysisDocument(req.Filename, overallSummary, keyConcepts, analyzed)
		if _, err := p.workflowClient.PushDocument(ctx, req.Filename, docText); err != nil {
			// Non-fatal: the analysis is already persisted
			log.Printf("[Job %s] WARNING: Workflow platform push failed: %v", req.JobID, err)
		} else {
			log.Printf("[Job %s] Analysis pushed to workflow platform", req.JobID)
		}
	} else if p.workflowClient == nil {
		log.Printf("[Job %s] Skipping workflow push: client not configured", req.JobID)
	}

	processResult := &ProcessResult{
		AnalysisID:         stored.AnalysisID,
		TotalSlides:        result.TotalSlides,
		ChunksAnalyzed:     len(chunks),
		SlidesDegraded:     degraded,
		Warnings:           warnings,
		QualityTier:        extractor.Profile().Tier,
		EmbeddingGenerated: len(embedding) > 0,
		ProcessingTimeMs:   time.Since(startTime).Milliseconds(),
	}

	log.Printf("[Job %s] Processing pipeline complete: analysisId=%s, slides=%d, took=%dms",
		req.JobID, stored.AnalysisID, result.TotalSlides, processResult.ProcessingTimeMs)

	return processResult, nil
}

// analyzeChunks sends every chunk to the vision service in slide order.
// Overlap slides carry context only; their analysis comes from the chunk
// where they first appear.
func (p *PresentationProcessor) analyzeChunks(ctx context.Context, jobID string, totalSlides int, chunks []extraction.Chunk) ([]extraction.AnalyzedSlide, error) {
	analyzed := make([]extraction.AnalyzedSlide, 0, totalSlides)
	seen := make(map[int]bool, totalSlides)

	for i, chunk := range chunks {
		unanalyzed := make([]extraction.UnanalyzedSlide, 0, len(chunk.Slides))
		for _, slide := range chunk.Slides {
			unanalyzed = append(unanalyzed, slide.Unanalyzed())
		}

		log.Printf("[Job %s] Analyzing chunk %d/%d: slides %d-%d (overlap=%d)",
			jobID, i+1, len(chunks),
			chunk.StartIndex+1, chunk.StartIndex+len(chunk.Slides), chunk.OverlapCount)

		resp, err := p.visionClient.AnalyzeChunk(ctx, &clients.ChunkAnalysisRequest{
			JobID:        jobID,
			Slides:       unanalyzed,
			StartIndex:   chunk.StartIndex,
			OverlapCount: chunk.OverlapCount,
			TotalSlides:  totalSlides,
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d analysis failed: %w", i+1, err)
		}

		for _, slide := range resp.Slides {
			if seen[slide.SlideNumber] {
				continue
			}
			seen[slide.SlideNumber] = true
			analyzed = append(analyzed, slide)
		}
	}

	return analyzed, nil
}

// materializeFile resolves the job input to a path on disk. Files delivered
// inline are staged under the temp dir and removed by the returned cleanup.
func (p *PresentationProcessor) materializeFile(req *ProcessRequest) (string, func(), error) {
	noop := func() {}

	if req.FilePath != "" {
		if _, err := os.Stat(req.FilePath); err != nil {
			return "", noop, fmt.Errorf("input file not accessible: %w", err)
		}
		return req.FilePath, noop, nil
	}

	if len(req.FileBuffer) == 0 {
		return "", noop, fmt.Errorf("no file path or buffer provided")
	}

	if err := os.MkdirAll(p.config.TempDir, 0o755); err != nil {
		return "", noop, fmt.Errorf("failed to create temp dir: %w", err)
	}

	staged := filepath.Join(p.config.TempDir, fmt.Sprintf("upload-%s-%s", req.JobID, filepath.Base(req.Filename)))
	if err := os.WriteFile(staged, req.FileBuffer, 0o644); err != nil {
		return "", noop, fmt.Errorf("failed to stage file buffer: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
			log.Printf("[Job %s] Warning: Failed to remove staged file %s: %v", req.JobID, staged, err)
		}
	}
	return staged, cleanup, nil
}

// reportPhase records an intermediate pipeline phase in the database and on
// the event channel. Phase reporting is best effort.
func (p *PresentationProcessor) reportPhase(ctx context.Context, jobID string, phase string, detail map[string]interface{}) {
	if err := p.UpdateJobStatus(ctx, jobID, phase, detail); err != nil {
		log.Printf("[Job %s] Warning: Failed to record phase %s: %v", jobID, phase, err)
	}
}

// UpdateJobStatus updates job status in the database and publishes the event
func (p *PresentationProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error {
	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Metadata: metadata,
	}

	if metadata != nil {
		if processingTime, ok := metadata["processingTime"].(int64); ok {
			update.ProcessingTimeMs = processingTime
		}
		if analysisID, ok := metadata["analysisId"].(string); ok {
			update.AnalysisID = analysisID
		}
		if tier, ok := metadata["qualityTier"].(string); ok {
			update.QualityTier = tier
		}
		if errorCode, ok := metadata["errorCode"].(string); ok {
			update.ErrorCode = errorCode
		}
		if errorMsg, ok := metadata["error"].(string); ok {
			if update.ErrorCode == "" {
				update.ErrorCode = "PROCESSING_ERROR"
			}
			update.ErrorMessage = errorMsg
		}
	}

	if p.publisher != nil {
		p.publisher.PublishStatus(ctx, jobID, status, metadata)
	}

	return p.storage.UpdateJobStatus(ctx, update)
}

// buildSlideRows merges extraction records with their analysis for storage
func buildSlideRows(result *extraction.ExtractionResult, analyzed []extraction.AnalyzedSlide) []map[string]interface{} {
	byNumber := make(map[int]extraction.AnalyzedSlide, len(analyzed))
	for _, slide := range analyzed {
		byNumber[slide.SlideNumber] = slide
	}

	rows := make([]map[string]interface{}, 0, len(result.Slides))
	for _, slide := range result.Slides {
		row := map[string]interface{}{
			"slideNumber":  slide.SlideNumber,
			"renderMethod": string(slide.RenderMethod),
			"width":        slide.Width,
			"height":       slide.Height,
			"encodedSize":  slide.EncodedSizeBytes,
		}
		if a, ok := byNumber[slide.SlideNumber]; ok {
			row["title"] = a.Title
			row["layout"] = a.Layout
			row["summary"] = a.Summary
		}
		rows = append(rows, row)
	}
	return rows
}

// buildAnalysisDocument renders the analysis as plain text for the
// workflow platform dataset
func buildAnalysisDocument(filename, overallSummary string, keyConcepts []string, analyzed []extraction.AnalyzedSlide) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Presentation: %s\n\n", filename)
	if overallSummary != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", overallSummary)
	}
	if len(keyConcepts) > 0 {
		fmt.Fprintf(&b, "Key concepts: %s\n\n", strings.Join(keyConcepts, ", "))
	}
	for _, slide := range analyzed {
		fmt.Fprintf(&b, "Slide %d", slide.SlideNumber)
		if slide.Title != "" {
			fmt.Fprintf(&b, " - %s", slide.Title)
		}
		b.WriteString("\n")
		if slide.Summary != "" {
			fmt.Fprintf(&b, "%s\n", slide.Summary)
		}
		b.WriteString("\n")
	}

	return b.String()
}
