/**
 * Vision Analysis Client
 *
 * This client delegates all slide semantics to the external vision-analysis
 * service. The worker only prepares inputs: rendered, normalized slide images
 * grouped into overlapping chunks. The service decides what each slide means
 * (title, layout, summary) and how the deck reads as a whole.
 */

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adverant/nexus/slideanalysis-worker/internal/extraction"
	"github.com/adverant/nexus/slideanalysis-worker/internal/logging"
)

// VisionClient handles communication with the vision-analysis service
type VisionClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ChunkAnalysisRequest carries one chunk of slides for contextual analysis
type ChunkAnalysisRequest struct {
	JobID        string                       `json:"jobId,omitempty"`
	Slides       []extraction.UnanalyzedSlide `json:"slides"`
	StartIndex   int                          `json:"startIndex"`
	OverlapCount int                          `json:"overlapCount"`
	TotalSlides  int                          `json:"totalSlides"`
}

// ChunkAnalysisResponse returns per-slide semantics for one chunk
type ChunkAnalysisResponse struct {
	Success bool                       `json:"success"`
	Slides  []extraction.AnalyzedSlide `json:"slides"`
	Message string                     `json:"message,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// DeckSummaryRequest asks for a deck-level summary over analyzed slides
type DeckSummaryRequest struct {
	JobID  string                     `json:"jobId,omitempty"`
	Slides []extraction.AnalyzedSlide `json:"slides"`
}

// DeckSummaryResponse contains the deck-level analysis
type DeckSummaryResponse struct {
	Success          bool     `json:"success"`
	OverallSummary   string   `json:"overallSummary"`
	KeyConcepts      []string `json:"keyConcepts"`
	PresentationType string   `json:"presentationType"`
	Message          string   `json:"message,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// NewVisionClient creates a new vision-analysis client
func NewVisionClient(baseURL string) *VisionClient {
	return &VisionClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // vision tasks can take time
		},
		logger: logging.NewLogger("VisionClient"),
	}
}

// HealthCheck verifies the vision service is reachable
func (c *VisionClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vision service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vision service health check returned status %d", resp.StatusCode)
	}
	return nil
}

// AnalyzeChunk submits one slide chunk for contextual analysis
func (c *VisionClient) AnalyzeChunk(ctx context.Context, req *ChunkAnalysisRequest) (*ChunkAnalysisResponse, error) {
	c.logger.Info("Requesting chunk analysis",
		"jobId", req.JobID,
		"slides", len(req.Slides),
		"startIndex", req.StartIndex)

	var result ChunkAnalysisResponse
	if err := c.post(ctx, "/api/v1/analyze/chunk", req, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("chunk analysis rejected: %s", result.Error)
	}
	return &result, nil
}

// SummarizeDeck asks for a deck-level summary over all analyzed slides
func (c *VisionClient) SummarizeDeck(ctx context.Context, req *DeckSummaryRequest) (*DeckSummaryResponse, error) {
	c.logger.Info("Requesting deck summary", "jobId", req.JobID, "slides", len(req.Slides))

	var result DeckSummaryResponse
	if err := c.post(ctx, "/api/v1/analyze/summary", req, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("deck summary rejected: %s", result.Error)
	}
	return &result, nil
}

func (c *VisionClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("vision service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vision service returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
