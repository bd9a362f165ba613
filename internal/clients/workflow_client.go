/**
 * Workflow Platform Client for SlideAnalysis Worker
 *
 * Pushes the finished presentation analysis into an external workflow
 * platform dataset so it becomes searchable knowledge. Integration failures
 * never abort the job: the analysis is already persisted by then.
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

	"github.com/adverant/nexus/slideanalysis-worker/internal/logging"
)

// WorkflowClient handles communication with the workflow platform
type WorkflowClient struct {
	baseURL    string
	apiKey     string
	datasetID  string
	httpClient *http.Client
	logger     *logging.Logger
}

// WorkflowDocumentRequest represents a dataset document creation request
type WorkflowDocumentRequest struct {
	Name              string `json:"name"`
	Text              string `json:"text"`
	IndexingTechnique string `json:"indexing_technique"`
}

// WorkflowDocumentResponse represents the platform response
type WorkflowDocumentResponse struct {
	Document struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"document"`
	Batch string `json:"batch"`
}

// NewWorkflowClient creates a new workflow platform client.
// Returns nil when the integration is not configured; callers treat a nil
// client as "integration disabled".
func NewWorkflowClient(baseURL, apiKey, datasetID string) *WorkflowClient {
	if baseURL == "" || apiKey == "" || datasetID == "" {
		return nil
	}
	return &WorkflowClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		datasetID: datasetID,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logging.NewLogger("WorkflowClient"),
	}
}

// PushDocument uploads one analysis document into the configured dataset
func (c *WorkflowClient) PushDocument(ctx context.Context, name, text string) (*WorkflowDocumentResponse, error) {
	c.logger.Info("Pushing analysis document to workflow platform",
		"dataset", c.datasetID, "name", name, "chars", len(text))

	reqBody, err := json.Marshal(&WorkflowDocumentRequest{
		Name:              name,
		Text:              text,
		IndexingTechnique: "high_quality",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/datasets/%s/document/create-by-text", c.baseURL, c.datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow platform request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("workflow platform returned status %d: %s", resp.StatusCode, string(body))
	}

	var result WorkflowDocumentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}
