package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pidvault/internal/docs"
)

var (
	// ErrUnavailable is returned when no endpoint is configured or the
	// service cannot be reached.
	ErrUnavailable = errors.New("analysis service unavailable")
	// ErrBadResponse is returned for responses without a result table.
	ErrBadResponse = errors.New("invalid analysis response")
)

const maxResponseBytes = 16 << 20

type analyzeRequest struct {
	FileID    string `json:"fileId"`
	ProjectID string `json:"projectId"`
}

type analyzeResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Result string `json:"result"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// Client calls the analysis endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   docs.Logger
}

// NewClient creates a Client. An empty endpoint yields a client whose
// Analyze always fails with ErrUnavailable.
func NewClient(endpoint string, timeout time.Duration, logger docs.Logger) *Client {
	if logger == nil {
		logger = docs.NewNopLogger()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool { return c.endpoint != "" }

// Analyze asks the service to review one drawing and returns its findings.
func (c *Client) Analyze(ctx context.Context, fileID, projectID string) ([]Issue, error) {
	if !c.Configured() {
		return nil, ErrUnavailable
	}

	body, err := json.Marshal(analyzeRequest{FileID: fileID, ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("analysis response", "file", fileID, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	var out analyzeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if !out.Success || out.Data == nil || out.Data.Result == "" {
		return nil, fmt.Errorf("%w: no result table", ErrBadResponse)
	}

	issues, err := ParseTableString(out.Data.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	c.logger.Info("analysis received", "file", fileID, "project", projectID, "issues", len(issues))
	return issues, nil
}
