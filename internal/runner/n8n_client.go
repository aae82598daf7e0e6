// Package runner triggers workflow executions on an n8n instance.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

// ErrTimeout is returned when the runner does not finish within the caller's deadline.
var ErrTimeout = errors.New("workflow runner timed out")

// Result is the outcome of one workflow run. A run that executed but failed is
// reported through Status, not through the error return.
type Result struct {
	ExecutionID string
	Status      domain.ExecutionStatus
	Output      map[string]any
	Error       string
}

// Runner executes an external workflow and blocks until it completes or ctx ends.
type Runner interface {
	Trigger(ctx context.Context, externalWorkflowID string, input map[string]any) (Result, error)
}

// N8NClient calls the n8n REST API.
type N8NClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewN8NClient builds a client. The caller's context carries the per-call timeout,
// so the http.Client itself only guards against hung connections.
func NewN8NClient(baseURL, apiKey string) *N8NClient {
	return &N8NClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

type runRequest struct {
	Input map[string]any `json:"input"`
}

type runResponse struct {
	ExecutionID string         `json:"executionId"`
	Status      string         `json:"status"`
	Data        map[string]any `json:"data"`
	Error       string         `json:"error"`
}

func (c *N8NClient) Trigger(ctx context.Context, externalWorkflowID string, input map[string]any) (Result, error) {
	b, err := json.Marshal(runRequest{Input: input})
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/api/v1/workflows/%s/run", c.baseURL, externalWorkflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-N8N-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("n8n responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded runResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, fmt.Errorf("decode n8n response: %w", err)
	}

	result := Result{
		ExecutionID: decoded.ExecutionID,
		Status:      domain.ExecutionStatusSuccess,
		Output:      decoded.Data,
	}
	switch strings.ToLower(decoded.Status) {
	case "", "success", "succeeded":
	default:
		result.Status = domain.ExecutionStatusFailed
		result.Error = decoded.Error
		if result.Error == "" {
			result.Error = "workflow finished with status " + decoded.Status
		}
	}
	return result, nil
}
