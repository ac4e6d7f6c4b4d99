package wanx

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

	"github.com/rs/zerolog"

	"github.com/YuppyChen/ai-images-creator/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("wanx: api key is required")

// Options configures the DashScope wanx text-to-image client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the DashScope asynchronous text-to-image API.
// Task creation and status retrieval are separate calls; the generation job
// itself runs on the provider's side and is only ever observed by polling.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// TaskRequest captures the inputs for creating a generation task.
type TaskRequest struct {
	Prompt string
	N      int
	Size   string
}

// Status enumerates the provider-side lifecycle of a task.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// TaskResult is the normalized status payload for one task.
type TaskResult struct {
	TaskID    string
	Status    Status
	ImageURLs []string
	Message   string
}

type createRequest struct {
	Model      string       `json:"model"`
	Input      createInput  `json:"input"`
	Parameters createParams `json:"parameters"`
}

type createInput struct {
	Prompt string `json:"prompt"`
}

type createParams struct {
	Size string `json:"size,omitempty"`
	N    int    `json:"n,omitempty"`
}

type createResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type statusResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Message    string `json:"message"`
		Results    []struct {
			URL     string `json:"url"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"results"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "wanx2.1-t2i-turbo"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreateTask submits an asynchronous generation job and returns the
// provider-issued task id.
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("wanx: prompt is required")
	}
	payload := createRequest{
		Model: c.model,
		Input: createInput{Prompt: prompt},
		Parameters: createParams{
			Size: req.Size,
			N:    req.N,
		},
	}
	if payload.Parameters.Size == "" {
		payload.Parameters.Size = "1024*1024"
	}
	if payload.Parameters.N <= 0 {
		payload.Parameters.N = 4
	}

	endpoint := c.baseURL + "/services/aigc/text2image/image-synthesis"
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("wanx: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("wanx: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-DashScope-Async", "enable")

	raw, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var decoded createResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("wanx: decode response: %w", err)
	}
	if decoded.Code != "" {
		return "", fmt.Errorf("wanx: %s (%s)", decoded.Message, decoded.Code)
	}
	taskID := strings.TrimSpace(decoded.Output.TaskID)
	if taskID == "" {
		return "", errors.New("wanx: response missing task id")
	}
	c.logger.Debug().Str("task_id", taskID).Str("model", c.model).Msg("wanx task created")
	return taskID, nil
}

// GetTask fetches the current status of a task. Unrecognized provider
// statuses are surfaced verbatim; callers treat them as still in progress.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("wanx: task id is required")
	}

	endpoint := c.baseURL + "/tasks/" + taskID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("wanx: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("wanx: decode response: %w", err)
	}
	if decoded.Code != "" {
		return nil, fmt.Errorf("wanx: %s (%s)", decoded.Message, decoded.Code)
	}

	result := &TaskResult{
		TaskID:  decoded.Output.TaskID,
		Status:  Status(strings.ToUpper(strings.TrimSpace(decoded.Output.TaskStatus))),
		Message: strings.TrimSpace(decoded.Output.Message),
	}
	for _, item := range decoded.Output.Results {
		if url := strings.TrimSpace(item.URL); url != "" {
			result.ImageURLs = append(result.ImageURLs, url)
			continue
		}
		if result.Message == "" && item.Message != "" {
			result.Message = strings.TrimSpace(item.Message)
		}
	}
	return result, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wanx: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wanx: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, fmt.Errorf("wanx: %s (%s)", detail.Message, detail.Code)
		}
		return nil, fmt.Errorf("wanx: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
