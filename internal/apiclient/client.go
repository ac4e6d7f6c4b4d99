package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
)

// Client is a typed HTTP client for the generation API, used by the polling
// coordinator and the genctl CLI.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Options configures the Client.
type Options struct {
	BaseURL        string
	Token          string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type startResponse struct {
	TaskID string `json:"task_id"`
}

type outcomeResponse struct {
	Status    string   `json:"status"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Message   string   `json:"message,omitempty"`
}

type creditsResponse struct {
	Credits int `json:"credits"`
}

type historyItem struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	ImageURLs []string  `json:"image_urls"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	History []historyItem `json:"history"`
}

// New constructs a client for the server at baseURL, authenticating with the
// given bearer token.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.Token),
		httpClient: httpClient,
	}, nil
}

// StartGeneration submits a prompt and returns the provider task id.
func (c *Client) StartGeneration(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("apiclient: encode request: %w", err)
	}
	var decoded startResponse
	if err := c.call(ctx, http.MethodPost, "/v1/generations", bytes.NewReader(body), &decoded); err != nil {
		return "", err
	}
	if decoded.TaskID == "" {
		return "", errors.New("apiclient: response missing task id")
	}
	return decoded.TaskID, nil
}

// TaskOutcome fetches the tagged outcome for a task.
func (c *Client) TaskOutcome(ctx context.Context, taskID string) (domain.GenerationOutcome, error) {
	var decoded outcomeResponse
	path := "/v1/generations/" + url.PathEscape(taskID)
	if err := c.call(ctx, http.MethodGet, path, nil, &decoded); err != nil {
		return domain.GenerationOutcome{}, err
	}
	return domain.GenerationOutcome{
		State:     domain.OutcomeState(decoded.Status),
		ImageURLs: decoded.ImageURLs,
		Message:   decoded.Message,
	}, nil
}

// Credits returns the caller's remaining balance.
func (c *Client) Credits(ctx context.Context) (int, error) {
	var decoded creditsResponse
	if err := c.call(ctx, http.MethodGet, "/v1/me/credits", nil, &decoded); err != nil {
		return 0, err
	}
	return decoded.Credits, nil
}

// History lists the caller's past generations, newest first.
func (c *Client) History(ctx context.Context, limit, offset int) ([]domain.HistoryRecord, error) {
	path := "/v1/me/history?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var decoded historyResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &decoded); err != nil {
		return nil, err
	}
	records := make([]domain.HistoryRecord, 0, len(decoded.History))
	for _, item := range decoded.History {
		records = append(records, domain.HistoryRecord{
			ID:        item.ID,
			Prompt:    item.Prompt,
			ImageURLs: item.ImageURLs,
			CreatedAt: item.CreatedAt,
		})
	}
	return records, nil
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
			return fmt.Errorf("apiclient: %s (%s)", envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("apiclient: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}
