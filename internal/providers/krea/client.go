package krea

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

	"eduvision/internal/infra"
)

const (
	// DefaultBaseURL is the public Krea API host.
	DefaultBaseURL = "https://api.krea.ai"

	createJobPath = "/generate/image/bfl/flux-1-dev"
	jobsPath      = "/jobs/"
)

// ErrMissingAPIKey indicates that a call was attempted without a credential.
var ErrMissingAPIKey = errors.New("krea: api key is required")

// Options configures the Krea client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *infra.Logger
}

// Client performs HTTP calls to the Krea job API. The credential is passed per
// call because the caller rotates through a pool of keys.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// CreateJobRequest is the body of the job creation call.
type CreateJobRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"steps"`
}

// CreateJobResponse is a decoded 2xx creation response. JobID is empty when
// the upstream accepted the call but returned no identifier.
type CreateJobResponse struct {
	JobID string
	Body  []byte
}

// Details returns the raw response in a form suitable for a JSON error payload.
func (r *CreateJobResponse) Details() any {
	return details(r.Body)
}

// JobStatus is a decoded 2xx status response.
type JobStatus struct {
	Status   string
	ImageURL string
	Body     []byte
}

// Details returns the raw response in a form suitable for a JSON error payload.
func (s *JobStatus) Details() any {
	return details(s.Body)
}

// APIError is returned for any non-2xx response. Every other error returned by
// the client is a transport or decoding failure.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("krea: http %d", e.StatusCode)
	}
	return fmt.Sprintf("krea: http %d: %s", e.StatusCode, e.Message)
}

// Details returns the raw response in a form suitable for a JSON error payload.
func (e *APIError) Details() any {
	return details(e.Body)
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// CreateJob submits a generation job using the given key.
func (c *Client) CreateJob(ctx context.Context, apiKey string, req CreateJobRequest) (*CreateJobResponse, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("krea: encode request: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+createJobPath, apiKey, body)
	if err != nil {
		return nil, err
	}

	out := &CreateJobResponse{Body: raw}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		out.JobID = jobID(decoded["job_id"])
	}
	c.logger.Debug().
		Str("job_id", out.JobID).
		Int("width", req.Width).
		Int("height", req.Height).
		Int("steps", req.Steps).
		Msg("krea: job created")
	return out, nil
}

// GetJob fetches the current status of a job using the key that created it.
func (c *Client) GetJob(ctx context.Context, apiKey, id string) (*JobStatus, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("krea: job id is required")
	}
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+jobsPath+url.PathEscape(id), apiKey, nil)
	if err != nil {
		return nil, err
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("krea: decode job status: %w", err)
	}
	status, _ := decoded["status"].(string)
	out := &JobStatus{
		Status:   status,
		ImageURL: firstImageURL(decoded),
		Body:     raw,
	}
	c.logger.Debug().
		Str("job_id", id).
		Str("status", status).
		Bool("has_image", out.ImageURL != "").
		Msg("krea: job polled")
	return out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, apiKey string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("krea: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("krea: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("krea: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Body:       raw,
		}
	}
	return raw, nil
}

// errorMessage picks the most specific message from an error body: the
// "error" field (string, or an object's "message"), then "message", then the
// raw text.
func errorMessage(raw []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err == nil {
		switch v := doc["error"].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && strings.TrimSpace(msg) != "" {
				return msg
			}
		}
		if msg, ok := doc["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(raw))
}

// firstImageURL checks the known result locations in order and returns the
// first non-empty URL.
func firstImageURL(doc map[string]any) string {
	result, _ := doc["result"].(map[string]any)
	if urls, ok := result["urls"].([]any); ok && len(urls) > 0 {
		if u := stringValue(urls[0]); u != "" {
			return u
		}
	}
	if images, ok := result["images"].([]any); ok && len(images) > 0 {
		if img, ok := images[0].(map[string]any); ok {
			if u := stringValue(img["url"]); u != "" {
				return u
			}
		}
	}
	if u := stringValue(result["image_url"]); u != "" {
		return u
	}
	if u := stringValue(doc["image_url"]); u != "" {
		return u
	}
	if output, ok := doc["output"].(map[string]any); ok {
		if u := stringValue(output["url"]); u != "" {
			return u
		}
	}
	return ""
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func jobID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

func details(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	return string(trimmed)
}
