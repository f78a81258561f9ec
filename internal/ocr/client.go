package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Status of a remote OCR job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// ErrJobFailed is returned by Wait when the remote job ends in failure.
var ErrJobFailed = fmt.Errorf("ocr job failed")

// Result is the recognized text for one document.
type Result struct {
	JobID      string  `json:"job_id"`
	Status     Status  `json:"status"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// Config holds the configuration for the hosted OCR service client
type Config struct {
	APIURL       string
	APIKey       string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func (c Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("OCR API URL is required")
	}
	return nil
}

// Client submits documents to the hosted OCR service and polls the
// resulting jobs. Thread-safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Minute
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Submit uploads a document and returns the remote job id.
func (c *Client) Submit(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL+"/jobs", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OCR submit failed with status %d: %s", resp.StatusCode, string(payload))
	}

	var submitted struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("failed to parse submit response: %w", err)
	}
	if submitted.JobID == "" {
		return "", fmt.Errorf("OCR submit returned no job id")
	}
	return submitted.JobID, nil
}

// Result fetches the current state of a job.
func (c *Client) Result(ctx context.Context, jobID string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OCR job fetch failed with status %d: %s", resp.StatusCode, string(payload))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse job response: %w", err)
	}
	if result.JobID == "" {
		result.JobID = jobID
	}
	return &result, nil
}

// Wait polls the job on the configured interval until it reaches a
// terminal state, the poll timeout expires, or ctx is cancelled.
func (c *Client) Wait(ctx context.Context, jobID string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		result, err := c.Result(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case StatusDone:
			return result, nil
		case StatusFailed:
			return result, fmt.Errorf("%w: %s", ErrJobFailed, result.Error)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for OCR job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) setAuth(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}
