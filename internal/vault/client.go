package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when the vault has no object under a key.
var ErrNotFound = fmt.Errorf("vault object not found")

// Object is a stored document plus its metadata.
type Object struct {
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Metadata    map[string]string `json:"metadata"`
	Data        []byte            `json:"-"`
}

// Config holds the configuration for the vault client
type Config struct {
	APIURL string
	APIKey string
	Bucket string
}

func (c Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("vault API URL is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("vault bucket is required")
	}
	return nil
}

// Client talks to the hosted vault: object upload/download plus
// metadata patching. Thread-safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (c *Client) objectURL(key string) string {
	return fmt.Sprintf("%s/buckets/%s/objects/%s",
		c.config.APIURL, url.PathEscape(c.config.Bucket), url.PathEscape(key))
}

// Put stores data under key, replacing any existing object.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", key, err)
	}
	defer resp.Body.Close()
	return c.checkStatus(resp, key)
}

// Get fetches the object stored under key.
func (c *Client) Get(ctx context.Context, key string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object %s: %w", key, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, key); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return &Object{
		Key:         key,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// PatchMetadata merges meta into the object's metadata. Existing keys
// not named in meta are left intact.
func (c *Client) PatchMetadata(ctx context.Context, key string, meta map[string]string) error {
	payload, err := json.Marshal(map[string]any{"metadata": meta})
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.objectURL(key)+"/metadata", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to patch metadata for %s: %w", key, err)
	}
	defer resp.Body.Close()
	return c.checkStatus(resp, key)
}

// Delete removes the object stored under key. Deleting a missing key
// is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return c.checkStatus(resp, key)
}

// List returns the object listing for the configured bucket.
func (c *Client) List(ctx context.Context) ([]Object, error) {
	listURL := fmt.Sprintf("%s/buckets/%s/objects", c.config.APIURL, url.PathEscape(c.config.Bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vault list failed with status %d: %s", resp.StatusCode, string(payload))
	}

	var listing struct {
		Objects []Object `json:"objects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	return listing.Objects, nil
}

func (c *Client) checkStatus(resp *http.Response, key string) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vault request for %s failed with status %d: %s", key, resp.StatusCode, string(payload))
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}
