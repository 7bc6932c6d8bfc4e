package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// ClientConfig tunes the HTTP client for the indexing service.
type ClientConfig struct {
	// BaseURL is the indexing service root, e.g. "http://embeddings:8000".
	BaseURL string
	// Timeout bounds each individual request.
	Timeout time.Duration
	// RetryAttempts is the number of retries after the first failure.
	RetryAttempts int
	// RetryBackoff is the initial backoff between retries.
	RetryBackoff time.Duration
	// MaxRetryBackoff caps the exponential backoff.
	MaxRetryBackoff time.Duration
	// RetryJitter randomizes backoff by +/- this fraction (0.0-1.0).
	RetryJitter float64
}

// DefaultClientConfig returns production defaults: short bounded retries so
// the synchronous notification path never stalls a mutating request for
// long.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:         baseURL,
		Timeout:         10 * time.Second,
		RetryAttempts:   3,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
		RetryJitter:     0.25,
	}
}

func (c *ClientConfig) validate() error {
	if c.BaseURL == "" {
		return errors.New("index: base url required")
	}
	if c.RetryAttempts < 0 {
		return errors.New("index: retry attempts must be non-negative")
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		return errors.New("index: retry jitter must be between 0 and 1")
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.MaxRetryBackoff < c.RetryBackoff {
		c.MaxRetryBackoff = c.RetryBackoff
	}
	return nil
}

// StatusError reports a non-2xx response from the indexing service.
type StatusError struct {
	Code int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("index: service returned status %d", e.Code)
}

// Client speaks the indexing service wire contract: POST /index with
// {texts, metadatas, ids} to upsert and POST /delete with {ids} to remove.
// Any 2xx response is success.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient validates cfg and builds a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type indexPayload struct {
	Texts     []string         `json:"texts"`
	Metadatas []map[string]any `json:"metadatas"`
	IDs       []string         `json:"ids"`
}

type deletePayload struct {
	IDs []string `json:"ids"`
}

// Index upserts documents. Documents sharing a key overwrite in place.
func (c *Client) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	payload := indexPayload{
		Texts:     make([]string, 0, len(docs)),
		Metadatas: make([]map[string]any, 0, len(docs)),
		IDs:       make([]string, 0, len(docs)),
	}
	for _, d := range docs {
		payload.Texts = append(payload.Texts, d.Text)
		payload.Metadatas = append(payload.Metadatas, d.Metadata)
		payload.IDs = append(payload.IDs, d.Key)
	}
	return c.post(ctx, "/index", payload)
}

// Delete removes documents by key. Deleting an absent key is a success.
func (c *Client) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.post(ctx, "/delete", deletePayload{IDs: keys})
}

// post sends the payload with bounded exponential-backoff retries. Retries
// apply to transport failures and retryable status codes only; the loop
// always terminates, so a dead index service adds at most a few seconds of
// latency rather than blocking the caller.
func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("index: encode payload: %w", err)
	}
	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + path

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
		lastErr = c.doOnce(ctx, url, body)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusError{Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
	if d > c.cfg.MaxRetryBackoff {
		d = c.cfg.MaxRetryBackoff
	}
	jitter := (rand.Float64()*2 - 1) * c.cfg.RetryJitter * float64(d)
	d = time.Duration(float64(d) + jitter)
	if d < 0 {
		d = c.cfg.RetryBackoff
	}
	return d
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	// transport-level failure
	return true
}
