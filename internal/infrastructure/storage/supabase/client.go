package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/resilience"
)

// Client uploads objects through the Supabase Storage REST API.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, serviceKey string) *Client {
	return NewWithOptions(baseURL, serviceKey, Options{})
}

func NewWithOptions(baseURL, serviceKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, data io.Reader) error {
	call := func(ctx context.Context) error {
		return c.upload(ctx, bucket, key, contentType, data)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "supabase.storage.upload", call, isBreakerFailure)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapStorageError(err)
	}
	return nil
}

// PublicURL builds {base}/storage/v1/object/public/{bucket}/{key}.
func (c *Client) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(bucket), escapeKey(key))
}

func (c *Client) upload(ctx context.Context, bucket, key, contentType string, data io.Reader) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), escapeKey(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, data)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		req.Header.Set("apikey", c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  "upload " + bucket + "/" + key,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func escapeKey(key string) string {
	return (&url.URL{Path: strings.TrimLeft(key, "/")}).EscapedPath()
}
