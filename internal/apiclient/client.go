package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultUserAgent = "pharmacare-bot/1.0"

// Config controls how the client behaves.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	Headers     map[string]string
	HTTPClient  *http.Client
	UserAgent   string
}

// Client issues JSON requests against a REST service with a small fixed
// retry budget for transport failures and 5xx responses. 4xx responses are
// never retried.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	headers     map[string]string
	userAgent   string
}

// New creates a configured client with sane defaults.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("apiclient: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		headers:     cfg.Headers,
		userAgent:   userAgent,
	}, nil
}

// Request issues method against path (relative to the base URL), marshalling
// body as JSON when non-nil, and returns the raw response body.
func (c *Client) Request(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: marshal request body: %w", err)
		}
		payload = b
	}
	return c.do(ctx, method, c.buildURL(path), payload, "application/json")
}

// Get is shorthand for a GET Request.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// Resource is a downloaded binary asset.
type Resource struct {
	Data        []byte
	ContentType string
	Size        int64
}

// Fetch downloads an absolute URL (provider-hosted media) and returns its
// bytes with the declared content type and size.
func (c *Client) Fetch(ctx context.Context, url string) (*Resource, error) {
	data, contentType, err := c.doRaw(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}
	return &Resource{
		Data:        data,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Upload posts a multipart form with one file part and optional extra
// fields, returning the raw response body.
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, fileField, fileName string, file []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("apiclient: write field %s: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, fmt.Errorf("apiclient: create form file: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, fmt.Errorf("apiclient: write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("apiclient: close multipart writer: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.buildURL(path), buf.Bytes(), writer.FormDataContentType())
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, error) {
	data, _, err := c.doRaw(ctx, method, url, body, contentType)
	return data, err
}

func (c *Client) doRaw(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, "", fmt.Errorf("apiclient: build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		if body != nil && contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", &TransportError{Err: ctx.Err()}
			}
			lastErr = &TransportError{Err: err}
			if !shouldRetry(0, err) || attempt == c.maxAttempts {
				return nil, "", lastErr
			}
			c.logRetry(url, attempt, 0, err)
			if sleepErr := c.sleep(ctx); sleepErr != nil {
				return nil, "", &TransportError{Err: sleepErr}
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, "", &TransportError{Err: readErr}
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, resp.Header.Get("Content-Type"), nil
		}

		httpErr := &HTTPError{Status: resp.StatusCode, Body: data}
		if attempt < c.maxAttempts && shouldRetry(resp.StatusCode, nil) {
			lastErr = httpErr
			c.logRetry(url, attempt, resp.StatusCode, httpErr)
			if sleepErr := c.sleep(ctx); sleepErr != nil {
				return nil, "", &TransportError{Err: sleepErr}
			}
			continue
		}
		return nil, "", httpErr
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", &TransportError{Err: errors.New("request failed without response")}
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(url string, attempt, status int, err error) {
	log.Warn().
		Str("url", url).
		Int("attempt", attempt).
		Int("status", status).
		Err(err).
		Msg("retrying backend request")
}

// Decode unmarshals a JSON response body into T.
func Decode[T any](body []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &v, nil
}

// DecodeList normalizes the heterogeneous list shapes the backend returns
// (a bare array, {"results": [...]} or {"data": [...]}) into one slice.
// Any other shape decodes as an empty list and is logged.
func DecodeList[T any](body []byte) ([]T, error) {
	var list []T
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Results []T `json:"results"`
		Data    []T `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if wrapped.Results != nil {
		return wrapped.Results, nil
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}

	log.Warn().Str("body", truncate(body, 200)).Msg("unexpected list response shape, treating as empty")
	return []T{}, nil
}
