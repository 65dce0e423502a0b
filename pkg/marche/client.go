package marche

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marche241/storefront-gateway/pkg/logger"
)

// Client calls the Marché241 REST API. It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithHTTPClient swaps the underlying transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

type tokenKey struct{}

// WithToken attaches a seller bearer token to ctx; calls made with the
// returned context authenticate as that seller.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token attached to ctx, if any.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// do performs one request. A nil payload sends no body; a nil out discards
// the response body after the envelope has been checked.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Marché241 API unreachable", logger.Fields{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return &APIError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Method: method, Path: path, Message: "failed to read response body", Err: err}
	}

	logger.Debug("Marché241 API call", logger.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(method, path, resp.StatusCode, respBody)
	}

	// Some endpoints answer 200 with success=false on business rejections
	var env Envelope
	if len(respBody) > 0 && json.Unmarshal(respBody, &env) == nil && !env.Success && hasSuccessField(respBody) {
		return &APIError{
			Status:  http.StatusBadRequest,
			Code:    env.Code,
			Message: firstNonEmpty(env.Message, env.Error),
			Method:  method,
			Path:    path,
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		logger.Warn("Undecodable Marché241 API response", logger.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"error":  err.Error(),
		})
		return &APIError{
			Status:  resp.StatusCode,
			Message: "undecodable response body",
			Method:  method,
			Path:    path,
			Err:     err,
		}
	}
	return nil
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Method: method, Path: path}

	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Code = env.Code
		apiErr.Message = firstNonEmpty(env.Message, env.Error)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func hasSuccessField(body []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	_, ok := probe["success"]
	return ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
