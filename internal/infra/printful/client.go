// Package printful is a minimal Printful REST client covering file upload,
// draft order creation and the mockup generator task API.
package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	domfulfillment "example.com/map-storefront/internal/domain/fulfillment"
)

const DefaultBaseURL = "https://api.printful.com"

type Config struct {
	APIKey         string
	BaseURL        string
	StoreID        string
	VariantID      int64
	ProductID      int64
	MockupInterval time.Duration
	MockupAttempts int
	HTTPClient     *http.Client
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MockupInterval == 0 {
		cfg.MockupInterval = time.Second
	}
	if cfg.MockupAttempts == 0 {
		cfg.MockupAttempts = 60
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: hc, logger: logger.With(zap.String("component", "printful"))}
}

// envelope is Printful's response wrapper.
type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// do sends req and decodes the result field into out. Non-2xx statuses are
// returned as *ProviderError wrapping sentinel.
func (c *Client) do(req *http.Request, op string, sentinel error, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.StoreID != "" {
		req.Header.Set("X-PF-Store-Id", c.cfg.StoreID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", sentinel, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", sentinel, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domfulfillment.ProviderError{Op: op, Status: resp.StatusCode, Body: truncate(string(body), 500), Err: sentinel}
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %s: decode envelope: %v", sentinel, op, err)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %s: decode result: %v", sentinel, op, err)
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
