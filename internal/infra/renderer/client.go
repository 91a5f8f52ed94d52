// Package renderer talks to the external map rasterizer service. Jobs are
// submitted and then polled; each request carries a short-lived HS256 token
// signed with the shared secret.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	domrender "example.com/map-storefront/internal/domain/render"
	"example.com/map-storefront/internal/pkg/poll"
)

type Config struct {
	BaseURL      string
	Secret       string
	PollInterval time.Duration
	MaxAttempts  int
	HTTPClient   *http.Client
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 45
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: hc, logger: logger.With(zap.String("component", "renderer")), now: time.Now}
}

type jobRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Zoom    float64 `json:"zoom"`
	ThemeID string  `json:"themeId"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
}

type jobStatus struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Error  string `json:"error"`
	Image  string `json:"image"`
}

func (c *Client) Render(ctx context.Context, in domrender.Request) (*domrender.Image, error) {
	if c.cfg.BaseURL == "" || c.cfg.Secret == "" {
		return nil, domrender.ErrNotConfigured
	}

	var job jobStatus
	if err := c.call(ctx, http.MethodPost, "/jobs", jobRequest{
		Lat: in.Lat, Lng: in.Lng, Zoom: in.Zoom, ThemeID: in.ThemeID, Width: in.Width, Height: in.Height,
	}, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("%w: renderer returned no job id", domrender.ErrRenderFailed)
	}

	var image string
	err := poll.Until(ctx, poll.Config{Interval: c.cfg.PollInterval, MaxAttempts: c.cfg.MaxAttempts},
		func(ctx context.Context, attempt int) (bool, error) {
			var st jobStatus
			if err := c.call(ctx, http.MethodGet, "/jobs/"+url.PathEscape(job.JobID), nil, &st); err != nil {
				c.logger.Warn("render job poll failed", zap.String("job_id", job.JobID), zap.Int("attempt", attempt), zap.Error(err))
				return false, nil
			}
			switch st.Status {
			case "done":
				if st.Image == "" {
					return false, fmt.Errorf("%w: job finished without image", domrender.ErrRenderFailed)
				}
				image = st.Image
				return true, nil
			case "failed":
				return false, fmt.Errorf("%w: %s", domrender.ErrRenderFailed, st.Error)
			default:
				return false, nil
			}
		})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", domrender.ErrRenderTimeout, err)
		}
		return nil, err
	}

	if !strings.HasPrefix(image, "data:") {
		image = "data:image/jpeg;base64," + image
	}
	return &domrender.Image{DataURL: image}, nil
}

func (c *Client) token() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    "map-storefront",
		Audience:  jwt.ClaimStrings{"renderer"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.cfg.Secret))
}

func (c *Client) call(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	tok, err := c.token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domrender.ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domrender.ErrRenderFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(b)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("%w: renderer returned %d: %s", domrender.ErrRenderFailed, resp.StatusCode, snippet)
	}
	return json.Unmarshal(b, out)
}
