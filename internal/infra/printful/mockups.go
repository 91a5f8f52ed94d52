package printful

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	domfulfillment "example.com/map-storefront/internal/domain/fulfillment"
	"example.com/map-storefront/internal/pkg/poll"
)

type mockupFile struct {
	Placement string `json:"placement"`
	ImageURL  string `json:"image_url"`
}

type createTaskRequest struct {
	VariantIDs []int64      `json:"variant_ids"`
	Format     string       `json:"format"`
	Files      []mockupFile `json:"files"`
}

type taskResult struct {
	TaskKey string `json:"task_key"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Mockups []struct {
		MockupURL string `json:"mockup_url"`
		Extra     []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"extra"`
	} `json:"mockups"`
}

// GenerateMockup submits a mockup task for the uploaded file and polls it
// until it completes, fails or the attempt budget runs out.
func (c *Client) GenerateMockup(ctx context.Context, fileURL string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: %w", domfulfillment.ErrMockupFailed, domfulfillment.ErrNotConfigured)
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost,
		fmt.Sprintf("/mockup-generator/create-task/%d", c.cfg.ProductID),
		createTaskRequest{
			VariantIDs: []int64{c.cfg.VariantID},
			Format:     "jpg",
			Files:      []mockupFile{{Placement: "default", ImageURL: fileURL}},
		})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domfulfillment.ErrMockupFailed, err)
	}

	var task taskResult
	if err := c.do(req, "create mockup task", domfulfillment.ErrMockupFailed, &task); err != nil {
		return "", err
	}
	if task.TaskKey == "" {
		return "", fmt.Errorf("%w: provider returned no task key", domfulfillment.ErrMockupFailed)
	}

	var result domfulfillment.MockupResult
	err = poll.Until(ctx, poll.Config{Interval: c.cfg.MockupInterval, MaxAttempts: c.cfg.MockupAttempts},
		func(ctx context.Context, attempt int) (bool, error) {
			st, err := c.mockupTask(ctx, task.TaskKey)
			if err != nil {
				c.logger.Warn("mockup task poll failed",
					zap.String("task_key", task.TaskKey),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				return false, nil
			}
			switch domfulfillment.TaskStatus(st.Status) {
			case domfulfillment.TaskCompleted:
				if len(st.Mockups) == 0 {
					return false, fmt.Errorf("%w: task completed without mockups", domfulfillment.ErrMockupFailed)
				}
				m := st.Mockups[0]
				result.PrimaryURL = m.MockupURL
				for _, e := range m.Extra {
					result.Alternatives = append(result.Alternatives, domfulfillment.MockupImage{Title: e.Title, URL: e.URL})
				}
				return true, nil
			case domfulfillment.TaskFailed:
				return false, fmt.Errorf("%w: %s", domfulfillment.ErrMockupFailed, st.Error)
			default:
				return false, nil
			}
		})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return "", fmt.Errorf("%w: %w", domfulfillment.ErrMockupTimeout, err)
		}
		if errors.Is(err, domfulfillment.ErrMockupFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domfulfillment.ErrMockupFailed, err)
	}

	mockupURL := domfulfillment.SelectMockupURL(result)
	if mockupURL == "" {
		return "", fmt.Errorf("%w: empty mockup url", domfulfillment.ErrMockupFailed)
	}
	return mockupURL, nil
}

func (c *Client) mockupTask(ctx context.Context, taskKey string) (*taskResult, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/mockup-generator/task?task_key="+url.QueryEscape(taskKey), nil)
	if err != nil {
		return nil, err
	}
	var st taskResult
	if err := c.do(req, "get mockup task", domfulfillment.ErrMockupFailed, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
