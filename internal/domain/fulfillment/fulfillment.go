package fulfillment

import (
	"strings"

	domorder "example.com/map-storefront/internal/domain/order"
)

// File is an asset stored at the provider. ID feeds mockup generation and
// URL is referenced by print orders.
type File struct {
	ID  string
	URL string
}

type OrderRequest struct {
	FileURL      string
	Recipient    domorder.Address
	ExternalID   string
	ProductLabel string
}

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

type MockupImage struct {
	Title string
	URL   string
}

type MockupResult struct {
	PrimaryURL   string
	Alternatives []MockupImage
}

var preferredMockupKeywords = []string{"lifestyle", "room", "wall", "interior"}

// SelectMockupURL picks the preview shown to the customer: an in-context
// alternative when one exists, else the first alternative, else the primary.
func SelectMockupURL(res MockupResult) string {
	for _, alt := range res.Alternatives {
		title := strings.ToLower(alt.Title)
		for _, kw := range preferredMockupKeywords {
			if strings.Contains(title, kw) && alt.URL != "" {
				return alt.URL
			}
		}
	}
	if len(res.Alternatives) > 0 && res.Alternatives[0].URL != "" {
		return res.Alternatives[0].URL
	}
	return res.PrimaryURL
}
