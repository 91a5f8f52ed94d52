package printful

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	domfulfillment "example.com/map-storefront/internal/domain/fulfillment"
)

type orderRecipient struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type orderFile struct {
	URL string `json:"url"`
}

type orderItem struct {
	VariantID int64       `json:"variant_id"`
	Quantity  int         `json:"quantity"`
	Name      string      `json:"name,omitempty"`
	Files     []orderFile `json:"files"`
}

type createOrderRequest struct {
	ExternalID string         `json:"external_id"`
	Shipping   string         `json:"shipping"`
	Recipient  orderRecipient `json:"recipient"`
	Items      []orderItem    `json:"items"`
}

type orderResult struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
}

// CreateOrder places a draft order. Drafts are not charged or produced until
// confirmed, which leaves final approval to an operator.
func (c *Client) CreateOrder(ctx context.Context, in domfulfillment.OrderRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: %w", domfulfillment.ErrOrderCreationFailed, domfulfillment.ErrNotConfigured)
	}
	r := in.Recipient
	payload := createOrderRequest{
		ExternalID: in.ExternalID,
		Shipping:   "STANDARD",
		Recipient: orderRecipient{
			Name:        r.Name,
			Address1:    r.Line1,
			Address2:    r.Line2,
			City:        r.City,
			StateCode:   r.State,
			CountryCode: r.CountryCode,
			Zip:         r.PostalCode,
			Email:       r.Email,
			Phone:       r.Phone,
		},
		Items: []orderItem{{
			VariantID: c.cfg.VariantID,
			Quantity:  1,
			Name:      in.ProductLabel,
			Files:     []orderFile{{URL: in.FileURL}},
		}},
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/orders?confirm=false", payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domfulfillment.ErrOrderCreationFailed, err)
	}

	var res orderResult
	if err := c.do(req, "create order", domfulfillment.ErrOrderCreationFailed, &res); err != nil {
		return "", err
	}
	if res.ID.String() == "" {
		return "", fmt.Errorf("%w: provider returned no order id", domfulfillment.ErrOrderCreationFailed)
	}
	c.logger.Info("printful order created",
		zap.String("external_id", in.ExternalID),
		zap.String("order_id", res.ID.String()),
		zap.String("status", res.Status),
	)
	return res.ID.String(), nil
}
