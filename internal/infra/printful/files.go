package printful

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	domfulfillment "example.com/map-storefront/internal/domain/fulfillment"
)

type fileResult struct {
	ID         json.Number `json:"id"`
	URL        string      `json:"url"`
	PreviewURL string      `json:"preview_url"`
}

// UploadFile decodes a data URI (or bare base64) and stores the bytes as a
// Printful file asset.
func (c *Client) UploadFile(ctx context.Context, dataURL, filename string) (*domfulfillment.File, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %w", domfulfillment.ErrUploadFailed, domfulfillment.ErrNotConfigured)
	}
	contentType, raw, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domfulfillment.ErrUploadFailed, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domfulfillment.ErrUploadFailed, err)
	}
	if _, err := part.Write(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domfulfillment.ErrUploadFailed, err)
	}
	if err := mw.WriteField("filename", filename); err != nil {
		return nil, fmt.Errorf("%w: %v", domfulfillment.ErrUploadFailed, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", domfulfillment.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/files", &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domfulfillment.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res fileResult
	if err := c.do(req, "upload file", domfulfillment.ErrUploadFailed, &res); err != nil {
		return nil, err
	}
	if res.URL == "" {
		return nil, fmt.Errorf("%w: provider returned no file url", domfulfillment.ErrUploadFailed)
	}
	return &domfulfillment.File{ID: res.ID.String(), URL: res.URL}, nil
}

// DecodeDataURL splits "data:<mime>;base64,<payload>" into its content type
// and bytes. Input without the data: prefix is treated as base64 JPEG.
func DecodeDataURL(s string) (string, []byte, error) {
	contentType := "image/jpeg"
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, "data:") {
		meta, data, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return "", nil, domfulfillment.ErrInvalidImage
		}
		if mt := strings.TrimSuffix(meta, ";base64"); mt != "" {
			contentType = mt
		}
		payload = data
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, domfulfillment.ErrInvalidImage
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) == 0 {
		return "", nil, domfulfillment.ErrInvalidImage
	}
	return contentType, raw, nil
}
