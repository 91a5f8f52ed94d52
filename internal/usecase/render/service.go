package render

import (
	"context"
	"strings"

	domrender "example.com/map-storefront/internal/domain/render"
)

type Renderer interface {
	Render(ctx context.Context, in domrender.Request) (*domrender.Image, error)
}

type Service struct {
	renderer Renderer
	themes   map[string]struct{}
}

func NewService(renderer Renderer, themes []string) *Service {
	allowed := make(map[string]struct{}, len(themes))
	for _, t := range themes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Service{renderer: renderer, themes: allowed}
}

// Render forwards only allowlisted themes; coordinates are range-checked at
// the HTTP edge.
func (s *Service) Render(ctx context.Context, in domrender.Request) (*domrender.Image, error) {
	theme := strings.ToLower(strings.TrimSpace(in.ThemeID))
	if _, ok := s.themes[theme]; !ok {
		return nil, domrender.ErrUnknownTheme
	}
	in.ThemeID = theme
	return s.renderer.Render(ctx, in)
}
