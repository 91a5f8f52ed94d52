package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domrender "example.com/map-storefront/internal/domain/render"
)

type mockRenderer struct {
	got   *domrender.Request
	calls int
}

func (m *mockRenderer) Render(ctx context.Context, in domrender.Request) (*domrender.Image, error) {
	m.calls++
	m.got = &in
	return &domrender.Image{DataURL: "data:image/jpeg;base64,AA=="}, nil
}

func TestRender_RejectsUnknownTheme(t *testing.T) {
	r := &mockRenderer{}
	svc := NewService(r, []string{"copper", "midnight"})

	_, err := svc.Render(context.Background(), domrender.Request{ThemeID: "../../etc/passwd"})

	require.ErrorIs(t, err, domrender.ErrUnknownTheme)
	require.Zero(t, r.calls, "renderer must not be called for unknown themes")
}

func TestRender_NormalisesTheme(t *testing.T) {
	r := &mockRenderer{}
	svc := NewService(r, []string{"Copper"})

	img, err := svc.Render(context.Background(), domrender.Request{ThemeID: " COPPER ", Lat: 1, Lng: 2, Zoom: 10})

	require.NoError(t, err)
	require.NotEmpty(t, img.DataURL)
	require.Equal(t, "copper", r.got.ThemeID)
}
