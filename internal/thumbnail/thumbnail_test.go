package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anticine/anticine/internal/cinema"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// stripes returns a w x h image with red even rows and blue odd rows.
func stripes(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y%2 == 0 {
				img.SetNRGBA(x, y, red)
			} else {
				img.SetNRGBA(x, y, blue)
			}
		}
	}
	return img
}

func TestRender(t *testing.T) {
	cell := "\x1b[48;2;255;0;0m\x1b[38;2;0;0;255m▄\x1b[0m"
	got := Render(stripes(2, 4), 2, 4)
	assert.Equal(t, cell+cell+"\n"+cell+cell+"\n", got)
}

func TestRender_Transparent(t *testing.T) {
	img := stripes(2, 2)
	img.SetNRGBA(0, 0, color.NRGBA{})

	got := Render(img, 2, 2)
	assert.Equal(t, "\x1b[0m"+"\x1b[48;2;255;0;0m\x1b[38;2;0;0;255m▄\x1b[0m\n", got)
}

func TestRender_DefaultSize(t *testing.T) {
	got := Render(stripes(300, 400), 0, 0)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	assert.Len(t, lines, DefaultHeight/2)
	assert.Equal(t, DefaultWidth, strings.Count(lines[0], "▄"))
}

func TestAverageColor(t *testing.T) {
	assert.Equal(t, cinema.RGB{R: 127, G: 0, B: 127}, AverageColor(stripes(4, 4)))

	empty := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	assert.Equal(t, cinema.RGB{}, AverageColor(empty))
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetcher_Fetch(t *testing.T) {
	var hits atomic.Int32
	body := pngBytes(t, stripes(4, 4))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	dir := t.TempDir()
	f := NewFetcher(dir)

	path, err := f.Fetch(context.Background(), "HO00001", server.URL+"/HO00001.jpg")
	require.NoError(t, err)
	assert.Equal(t, f.Path("HO00001"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, data)

	// cached on disk
	_, err = f.Fetch(context.Background(), "HO00001", server.URL+"/HO00001.jpg")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f := NewFetcher(t.TempDir())
	_, err := f.Fetch(context.Background(), "HO00001", server.URL)
	assert.ErrorIs(t, err, ErrNoPoster)

	_, statErr := os.Stat(f.Path("HO00001"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_Fetch_RejectsPathLikeIDs(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	root := t.TempDir()
	outside := filepath.Join(root, "x.jpg")
	require.NoError(t, os.WriteFile(outside, pngBytes(t, stripes(4, 4)), 0o644))

	f := NewFetcher(filepath.Join(root, "cache"))
	for _, id := range []string{"../x", "a/b", `a\b`, "..", ".", ""} {
		_, err := f.Fetch(context.Background(), id, server.URL)
		assert.ErrorIs(t, err, ErrInvalidFilmID, id)
	}
	assert.Zero(t, hits.Load())

	_, err := NewService(f, 0, 0).Thumbnail(context.Background(), "../x", server.URL)
	assert.ErrorIs(t, err, ErrInvalidFilmID)
}

func TestService_Thumbnail(t *testing.T) {
	body := pngBytes(t, stripes(24, 36))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer server.Close()

	svc := NewService(NewFetcher(t.TempDir()), 0, 0)
	thumb, err := svc.Thumbnail(context.Background(), "HO00001", server.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, thumb.Width)
	assert.Equal(t, DefaultHeight/2, thumb.Height)
	assert.Equal(t, cinema.RGB{R: 127, G: 0, B: 127}, thumb.AverageColor)
	assert.Equal(t, DefaultHeight/2, strings.Count(thumb.Art, "\n"))
}

func TestService_Thumbnail_BadImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer server.Close()

	svc := NewService(NewFetcher(t.TempDir()), 0, 0)
	_, err := svc.Thumbnail(context.Background(), "HO00001", server.URL)
	assert.Error(t, err)
}
