package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/anticine/anticine/internal/cinema"
)

var (
	// ErrNoPoster is returned when the poster cannot be downloaded.
	ErrNoPoster = errors.New("poster unavailable")
	// ErrInvalidFilmID is returned for film ids that are not a plain file name.
	ErrInvalidFilmID = errors.New("invalid film id")
)

// Fetcher downloads posters into a local cache directory.
type Fetcher struct {
	dir        string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.log = l
	}
}

// NewFetcher creates a fetcher caching files under dir.
func NewFetcher(dir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		dir:        dir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the cache location of a film's poster.
func (f *Fetcher) Path(filmID string) string {
	return filepath.Join(f.dir, filmID+".jpg")
}

// Fetch makes sure the poster is on disk and returns its path. An existing
// file is reused without contacting the server.
func (f *Fetcher) Fetch(ctx context.Context, filmID, url string) (string, error) {
	if !validFilmID(filmID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilmID, filmID)
	}
	path := f.Path(filmID)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPoster, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrNoPoster, resp.Status)
	}

	tmp, err := os.CreateTemp(f.dir, filmID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", ErrNoPoster, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move poster: %w", err)
	}

	f.log.Debug("poster downloaded", "film_id", filmID, "path", path)
	return path, nil
}

// validFilmID reports whether id names a file directly inside the cache dir.
func validFilmID(id string) bool {
	return id != "" && id != "." && id != ".." &&
		!strings.ContainsAny(id, `/\`) && filepath.Base(id) == id
}

// Service produces thumbnails for movies.
type Service struct {
	fetcher *Fetcher
	width   int
	height  int
}

// NewService creates a thumbnail service rendering at width x height pixels.
func NewService(fetcher *Fetcher, width, height int) *Service {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Service{fetcher: fetcher, width: width, height: height}
}

// Thumbnail downloads (or reuses) the poster and renders it.
func (s *Service) Thumbnail(ctx context.Context, filmID, url string) (*cinema.Thumbnail, error) {
	path, err := s.fetcher.Fetch(ctx, filmID, url)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open poster: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode poster %s: %w", filmID, err)
	}

	scaled := Scale(img, s.width, s.height)
	return &cinema.Thumbnail{
		Art:          Render(scaled, s.width, s.height),
		AverageColor: AverageColor(scaled),
		Width:        s.width,
		Height:       s.height / 2,
	}, nil
}
