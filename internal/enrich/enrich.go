// Package enrich attaches derived metadata (emoji tags, poster thumbnails)
// to the movies of freshly fetched showtime boards.
package enrich

//go:generate mockgen -source=enrich.go -destination=mocks/enrich.go -package=mocks

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anticine/anticine/internal/cinema"
)

// DefaultUnknownTag replaces the tag of a movie the tagger failed on.
const DefaultUnknownTag = "❓"

const defaultConcurrency = 4

// Tagger derives a short tag from a movie's title and synopsis.
type Tagger interface {
	Tag(ctx context.Context, title, synopsis string) (string, error)
}

// Thumbnailer renders a movie poster.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, filmID, url string) (*cinema.Thumbnail, error)
}

// Orchestrator enriches every distinct movie of a set of boards once.
type Orchestrator struct {
	tagger      Tagger
	thumbnails  Thumbnailer
	memo        *Memo
	unknownTag  string
	concurrency int
	log         *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the number of movies enriched in parallel.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithUnknownTag sets the placeholder used when tagging fails.
func WithUnknownTag(tag string) Option {
	return func(o *Orchestrator) {
		if tag != "" {
			o.unknownTag = tag
		}
	}
}

// WithMemo shares a memo between orchestrators.
func WithMemo(m *Memo) Option {
	return func(o *Orchestrator) {
		o.memo = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// NewOrchestrator creates an orchestrator. A nil thumbnailer disables
// thumbnails.
func NewOrchestrator(tagger Tagger, thumbnails Thumbnailer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tagger:      tagger,
		thumbnails:  thumbnails,
		memo:        NewMemo(),
		unknownTag:  DefaultUnknownTag,
		concurrency: defaultConcurrency,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Memo returns the orchestrator's memo.
func (o *Orchestrator) Memo() *Memo {
	return o.memo
}

// Enrich attaches an Enrichment to every movie of boards. All occurrences
// of a film id share the same *Enrichment value. Individual tagger or
// thumbnail failures degrade that movie only; the only error returned is
// the context's.
func (o *Orchestrator) Enrich(ctx context.Context, boards map[string][]cinema.BillboardDay) error {
	start := time.Now()
	distinct := distinctMovies(boards)

	var (
		mu      sync.Mutex
		results = make(map[string]*cinema.Enrichment, len(distinct))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, m := range distinct {
		g.Go(func() error {
			e, err := o.memo.Do(m.FilmID, func() (*cinema.Enrichment, error) {
				return o.compute(gctx, m)
			})
			if err != nil {
				return err
			}
			mu.Lock()
			results[m.FilmID] = e
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, days := range boards {
		for _, day := range days {
			for _, m := range day.Movies {
				m.Enrichment = results[m.FilmID]
			}
		}
	}

	o.log.Info("boards enriched",
		"movies", len(distinct),
		"memoized", o.memo.Len(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (o *Orchestrator) compute(ctx context.Context, m *cinema.Movie) (*cinema.Enrichment, error) {
	e := &cinema.Enrichment{Tags: o.unknownTag}

	if o.tagger != nil {
		tag, err := o.tagger.Tag(ctx, m.Title, m.Synopsis)
		if err != nil {
			o.log.Warn("tagging failed", "film_id", m.FilmID, "error", err)
		} else {
			e.Tags = tag
		}
	}

	if o.thumbnails != nil {
		thumb, err := o.thumbnails.Thumbnail(ctx, m.FilmID, m.PosterURL)
		if err != nil {
			o.log.Warn("thumbnail failed", "film_id", m.FilmID, "error", err)
		} else {
			e.Thumbnail = thumb
		}
	}

	// a cancelled episode must not memoize its degraded results
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

// distinctMovies returns the first occurrence of each film id, visiting
// venues in id order.
func distinctMovies(boards map[string][]cinema.BillboardDay) []*cinema.Movie {
	venues := make([]string, 0, len(boards))
	for id := range boards {
		venues = append(venues, id)
	}
	sort.Strings(venues)

	seen := make(map[string]bool)
	var out []*cinema.Movie
	for _, id := range venues {
		for _, day := range boards[id] {
			for _, m := range day.Movies {
				if seen[m.FilmID] {
					continue
				}
				seen[m.FilmID] = true
				out = append(out, m)
			}
		}
	}
	return out
}
