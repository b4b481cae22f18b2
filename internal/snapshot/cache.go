// Package snapshot keeps read-optimized copies of the upstream catalog.
//
// Venues, concession catalogs and showtime boards live in independent slots.
// Each slot is rebuilt off to the side by a refresh episode and swapped in
// with a single atomic store, so readers never see a partial result. A read
// that arrives while its slot is being rebuilt waits for that episode and
// gets the previous generation only if the episode fails or the reader's
// context ends first. Request handlers only read slots; they never reach
// the upstream API.
package snapshot

//go:generate mockgen -source=cache.go -destination=mocks/cache.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anticine/anticine/internal/cinema"
	"github.com/anticine/anticine/internal/events"
	"github.com/anticine/anticine/internal/scheduler"
	"github.com/anticine/anticine/pkg/cinemark"
)

// ErrNotReady is returned when a read gives up before the slot's first
// publication.
var ErrNotReady = errors.New("snapshot not ready")

// Job names used with the scheduler.
const (
	JobVenues      = "venues"
	JobConcessions = "concessions"
	JobBoards      = "boards"
)

// Gateway is the upstream API.
type Gateway interface {
	Theatres(ctx context.Context) ([]cinemark.TheatreGroup, error)
	ConcessionItems(ctx context.Context, venueID string) (*cinemark.ConcessionResponse, error)
	Billboard(ctx context.Context, venueID string) ([]cinemark.BillboardItem, error)
}

// Enricher decorates freshly fetched boards before they are published.
type Enricher interface {
	Enrich(ctx context.Context, boards map[string][]cinema.BillboardDay) error
}

// Seeder persists per-session state for published boards.
type Seeder interface {
	SeedBoards(ctx context.Context, boards map[string][]cinema.BillboardDay) error
}

// Notifier receives an event after every publication.
type Notifier interface {
	Publish(ctx context.Context, e events.Event) error
}

// Config tunes a Cache.
type Config struct {
	Brand      string
	PosterBase string

	// MaxConcurrency bounds upstream calls of one episode.
	MaxConcurrency int

	// VenuesWait bounds how long a concessions or boards episode waits
	// for the first venues snapshot.
	VenuesWait time.Duration

	VenuesInterval      time.Duration
	ConcessionsInterval time.Duration
	BoardsInterval      time.Duration
	Blackout            scheduler.Blackout
}

const (
	defaultMaxConcurrency = 8
	defaultVenuesWait     = time.Minute
)

type venueSet struct {
	list []cinema.Venue
	byID map[string]int
}

// Cache serves the latest published snapshots.
type Cache struct {
	cfg      Config
	gateway  Gateway
	enricher Enricher
	seeder   Seeder
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	venues      *slot[venueSet]
	concessions *slot[map[string][]cinema.ConcessionItem]
	boards      *slot[map[string][]cinema.BillboardDay]

	mu     sync.Mutex
	sched  *scheduler.Scheduler
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithEnricher runs e on every boards episode before publication.
func WithEnricher(e Enricher) Option {
	return func(c *Cache) {
		c.enricher = e
	}
}

// WithSeeder hands every published boards snapshot to s.
func WithSeeder(s Seeder) Option {
	return func(c *Cache) {
		c.seeder = s
	}
}

// WithNotifier announces every publication to n.
func WithNotifier(n Notifier) Option {
	return func(c *Cache) {
		c.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty Cache. Nothing is fetched until Start or one of the
// Refresh methods is called.
func New(gateway Gateway, cfg Config, opts ...Option) *Cache {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.VenuesWait <= 0 {
		cfg.VenuesWait = defaultVenuesWait
	}
	if cfg.PosterBase == "" {
		cfg.PosterBase = cinema.DefaultPosterBase
	}
	c := &Cache{
		cfg:         cfg,
		gateway:     gateway,
		logger:      slog.Default(),
		now:         time.Now,
		venues:      newSlot[venueSet](),
		concessions: newSlot[map[string][]cinema.ConcessionItem](),
		boards:      newSlot[map[string][]cinema.BillboardDay](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the refresh scheduler. Every job runs once immediately.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return errors.New("snapshot cache already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.sched = scheduler.New([]scheduler.Job{
		{Name: JobVenues, Interval: c.cfg.VenuesInterval, Run: c.RefreshVenues},
		{Name: JobConcessions, Interval: c.cfg.ConcessionsInterval, Run: c.RefreshConcessions},
		{Name: JobBoards, Interval: c.cfg.BoardsInterval, Run: c.RefreshBoards},
	},
		scheduler.WithBlackout(c.cfg.Blackout),
		scheduler.WithClock(c.now),
		scheduler.WithLogger(c.logger.With("component", "scheduler")),
	)
	c.cancel = cancel
	c.done = make(chan struct{})

	sched, done := c.sched, c.done
	go func() {
		defer close(done)
		_ = sched.Run(ctx)
	}()
	c.logger.Info("snapshot refresh started",
		"venues_interval", c.cfg.VenuesInterval,
		"concessions_interval", c.cfg.ConcessionsInterval,
		"boards_interval", c.cfg.BoardsInterval)
	return nil
}

// Stop cancels running episodes and waits for them to return.
func (c *Cache) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run starts the cache and blocks until ctx is canceled.
func (c *Cache) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	c.Stop()
	return nil
}

// RefreshVenues fetches the venue list and publishes it. On failure the
// previous snapshot stays.
func (c *Cache) RefreshVenues(ctx context.Context) error {
	defer c.venues.begin()()

	start := time.Now()
	groups, err := c.gateway.Theatres(ctx)
	if err != nil {
		return fmt.Errorf("fetch venues: %w", err)
	}

	list := cinema.VenuesFromTheatres(groups, c.cfg.Brand)
	set := venueSet{list: list, byID: make(map[string]int, len(list))}
	for i, v := range list {
		set.byID[v.ID] = i
	}
	c.venues.publish(set, 0, c.now())
	c.notify(ctx, JobVenues, len(list), 0)

	c.logger.Info("venues published", "venues", len(list),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// RefreshConcessions fetches every venue's concession catalog and publishes
// the result. A venue answering with an explicit error code gets an empty
// list; a venue that could not be reached is left out.
func (c *Cache) RefreshConcessions(ctx context.Context) error {
	defer c.concessions.begin()()

	start := time.Now()
	ids, err := c.venueIDs(ctx)
	if err != nil {
		return err
	}

	results, failed := fanOut(ctx, c.cfg.MaxConcurrency, ids, func(ctx context.Context, id string) ([]cinema.ConcessionItem, error) {
		resp, err := c.gateway.ConcessionItems(ctx, id)
		switch {
		case errors.Is(err, cinemark.ErrNoConcessions):
			return []cinema.ConcessionItem{}, nil
		case err != nil:
			c.logger.Warn("concessions unavailable", "venue_id", id, "error", err)
			return nil, err
		}
		return cinema.ConcessionsFromResponse(resp), nil
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	c.concessions.publish(results, failed, c.now())
	c.notify(ctx, JobConcessions, len(results), failed)
	c.logger.Info("concessions published", "venues", len(results), "failed", failed,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// RefreshBoards fetches every venue's showtime board, enriches the movies,
// publishes the result and seeds session records for it.
func (c *Cache) RefreshBoards(ctx context.Context) error {
	settle := c.boards.begin()
	defer settle()

	start := time.Now()
	ids, err := c.venueIDs(ctx)
	if err != nil {
		return err
	}

	results, failed := fanOut(ctx, c.cfg.MaxConcurrency, ids, func(ctx context.Context, id string) ([]cinema.BillboardDay, error) {
		items, err := c.gateway.Billboard(ctx, id)
		if err != nil {
			c.logger.Warn("board unavailable", "venue_id", id, "error", err)
			return nil, err
		}
		return cinema.BoardFromBillboard(items, c.cfg.PosterBase), nil
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.enricher != nil {
		if err := c.enricher.Enrich(ctx, results); err != nil {
			return fmt.Errorf("enrich boards: %w", err)
		}
	}

	c.boards.publish(results, failed, c.now())
	settle()
	c.notify(ctx, JobBoards, len(results), failed)
	c.logger.Info("boards published", "venues", len(results), "failed", failed,
		"duration_ms", time.Since(start).Milliseconds())

	if c.seeder != nil {
		if err := c.seeder.SeedBoards(ctx, results); err != nil {
			c.logger.Warn("session seeding incomplete", "error", err)
		}
	}
	return nil
}

func (c *Cache) notify(ctx context.Context, job string, entries, failed int) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Publish(ctx, events.NewSnapshotPublished(job, entries, failed)); err != nil {
		c.logger.Warn("publish event failed", "job", job, "error", err)
	}
}

// venueIDs reads the current venue ids, waiting a bounded time for the
// first venues snapshot.
func (c *Cache) venueIDs(ctx context.Context) ([]string, error) {
	wctx, cancel := context.WithTimeout(ctx, c.cfg.VenuesWait)
	defer cancel()
	p, err := c.venues.load(wctx)
	if err != nil {
		return nil, fmt.Errorf("venue list: %w", err)
	}
	ids := make([]string, len(p.value.list))
	for i, v := range p.value.list {
		ids[i] = v.ID
	}
	return ids, nil
}

// fanOut calls fetch once per id, at most limit at a time, and collects
// the successes. It waits for every call to settle.
func fanOut[T any](ctx context.Context, limit int, ids []string, fetch func(context.Context, string) (T, error)) (map[string]T, int) {
	var (
		mu      sync.Mutex
		results = make(map[string]T, len(ids))
		failed  int
	)
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			v, err := fetch(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return nil
			}
			results[id] = v
			return nil
		})
	}
	_ = g.Wait()
	return results, failed
}

// Venues returns every known venue.
func (c *Cache) Venues(ctx context.Context) ([]cinema.Venue, error) {
	p, err := c.venues.load(ctx)
	if err != nil {
		return nil, err
	}
	return p.value.list, nil
}

// Venue returns one venue by id.
func (c *Cache) Venue(ctx context.Context, id string) (cinema.Venue, bool, error) {
	p, err := c.venues.load(ctx)
	if err != nil {
		return cinema.Venue{}, false, err
	}
	i, ok := p.value.byID[id]
	if !ok {
		return cinema.Venue{}, false, nil
	}
	return p.value.list[i], true, nil
}

// Concessions returns a venue's concession catalog. found is false when the
// venue could not be fetched in the last episode, which is different from
// an empty catalog.
func (c *Cache) Concessions(ctx context.Context, venueID string) (items []cinema.ConcessionItem, found bool, err error) {
	p, err := c.concessions.load(ctx)
	if err != nil {
		return nil, false, err
	}
	items, found = p.value[venueID]
	return items, found, nil
}

// Board returns a venue's showtime board.
func (c *Cache) Board(ctx context.Context, venueID string) ([]cinema.BillboardDay, bool, error) {
	p, err := c.boards.load(ctx)
	if err != nil {
		return nil, false, err
	}
	days, ok := p.value[venueID]
	return days, ok, nil
}

// DistinctMovies returns a venue's movies, one per film id.
func (c *Cache) DistinctMovies(ctx context.Context, venueID string) ([]cinema.MovieSummary, bool, error) {
	days, ok, err := c.Board(ctx, venueID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return cinema.DistinctMovies(days), true, nil
}

// MovieBoard returns one movie of a venue with its versions grouped by day.
func (c *Cache) MovieBoard(ctx context.Context, venueID, filmID string) (*cinema.Movie, []cinema.MovieDay, bool, error) {
	days, ok, err := c.Board(ctx, venueID)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	m, byDay := cinema.FindMovie(days, filmID)
	if m == nil {
		return nil, nil, false, nil
	}
	return m, byDay, true, nil
}

// SlotStats describes one slot.
type SlotStats struct {
	Ready       bool      `json:"ready"`
	Refreshing  bool      `json:"refreshing"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	Entries     int       `json:"entries"`
	Failed      int       `json:"failed"`
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Venues      SlotStats            `json:"venues"`
	Concessions SlotStats            `json:"concessions"`
	Boards      SlotStats            `json:"boards"`
	Jobs        []scheduler.JobStats `json:"jobs,omitempty"`
}

// Stats reports publication times and entry counts without blocking.
func (c *Cache) Stats() Stats {
	st := Stats{
		Venues:      slotStats(c.venues, func(v venueSet) int { return len(v.list) }),
		Concessions: slotStats(c.concessions, func(v map[string][]cinema.ConcessionItem) int { return len(v) }),
		Boards:      slotStats(c.boards, func(v map[string][]cinema.BillboardDay) int { return len(v) }),
	}
	c.mu.Lock()
	sched := c.sched
	c.mu.Unlock()
	if sched != nil {
		st.Jobs = sched.Stats()
	}
	return st
}

func slotStats[T any](s *slot[T], count func(T) int) SlotStats {
	st := SlotStats{Refreshing: s.refreshing()}
	p := s.peek()
	if p == nil {
		return st
	}
	st.Ready = true
	st.PublishedAt = p.at
	st.Entries = count(p.value)
	st.Failed = p.failed
	return st
}
