// Package server wires the anticine components together and runs them.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anticine/anticine/internal/ai"
	"github.com/anticine/anticine/internal/api"
	"github.com/anticine/anticine/internal/config"
	"github.com/anticine/anticine/internal/enrich"
	"github.com/anticine/anticine/internal/events"
	"github.com/anticine/anticine/internal/geo"
	"github.com/anticine/anticine/internal/kvserver"
	"github.com/anticine/anticine/internal/scheduler"
	"github.com/anticine/anticine/internal/seating"
	"github.com/anticine/anticine/internal/sessionstore"
	"github.com/anticine/anticine/internal/snapshot"
	"github.com/anticine/anticine/internal/thumbnail"
	"github.com/anticine/anticine/pkg/cinemark"
)

const shutdownTimeout = 30 * time.Second

// ParseLogLevel maps a config log level to a slog level.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates the process logger.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLogLevel(level)}))
}

// Runner owns the component graph of "anticine serve".
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	version string

	gateway  snapshot.Gateway
	store    sessionstore.Store
	locator  geo.Locator
	listener net.Listener
}

// Option overrides a component, mostly for tests.
type Option func(*Runner)

// WithGateway replaces the upstream API client.
func WithGateway(g snapshot.Gateway) Option {
	return func(r *Runner) {
		r.gateway = g
	}
}

// WithStore replaces the configured session store.
func WithStore(s sessionstore.Store) Option {
	return func(r *Runner) {
		r.store = s
	}
}

// WithLocator replaces the configured geolocation provider.
func WithLocator(l geo.Locator) Option {
	return func(r *Runner) {
		r.locator = l
	}
}

// WithListener serves HTTP on ln instead of the configured address.
func WithListener(ln net.Listener) Option {
	return func(r *Runner) {
		r.listener = ln
	}
}

// WithVersion sets the version reported by the API.
func WithVersion(v string) Option {
	return func(r *Runner) {
		r.version = v
	}
}

// NewRunner creates a new runner.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the snapshot cache and the HTTP server. It blocks until ctx
// is canceled or a component fails. Failing to reach the session store is
// fatal.
func (r *Runner) Run(ctx context.Context) error {
	store, err := r.openStore(ctx)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer func() { _ = store.Close() }()

	bus := events.NewBus(events.NewLog(r.cfg.Server.EventHistory), r.logger.With("component", "events"))
	defer func() { _ = bus.Close() }()

	seats := seating.NewService(store, r.logger.With("component", "seating"), seating.WithPublisher(bus))

	cacheOpts := []snapshot.Option{
		snapshot.WithSeeder(seats),
		snapshot.WithNotifier(bus),
		snapshot.WithLogger(r.logger.With("component", "snapshot")),
	}
	if enricher := r.buildEnricher(); enricher != nil {
		cacheOpts = append(cacheOpts, snapshot.WithEnricher(enricher))
	}
	cache := snapshot.New(r.buildGateway(), r.snapshotConfig(), cacheOpts...)

	apiServer, err := api.New(api.ServerDeps{
		Catalog: cache,
		Seats:   seats,
		Locator: r.buildLocator(),
		Events:  bus,
		Logger:  r.logger.With("component", "api"),
	}, api.Config{
		ReadTimeout: r.cfg.Server.ReadTimeout,
		TrustProxy:  r.cfg.Server.TrustProxy,
		Version:     r.version,
	})
	if err != nil {
		return err
	}

	ln := r.listener
	if ln == nil {
		addr := net.JoinHostPort(r.cfg.Server.Host, strconv.Itoa(r.cfg.Server.Port))
		var lc net.ListenConfig
		if ln, err = lc.Listen(ctx, "tcp", addr); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	r.logger.Info("server starting",
		"addr", ln.Addr().String(),
		"session_store", r.cfg.SessionStore.Driver,
		"enrichment", r.cfg.Enrichment.Enabled,
		"geo", r.cfg.Geo.Provider,
		"log_level", r.cfg.Server.LogLevel,
	)

	srv := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cache.Run(ctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// ends open event streams so Shutdown does not wait on them
		_ = bus.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	r.logger.Info("server stopped")
	return err
}

func (r *Runner) openStore(ctx context.Context) (sessionstore.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	c := r.cfg.SessionStore
	log := r.logger.With("component", "sessionstore")
	switch c.Driver {
	case "redis":
		return sessionstore.NewRedisStore(ctx, sessionstore.RedisOptions{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
			Timeout:  c.Timeout,
		})
	case "memory":
		log.Warn("using in-memory session store, reservations are lost on restart")
		return sessionstore.NewMemory(), nil
	default:
		return sessionstore.Dial(ctx, c.Addr,
			sessionstore.WithTimeout(c.Timeout),
			sessionstore.WithLogger(log))
	}
}

func (r *Runner) buildGateway() snapshot.Gateway {
	if r.gateway != nil {
		return r.gateway
	}
	return cinemark.NewClient(
		cinemark.WithBaseURL(r.cfg.Upstream.BaseURL),
		cinemark.WithTimeout(r.cfg.Upstream.RequestTimeout),
		cinemark.WithLogger(r.logger.With("component", "cinemark")),
	)
}

// buildEnricher returns nil when enrichment is disabled.
func (r *Runner) buildEnricher() snapshot.Enricher {
	c := r.cfg.Enrichment
	if !c.Enabled {
		return nil
	}

	var provider ai.Provider
	switch c.AI.Provider {
	case "ollama":
		provider = ai.NewOllamaProvider(c.AI.URL, c.AI.Model,
			ai.WithTemperature(c.AI.Temperature),
			ai.WithLogger(r.logger.With("component", "ai")))
	default:
		provider = ai.StaticProvider{Reply: c.AI.StaticReply}
	}

	var thumbs enrich.Thumbnailer
	if c.Thumbnail.Enabled {
		fetcher := thumbnail.NewFetcher(c.Thumbnail.CacheDir,
			thumbnail.WithHTTPClient(&http.Client{Timeout: r.cfg.Upstream.RequestTimeout}),
			thumbnail.WithLogger(r.logger.With("component", "thumbnail")))
		thumbs = thumbnail.NewService(fetcher, c.Thumbnail.Width, c.Thumbnail.Height)
	}

	return enrich.NewOrchestrator(ai.NewTagger(provider), thumbs,
		enrich.WithConcurrency(c.Concurrency),
		enrich.WithUnknownTag(c.UnknownTag),
		enrich.WithLogger(r.logger.With("component", "enrich")))
}

func (r *Runner) buildLocator() geo.Locator {
	if r.locator != nil {
		return r.locator
	}
	c := r.cfg.Geo
	if c.Provider == "ipgeolocation" {
		return geo.NewCached(geo.NewIPGeolocation(c.APIKey), c.CacheSize, c.CacheTTL)
	}
	return geo.Static{Location: geo.Location{Region: c.City, City: c.City, Lat: c.Lat, Lon: c.Lon}}
}

func (r *Runner) snapshotConfig() snapshot.Config {
	b := r.cfg.Refresh.Blackout
	return snapshot.Config{
		Brand:               r.cfg.Upstream.Brand,
		PosterBase:          r.cfg.Upstream.PosterBase,
		MaxConcurrency:      r.cfg.Upstream.MaxConcurrency,
		VenuesInterval:      r.cfg.Refresh.Venues,
		ConcessionsInterval: r.cfg.Refresh.Concessions,
		BoardsInterval:      r.cfg.Refresh.Boards,
		Blackout: scheduler.Blackout{
			Enabled:   b.Enabled,
			StartHour: b.StartHour,
			EndHour:   b.EndHour,
			UTCOffset: b.UTCOffset,
		},
	}
}

// ServeDB runs the key/value server of "anticine db serve" until ctx is
// canceled.
func ServeDB(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) error {
	db, err := kvserver.OpenDB(cfg.Path)
	if err != nil {
		return err
	}
	store := kvserver.NewStore(db)
	defer func() { _ = store.Close() }()

	logger.Info("database opened", "path", cfg.Path)
	return kvserver.NewServer(store, logger).ListenAndServe(ctx, cfg.Listen)
}
