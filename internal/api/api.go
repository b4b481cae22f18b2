// Package api serves the cached catalog and seat reservations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/anticine/anticine/internal/cinema"
	"github.com/anticine/anticine/internal/events"
	"github.com/anticine/anticine/internal/geo"
	"github.com/anticine/anticine/internal/seating"
	"github.com/anticine/anticine/internal/sessionstore"
	"github.com/anticine/anticine/internal/snapshot"
)

// Catalog is the read side of the snapshot cache.
type Catalog interface {
	Venues(ctx context.Context) ([]cinema.Venue, error)
	Venue(ctx context.Context, id string) (cinema.Venue, bool, error)
	Concessions(ctx context.Context, venueID string) ([]cinema.ConcessionItem, bool, error)
	DistinctMovies(ctx context.Context, venueID string) ([]cinema.MovieSummary, bool, error)
	MovieBoard(ctx context.Context, venueID, filmID string) (*cinema.Movie, []cinema.MovieDay, bool, error)
	Stats() snapshot.Stats
}

// Seats reads and reserves session seats.
type Seats interface {
	Get(ctx context.Context, sessionID string) (*seating.SessionRecord, error)
	Reserve(ctx context.Context, sessionID string, seats []seating.SeatRef) (*seating.Reservation, error)
}

// ServerDeps contains the dependencies of the API server.
type ServerDeps struct {
	// Required
	Catalog Catalog

	// Optional: session routes answer 503 without it
	Seats Seats
	// Optional: defaults to geo.DefaultStatic
	Locator geo.Locator
	// Optional: event routes answer 503 without it
	Events *events.Bus
	Logger *slog.Logger
}

// Validate checks that required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Catalog == nil {
		return errors.New("catalog is required")
	}
	return nil
}

// Config holds API server configuration.
type Config struct {
	// ReadTimeout bounds how long a request waits for a snapshot that has
	// not been published yet.
	ReadTimeout time.Duration
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool
	Version    string
}

const defaultReadTimeout = 10 * time.Second

// Server is the HTTP API.
type Server struct {
	deps ServerDeps
	cfg  Config
	log  *slog.Logger
}

// New creates an API server.
func New(deps ServerDeps, cfg Config) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.Locator == nil {
		deps.Locator = geo.DefaultStatic
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &Server{deps: deps, cfg: cfg, log: deps.Logger}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.root)
	mux.HandleFunc("GET /status", s.status)

	// Venues
	mux.HandleFunc("GET /cines/all", s.allVenues)
	mux.HandleFunc("GET /cines/cercanos", s.nearbyVenues)
	mux.HandleFunc("GET /cines/{id}/confiteria", s.concessions)
	mux.HandleFunc("GET /cines/{id}/cartelera", s.movies)
	mux.HandleFunc("GET /cines/{id}/cartelera/{film}", s.movieBoard)

	// Sessions
	mux.HandleFunc("GET /sessions/{id}", s.requireSeats(s.getSession))
	mux.HandleFunc("POST /sessions/{id}/reserve", s.requireSeats(s.reserve))
	mux.HandleFunc("GET /sessions/{id}/events", s.requireEvents(s.sessionEvents))

	// Events
	mux.HandleFunc("GET /events", s.requireEvents(s.listEvents))
	mux.HandleFunc("GET /events/stream", s.requireEvents(s.streamEvents))

	mux.HandleFunc("/", s.notFound)
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return logRequests(mux, s.log)
}

// Error response
type errorResponse struct {
	Code  int     `json:"code"`
	Error *string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Code: code, Error: &message})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// ok is the envelope of successful responses.
func ok() errorResponse {
	return errorResponse{Code: http.StatusOK}
}

// readContext bounds waits on unpublished snapshots.
func (s *Server) readContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.ReadTimeout)
}

// readFailed answers a failed snapshot read.
func (s *Server) readFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, snapshot.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, "catalog is still loading, try again shortly")
		return
	}
	s.log.Error("catalog read failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		errorResponse: ok(),
		Status:        "anticine status: OK 👍",
		Version:       s.cfg.Version,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{errorResponse: ok(), Snapshot: s.deps.Catalog.Stats()})
}

func (s *Server) allVenues(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.readContext(r)
	defer cancel()

	venues, err := s.deps.Catalog.Venues(ctx)
	if err != nil {
		s.readFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, venuesResponse{errorResponse: ok(), Cinemas: venuesToInfo(venues)})
}

func (s *Server) nearbyVenues(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.readContext(r)
	defer cancel()

	venues, err := s.deps.Catalog.Venues(ctx)
	if err != nil {
		s.readFailed(w, r, err)
		return
	}

	ip := clientIP(r, s.cfg.TrustProxy)
	loc, err := s.deps.Locator.Locate(ctx, ip)
	if err != nil {
		s.log.Warn("locate client failed", "ip", ip, "error", err)
		writeError(w, http.StatusInternalServerError, "could not determine your location")
		return
	}

	resp := nearbyResponse{errorResponse: ok(), City: &loc.City, Cinemas: []venueInfo{}}
	near := cinema.Nearby(venues, loc.City, loc.Lat, loc.Lon)
	if len(near) == 0 {
		msg := "no cinemas available in your city"
		resp.Code, resp.Error = http.StatusNotFound, &msg
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	resp.Cinemas = venuesToInfo(near)
	resp.NearestID = &near[0].ID
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) concessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.readContext(r)
	defer cancel()

	items, found, err := s.deps.Catalog.Concessions(ctx, r.PathValue("id"))
	if err != nil {
		s.readFailed(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "cinema not found")
		return
	}
	writeJSON(w, http.StatusOK, concessionsResponse{errorResponse: ok(), Items: items})
}

func (s *Server) movies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.readContext(r)
	defer cancel()

	movies, found, err := s.deps.Catalog.DistinctMovies(ctx, r.PathValue("id"))
	if err != nil {
		s.readFailed(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "billboard not found")
		return
	}
	writeJSON(w, http.StatusOK, moviesResponse{errorResponse: ok(), Movies: movies})
}

func (s *Server) movieBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.readContext(r)
	defer cancel()

	m, days, found, err := s.deps.Catalog.MovieBoard(ctx, r.PathValue("id"), r.PathValue("film"))
	if err != nil {
		s.readFailed(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "billboard not found")
		return
	}
	writeJSON(w, http.StatusOK, movieBoardResponse{errorResponse: ok(), Movie: movieToDetail(m), Days: days})
}

// requireSeats wraps a handler and returns 503 if seating is not configured.
func (s *Server) requireSeats(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Seats == nil {
			writeError(w, http.StatusServiceUnavailable, "seat reservations are not configured")
			return
		}
		next(w, r)
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Seats.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.seatsFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{errorResponse: ok(), Session: rec})
}

func (s *Server) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	refs := make([]seating.SeatRef, 0, len(req.Seats))
	for _, label := range req.Seats {
		ref, err := seating.ParseSeat(label)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		refs = append(refs, ref)
	}

	res, err := s.deps.Seats.Reserve(r.Context(), r.PathValue("id"), refs)
	if err != nil {
		s.seatsFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservationResponse{
		errorResponse: errorResponse{Code: http.StatusCreated},
		Reservation:   res,
	})
}

func (s *Server) seatsFailed(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *seating.ConflictError
	switch {
	case errors.As(err, &conflict):
		msg := conflict.Error()
		writeJSON(w, http.StatusConflict, conflictResponse{
			errorResponse: errorResponse{Code: http.StatusConflict, Error: &msg},
			Seats:         conflict.Seats,
		})
	case errors.Is(err, seating.ErrSessionNotFound), errors.Is(err, sessionstore.ErrInvalidKey):
		// an id the store cannot key names no session
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, seating.ErrInvalidSeat), errors.Is(err, seating.ErrNoSeats):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("session store failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	msg := "no route for " + r.Method + " " + r.URL.Path
	writeJSON(w, http.StatusNotFound, notFoundResponse{
		errorResponse: errorResponse{Code: http.StatusNotFound, Error: &msg},
		ReadTheDocs:   "https://github.com/GNUfamilia-fisi/anticine-server#endpoints",
	})
}
