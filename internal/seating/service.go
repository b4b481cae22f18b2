package seating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anticine/anticine/internal/cinema"
	"github.com/anticine/anticine/internal/events"
	"github.com/anticine/anticine/internal/sessionstore"
	"github.com/anticine/anticine/pkg/tags"
)

var (
	// ErrSessionNotFound is returned for sessions without a record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidSeat is returned for seats outside the room or repeated.
	ErrInvalidSeat = errors.New("invalid seat")
	// ErrNoSeats is returned for an empty reservation.
	ErrNoSeats = errors.New("no seats requested")
)

// ConflictError rejects a reservation touching occupied seats.
type ConflictError struct {
	Seats []string
}

func (e *ConflictError) Error() string {
	return "seats already occupied: " + strings.Join(e.Seats, ", ")
}

// SessionInfo identifies a showtime.
type SessionInfo struct {
	ID   string `json:"session_id"`
	Day  string `json:"day"`
	Hour string `json:"hour"`
}

// VersionInfo is the denormalized movie version of a session.
type VersionInfo struct {
	ID    string `json:"movie_version_id"`
	Title string `json:"title"`
	tags.Set
}

// Reservation is an accepted reservation.
type Reservation struct {
	ID        string    `json:"reservation_id"`
	SessionID string    `json:"session_id"`
	Seats     []string  `json:"seats"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord is the persisted state of one showtime.
type SessionRecord struct {
	Session      SessionInfo   `json:"session"`
	VenueID      string        `json:"cinema_id"`
	FilmID       string        `json:"corporate_film_id"`
	MovieTitle   string        `json:"movie_title"`
	Version      VersionInfo   `json:"movie_version"`
	Room         Room          `json:"room"`
	Reservations []Reservation `json:"reservations,omitempty"`
}

// NewSessionRecord builds the initial record of a session.
func NewSessionRecord(venueID string, m *cinema.Movie, v cinema.MovieVersion, s cinema.Session) SessionRecord {
	return SessionRecord{
		Session:    SessionInfo{ID: s.ID, Day: s.Day, Hour: s.Hour},
		VenueID:    venueID,
		FilmID:     m.FilmID,
		MovieTitle: m.Title,
		Version:    VersionInfo{ID: v.ID, Title: v.Title, Set: v.Set},
		Room:       NewRoom(s.ID, v.Seats, s.SeatsAvailable),
	}
}

// Publisher receives an event for every accepted reservation.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Service reads and reserves seats of persisted sessions.
type Service struct {
	store     sessionstore.Store
	locks     keyedMutex
	now       func() time.Time
	logger    *slog.Logger
	publisher Publisher

	// sessions known to have a record; skips lookups on re-seed
	seeded sync.Map
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher announces accepted reservations to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates a seating service over store.
func NewService(store sessionstore.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: logger,
		locks:  keyedMutex{locks: make(map[string]*refLock)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads the record of a session.
func (s *Service) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	err := sessionstore.GetJSON(ctx, s.store, sessionstore.SessionKey(sessionID), &rec)
	if errors.Is(err, sessionstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Reserve occupies every requested seat or none of them. Seats already
// occupied are reported through a *ConflictError.
func (s *Service) Reserve(ctx context.Context, sessionID string, seats []SeatRef) (*Reservation, error) {
	if len(seats) == 0 {
		return nil, ErrNoSeats
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(seats))
	var conflicts []string
	for _, ref := range seats {
		label := ref.Label()
		if requested[label] {
			return nil, fmt.Errorf("%w: %s requested twice", ErrInvalidSeat, label)
		}
		requested[label] = true

		seat, ok := rec.Room.Seat(ref)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSeat, label)
		}
		if seat.Occupied {
			conflicts = append(conflicts, label)
		}
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Seats: conflicts}
	}

	labels := make([]string, 0, len(seats))
	for _, ref := range seats {
		seat, _ := rec.Room.Seat(ref)
		seat.Occupied = true
		labels = append(labels, ref.Label())
	}

	res := Reservation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Seats:     labels,
		CreatedAt: s.now().UTC(),
	}
	rec.Reservations = append(rec.Reservations, res)

	if err := sessionstore.SetJSON(ctx, s.store, sessionstore.SessionKey(sessionID), rec); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	s.logger.Info("seats reserved", "session_id", sessionID, "seats", labels, "reservation_id", res.ID)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewSeatsReserved(sessionID, res.ID, labels)); err != nil {
			s.logger.Warn("publish event failed", "session_id", sessionID, "error", err)
		}
	}
	return &res, nil
}

// Seed creates the record of every session of a venue's board that does
// not have one yet. Existing records are left untouched. It returns the
// number of records created.
func (s *Service) Seed(ctx context.Context, venueID string, days []cinema.BillboardDay) (int, error) {
	created := 0
	var errs []error
	for _, day := range days {
		for _, m := range day.Movies {
			for _, v := range m.Versions {
				for _, sess := range v.Sessions {
					if err := ctx.Err(); err != nil {
						return created, err
					}
					ok, err := s.seedOne(ctx, venueID, m, v, sess)
					if err != nil {
						errs = append(errs, err)
						continue
					}
					if ok {
						created++
					}
				}
			}
		}
	}
	return created, errors.Join(errs...)
}

// SeedBoards seeds every venue of boards.
func (s *Service) SeedBoards(ctx context.Context, boards map[string][]cinema.BillboardDay) error {
	venues := make([]string, 0, len(boards))
	for id := range boards {
		venues = append(venues, id)
	}
	sort.Strings(venues)

	start := time.Now()
	total := 0
	var errs []error
	for _, id := range venues {
		n, err := s.Seed(ctx, id, boards[id])
		total += n
		if err != nil {
			s.logger.Warn("seeding failed", "venue_id", id, "error", err)
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	s.logger.Info("sessions seeded", "created", total, "venues", len(venues),
		"duration_ms", time.Since(start).Milliseconds())
	return errors.Join(errs...)
}

func (s *Service) seedOne(ctx context.Context, venueID string, m *cinema.Movie, v cinema.MovieVersion, sess cinema.Session) (bool, error) {
	if _, ok := s.seeded.Load(sess.ID); ok {
		return false, nil
	}

	unlock := s.locks.Lock(sess.ID)
	defer unlock()

	key := sessionstore.SessionKey(sess.ID)
	_, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		s.seeded.Store(sess.ID, struct{}{})
		return false, nil
	case !errors.Is(err, sessionstore.ErrNotFound):
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}

	if err := sessionstore.SetJSON(ctx, s.store, key, NewSessionRecord(venueID, m, v, sess)); err != nil {
		return false, fmt.Errorf("create %s: %w", key, err)
	}
	s.seeded.Store(sess.ID, struct{}{})
	return true, nil
}

// keyedMutex hands out one mutex per key, dropping it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
