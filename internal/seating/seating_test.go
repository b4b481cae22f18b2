package seating

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anticine/anticine/internal/cinema"
	"github.com/anticine/anticine/internal/events"
	"github.com/anticine/anticine/internal/sessionstore"
	"github.com/anticine/anticine/pkg/tags"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRoom_Layouts(t *testing.T) {
	tests := []struct {
		seats      string
		rows, cols int
		class      string
	}{
		{"TRAD", 10, 24, "TRAD"},
		{"DBOX", 10, 20, "DBOX"},
		{"PRE", 8, 16, "PRE"},
		{"BIS", 6, 12, "BIS"},
		{"DBOX PRE", 10, 20, "DBOX"},
		{"", 10, 24, "TRAD"},
		{"VIP", 10, 24, "TRAD"},
	}
	for _, tt := range tests {
		t.Run(tt.seats, func(t *testing.T) {
			room := NewRoom("s1", tt.seats, 1000)
			assert.Equal(t, tt.rows, room.RowCount)
			assert.Equal(t, tt.cols, room.Columns)
			require.Len(t, room.Rows, tt.rows)
			assert.Equal(t, "A", room.Rows[0].Name)
			assert.Len(t, room.Rows[tt.rows-1].Seats, tt.cols)
			assert.Equal(t, tt.class, room.Rows[0].Seats[0].Type)
			assert.Equal(t, tt.rows*tt.cols, room.Available())
			assert.LessOrEqual(t, room.RowCount, MaxRows)
			assert.LessOrEqual(t, room.Columns, MaxColumns)
		})
	}
}

func TestNewRoom_Occupancy(t *testing.T) {
	room := NewRoom("s1", "BIS", 50)
	assert.Equal(t, 50, room.Available())

	assert.Equal(t, NewRoom("s1", "BIS", 50), room, "same session, same layout")
	assert.NotEqual(t, NewRoom("s2", "BIS", 50), room)

	empty := NewRoom("s1", "BIS", -3)
	assert.Equal(t, 0, empty.Available())
}

func TestParseSeat(t *testing.T) {
	ref, err := ParseSeat("b7")
	require.NoError(t, err)
	assert.Equal(t, SeatRef{Row: "B", Column: 7}, ref)
	assert.Equal(t, "B7", ref.Label())

	for _, bad := range []string{"", "B", "Z3", "A0", "A25", "AX"} {
		_, err := ParseSeat(bad)
		assert.ErrorIs(t, err, ErrInvalidSeat, bad)
	}
}

func board() []cinema.BillboardDay {
	m := &cinema.Movie{
		FilmID: "HO1",
		Title:  "AVATAR",
		Versions: []cinema.MovieVersion{
			{ID: "HO1-A", Title: "AVATAR (SUB 3D)", Set: tags.Parse("AVATAR (SUB 3D)"), Sessions: []cinema.Session{
				{ID: "s1", Day: "2023-02-10", Hour: "19:30", SeatsAvailable: 240},
				{ID: "s2", Day: "2023-02-10", Hour: "22:00", SeatsAvailable: 240},
			}},
			{ID: "HO1-B", Title: "AVATAR (DBOX)", Set: tags.Parse("AVATAR (DBOX)"), Sessions: []cinema.Session{
				{ID: "s3", Day: "2023-02-11", Hour: "18:00", SeatsAvailable: 10},
			}},
		},
	}
	return []cinema.BillboardDay{{Date: "2023-02-10", Movies: []*cinema.Movie{m}}}
}

func seededService(t *testing.T) (*Service, *sessionstore.Memory) {
	t.Helper()
	store := sessionstore.NewMemory()
	svc := NewService(store, testLogger())
	n, err := svc.Seed(context.Background(), "2702", board())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return svc, store
}

func TestService_Seed(t *testing.T) {
	svc, store := seededService(t)
	ctx := context.Background()

	rec, err := svc.Get(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, SessionInfo{ID: "s3", Day: "2023-02-11", Hour: "18:00"}, rec.Session)
	assert.Equal(t, "2702", rec.VenueID)
	assert.Equal(t, "HO1", rec.FilmID)
	assert.Equal(t, "HO1-B", rec.Version.ID)
	assert.Equal(t, "DBOX", rec.Version.Seats)
	assert.Equal(t, 20, rec.Room.Columns)
	assert.Equal(t, 10, rec.Room.Available())

	// re-seeding creates nothing, even in a fresh process
	n, err := NewService(store, testLogger()).Seed(ctx, "2702", board())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 3, store.Len())
}

func TestService_Seed_KeepsExistingRecords(t *testing.T) {
	svc, store := seededService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "s1", []SeatRef{{Row: "A", Column: 1}})
	require.NoError(t, err)

	require.NoError(t, NewService(store, testLogger()).SeedBoards(ctx, map[string][]cinema.BillboardDay{"2702": board()}))

	rec, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	seat, _ := rec.Room.Seat(SeatRef{Row: "A", Column: 1})
	assert.True(t, seat.Occupied)
}

func TestService_Reserve_DisjointRequestsBothSucceed(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	first, err := svc.Reserve(ctx, "s1", []SeatRef{{Row: "B", Column: 7}, {Row: "B", Column: 8}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B7", "B8"}, first.Seats)
	assert.NotEmpty(t, first.ID)

	second, err := svc.Reserve(ctx, "s1", []SeatRef{{Row: "C", Column: 1}})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	rec, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 240-3, rec.Room.Available())
	assert.Len(t, rec.Reservations, 2)
	for _, ref := range []SeatRef{{"B", 7}, {"B", 8}, {"C", 1}} {
		seat, ok := rec.Room.Seat(ref)
		require.True(t, ok)
		assert.True(t, seat.Occupied, ref.Label())
	}
}

func TestService_Reserve_ConflictIsAllOrNothing(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "s1", []SeatRef{{Row: "B", Column: 7}})
	require.NoError(t, err)
	before, err := svc.Get(ctx, "s1")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "s1", []SeatRef{{Row: "B", Column: 6}, {Row: "B", Column: 7}, {Row: "B", Column: 8}})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"B7"}, conflict.Seats)

	after, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_Reserve_PublishesEvent(t *testing.T) {
	store := sessionstore.NewMemory()
	bus := events.NewBus(events.NewLog(8), testLogger())
	defer bus.Close()
	ch := bus.Subscribe(events.TypeSeatsReserved, 4)

	svc := NewService(store, testLogger(), WithPublisher(bus))
	ctx := context.Background()
	_, err := svc.Seed(ctx, "2702", board())
	require.NoError(t, err)

	res, err := svc.Reserve(ctx, "s1", []SeatRef{{Row: "D", Column: 2}})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "s1", []SeatRef{{Row: "D", Column: 2}})
	require.Error(t, err)

	e := (<-ch).(*events.SeatsReserved)
	assert.Equal(t, "s1", e.EntityID())
	assert.Equal(t, res.ID, e.ReservationID)
	assert.Equal(t, []string{"D2"}, e.Seats)
	assert.Empty(t, ch, "rejected reservations are not announced")

	_, total := bus.Log().Recent(10, 0)
	assert.Equal(t, 1, total)
}

func TestService_Reserve_Errors(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "missing", []SeatRef{{Row: "A", Column: 1}})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Reserve(ctx, "s1", nil)
	assert.ErrorIs(t, err, ErrNoSeats)

	// DBOX rooms have 20 columns
	_, err = svc.Reserve(ctx, "s3", []SeatRef{{Row: "A", Column: 21}})
	assert.ErrorIs(t, err, ErrInvalidSeat)

	_, err = svc.Reserve(ctx, "s1", []SeatRef{{Row: "A", Column: 1}, {Row: "A", Column: 1}})
	assert.ErrorIs(t, err, ErrInvalidSeat)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_Reserve_ConcurrentSameSeat(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, "s2", []SeatRef{{Row: "E", Column: 5}})
			var conflict *ConflictError
			switch {
			case err == nil:
				wins.Add(1)
			case errors.As(err, &conflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(9), conflicts.Load())
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := keyedMutex{locks: make(map[string]*refLock)}
	unlock := k.Lock("a")
	assert.Len(t, k.locks, 1)
	unlock()
	assert.Empty(t, k.locks)
}
