// Package seating models showtime rooms and reserves seats in them.
package seating

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/anticine/anticine/pkg/tags"
)

// Room limits.
const (
	MaxRows    = 10
	MaxColumns = 24
)

const rowNames = "ABCDEFGHIJ"

// layouts is the grid size of a room by seat class.
var layouts = map[string]struct{ rows, cols int }{
	"TRAD": {10, 24},
	"DBOX": {10, 20},
	"PRE":  {8, 16},
	"BIS":  {6, 12},
}

// Seat is one seat of a room.
type Seat struct {
	Column   int    `json:"col_number"`
	Type     string `json:"type"`
	Occupied bool   `json:"occupied"`
}

// Row is a named row of seats.
type Row struct {
	Name   string `json:"row_name"`
	Number int    `json:"row_number"`
	Seats  []Seat `json:"seats"`
}

// Room is the seat grid of a showtime.
type Room struct {
	Columns  int   `json:"columns_number"`
	RowCount int   `json:"rows_number"`
	Rows     []Row `json:"rows"`
}

// NewRoom builds the room of a session. The grid size follows the seat
// class; capacity minus seatsAvailable seats start occupied, at positions
// derived from the session id so the same session always gets the same
// layout.
func NewRoom(sessionID, seatsTag string, seatsAvailable int) Room {
	class := tags.Primary(seatsTag)
	size, ok := layouts[class]
	if !ok {
		class = tags.DefaultSeats
		size = layouts[class]
	}

	room := Room{Columns: size.cols, RowCount: size.rows, Rows: make([]Row, size.rows)}
	for r := range size.rows {
		seats := make([]Seat, size.cols)
		for c := range seats {
			seats[c] = Seat{Column: c + 1, Type: class}
		}
		room.Rows[r] = Row{Name: string(rowNames[r]), Number: r + 1, Seats: seats}
	}

	capacity := size.rows * size.cols
	free := min(max(seatsAvailable, 0), capacity)
	taken := capacity - free

	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	rng := rand.New(rand.NewPCG(h.Sum64(), uint64(capacity)))
	for _, i := range rng.Perm(capacity)[:taken] {
		room.Rows[i/size.cols].Seats[i%size.cols].Occupied = true
	}
	return room
}

// Seat returns the seat at ref.
func (r *Room) Seat(ref SeatRef) (*Seat, bool) {
	for i := range r.Rows {
		if r.Rows[i].Name != ref.Row {
			continue
		}
		if ref.Column < 1 || ref.Column > len(r.Rows[i].Seats) {
			return nil, false
		}
		return &r.Rows[i].Seats[ref.Column-1], true
	}
	return nil, false
}

// Available counts unoccupied seats.
func (r *Room) Available() int {
	n := 0
	for _, row := range r.Rows {
		for _, s := range row.Seats {
			if !s.Occupied {
				n++
			}
		}
	}
	return n
}

// SeatRef addresses a seat by row name and 1-based column.
type SeatRef struct {
	Row    string `json:"row"`
	Column int    `json:"column"`
}

// Label returns the seat's display label, e.g. "B7".
func (s SeatRef) Label() string {
	return s.Row + strconv.Itoa(s.Column)
}

// ParseSeat parses a label such as "B7".
func ParseSeat(label string) (SeatRef, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) < 2 || !strings.ContainsRune(rowNames, rune(label[0])) {
		return SeatRef{}, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
	}
	col, err := strconv.Atoi(label[1:])
	if err != nil || col < 1 || col > MaxColumns {
		return SeatRef{}, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
	}
	return SeatRef{Row: label[:1], Column: col}, nil
}
