package api

import (
	"github.com/anticine/anticine/internal/cinema"
	"github.com/anticine/anticine/internal/events"
	"github.com/anticine/anticine/internal/seating"
	"github.com/anticine/anticine/internal/snapshot"
)

type statusResponse struct {
	errorResponse
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type statsResponse struct {
	errorResponse
	Snapshot snapshot.Stats `json:"snapshot"`
}

// venueInfo is a venue without coordinates.
type venueInfo struct {
	ID      string `json:"cinema_id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
}

func venuesToInfo(venues []cinema.Venue) []venueInfo {
	out := make([]venueInfo, len(venues))
	for i, v := range venues {
		out[i] = venueInfo{ID: v.ID, Name: v.Name, City: v.City, Address: v.Address}
	}
	return out
}

type venuesResponse struct {
	errorResponse
	Cinemas []venueInfo `json:"cinemas"`
}

type nearbyResponse struct {
	errorResponse
	City      *string     `json:"city"`
	Cinemas   []venueInfo `json:"cinemas"`
	NearestID *string     `json:"nearest_id"`
}

type concessionsResponse struct {
	errorResponse
	Items []cinema.ConcessionItem `json:"confiteria"`
}

type moviesResponse struct {
	errorResponse
	Movies []cinema.MovieSummary `json:"movies"`
}

// movieDetail is a movie without its versions, which are listed per day.
type movieDetail struct {
	cinema.MovieSummary
	Cast      []cinema.CastMember `json:"cast"`
	Thumbnail *cinema.Thumbnail   `json:"thumbnail,omitempty"`
}

func movieToDetail(m *cinema.Movie) movieDetail {
	d := movieDetail{MovieSummary: m.Summary(), Cast: m.Cast}
	if m.Enrichment != nil {
		d.Thumbnail = m.Enrichment.Thumbnail
	}
	return d
}

type movieBoardResponse struct {
	errorResponse
	Movie movieDetail       `json:"movie"`
	Days  []cinema.MovieDay `json:"days"`
}

type sessionResponse struct {
	errorResponse
	Session *seating.SessionRecord `json:"session"`
}

type reserveRequest struct {
	Seats []string `json:"seats"`
}

type reservationResponse struct {
	errorResponse
	Reservation *seating.Reservation `json:"reservation"`
}

type conflictResponse struct {
	errorResponse
	Seats []string `json:"seats"`
}

type notFoundResponse struct {
	errorResponse
	ReadTheDocs string `json:"read_the_docs"`
}

type eventsResponse struct {
	errorResponse
	Events []events.RawEvent `json:"events"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}
