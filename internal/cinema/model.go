// Package cinema defines the read-optimized venue, concession and showtime
// model served by anticine, plus the pure transformations that build it
// from upstream records.
package cinema

import "github.com/anticine/anticine/pkg/tags"

// Coords is a geographic position.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Venue is a single cinema location.
type Venue struct {
	ID      string `json:"cinema_id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
	Coords  Coords `json:"coords"`
}

// ConcessionItem is a product of a venue's concession catalog.
type ConcessionItem struct {
	ID           string `json:"item_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceInCents int    `json:"price_in_cents"`
}

// BillboardDay lists the movies showing at a venue on one date.
type BillboardDay struct {
	Date   string   `json:"date"`
	Movies []*Movie `json:"movies"`
}

// Movie is a film on a venue's billboard. The corporate film id is its
// identity across venues.
type Movie struct {
	FilmID      string         `json:"corporate_film_id"`
	Title       string         `json:"title"`
	Synopsis    string         `json:"synopsis"`
	Rating      string         `json:"rating"`
	TrailerURL  string         `json:"trailer_url"`
	PosterURL   string         `json:"poster_url"`
	Duration    int            `json:"duration"` // minutes
	VersionTags string         `json:"version_tags"`
	Cast        []CastMember   `json:"cast"`
	Versions    []MovieVersion `json:"movie_versions"`

	// Enrichment is shared by every occurrence of the same film id.
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// MovieVersion is a format/language variant of a movie.
type MovieVersion struct {
	ID    string `json:"movie_version_id"` // upstream film_HOPK
	Title string `json:"title"`
	tags.Set
	Sessions []Session `json:"sessions"`
}

// Session is one showtime of a movie version.
type Session struct {
	ID             string `json:"session_id"`
	Day            string `json:"day"`
	Hour           string `json:"hour"`
	SeatsAvailable int    `json:"seats_available"`
}

// CastMember is an actor or director.
type CastMember struct {
	FullName string `json:"fullname"`
	Role     string `json:"role"`
}

// RGB is a 24-bit color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Thumbnail is terminal art rendered from a movie poster.
type Thumbnail struct {
	Art          string `json:"raw_thumbnail_image"`
	AverageColor RGB    `json:"average_thumbnail_color"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// Enrichment is derived, memoized movie metadata.
type Enrichment struct {
	Tags      string     `json:"emojis"`
	Thumbnail *Thumbnail `json:"thumbnail,omitempty"`
}

// MovieSummary is a movie without cast, versions or thumbnail art.
type MovieSummary struct {
	FilmID       string `json:"corporate_film_id"`
	Title        string `json:"title"`
	Synopsis     string `json:"synopsis"`
	Rating       string `json:"rating"`
	TrailerURL   string `json:"trailer_url"`
	PosterURL    string `json:"poster_url"`
	Duration     int    `json:"duration"`
	VersionTags  string `json:"version_tags"`
	Tags         string `json:"emojis,omitempty"`
	AverageColor *RGB   `json:"average_thumbnail_color,omitempty"`
}

// Summary strips the heavy fields of a movie.
func (m *Movie) Summary() MovieSummary {
	s := MovieSummary{
		FilmID:      m.FilmID,
		Title:       m.Title,
		Synopsis:    m.Synopsis,
		Rating:      m.Rating,
		TrailerURL:  m.TrailerURL,
		PosterURL:   m.PosterURL,
		Duration:    m.Duration,
		VersionTags: m.VersionTags,
	}
	if m.Enrichment != nil {
		s.Tags = m.Enrichment.Tags
		if m.Enrichment.Thumbnail != nil {
			c := m.Enrichment.Thumbnail.AverageColor
			s.AverageColor = &c
		}
	}
	return s
}

// MovieDay is the versions of a single movie showing on one date.
type MovieDay struct {
	Date     string         `json:"date"`
	Versions []MovieVersion `json:"movie_versions"`
}

// DistinctMovies returns each film of a board once, in first-seen order.
func DistinctMovies(days []BillboardDay) []MovieSummary {
	seen := make(map[string]bool)
	out := make([]MovieSummary, 0)
	for _, day := range days {
		for _, m := range day.Movies {
			if seen[m.FilmID] {
				continue
			}
			seen[m.FilmID] = true
			out = append(out, m.Summary())
		}
	}
	return out
}

// FindMovie returns the movie with the given film id and the days it shows.
// The movie's fields come from its first day. The returned movie is nil when
// the film is not on the board.
func FindMovie(days []BillboardDay, filmID string) (*Movie, []MovieDay) {
	var found *Movie
	var out []MovieDay
	for _, day := range days {
		for _, m := range day.Movies {
			if m.FilmID != filmID {
				continue
			}
			if found == nil {
				found = m
			}
			out = append(out, MovieDay{Date: day.Date, Versions: m.Versions})
			break
		}
	}
	return found, out
}
