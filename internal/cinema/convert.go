package cinema

import (
	"strings"

	"github.com/anticine/anticine/pkg/cinemark"
	"github.com/anticine/anticine/pkg/tags"
)

// VenuesFromTheatres flattens the city-grouped upstream listing. A venue
// listed twice is kept once, at its first position.
func VenuesFromTheatres(groups []cinemark.TheatreGroup, brand string) []Venue {
	venues := make([]Venue, 0)
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, t := range g.Cinemas {
			if t.ID == "" || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			venues = append(venues, Venue{
				ID:      t.ID,
				Name:    RewriteBrand(t.Name, brand),
				City:    t.City,
				Address: strings.TrimSpace(t.Address1),
				Coords: Coords{
					Lat: ParseCoord(t.Latitude),
					Lon: ParseCoord(t.Longitude),
				},
			})
		}
	}
	return venues
}

// ConcessionsFromResponse extracts a venue's catalog. The result is never
// nil so an empty catalog stays distinguishable from a missing one.
func ConcessionsFromResponse(resp *cinemark.ConcessionResponse) []ConcessionItem {
	items := make([]ConcessionItem, 0)
	if resp == nil {
		return items
	}
	for _, it := range resp.ConcessionItems {
		name := it.Description
		if it.DescriptionAlt != "" {
			name = it.DescriptionAlt
		}
		items = append(items, ConcessionItem{
			ID:           it.ID,
			Name:         name,
			Description:  it.ExtendedDescription,
			PriceInCents: it.PriceInCents,
		})
	}
	return items
}

// BoardFromBillboard converts a venue's billboard. Every movie occurrence
// gets its own *Movie; enrichment later attaches shared metadata.
func BoardFromBillboard(items []cinemark.BillboardItem, posterBase string) []BillboardDay {
	days := make([]BillboardDay, 0, len(items))
	for _, item := range items {
		movies := make([]*Movie, 0, len(item.Movies))
		for _, m := range item.Movies {
			movies = append(movies, movieFromUpstream(m, posterBase))
		}
		days = append(days, BillboardDay{Date: item.Date, Movies: movies})
	}
	return days
}

func movieFromUpstream(m cinemark.Movie, posterBase string) *Movie {
	cast := make([]CastMember, 0, len(m.Cast))
	for _, c := range m.Cast {
		cast = append(cast, CastMember{
			FullName: FullName(c.FirstName, c.LastName),
			Role:     c.PersonType,
		})
	}

	versions := make([]MovieVersion, 0, len(m.Versions))
	var formats, languages, seats []string
	for _, v := range m.Versions {
		set := tags.Parse(v.Title)
		formats = append(formats, set.Version)
		languages = append(languages, set.Language)
		seats = append(seats, set.Seats)

		sessions := make([]Session, 0, len(v.Sessions))
		for _, s := range v.Sessions {
			sessions = append(sessions, Session{
				ID:             s.ID,
				Day:            s.Day,
				Hour:           s.Hour,
				SeatsAvailable: s.SeatsAvailable,
			})
		}
		versions = append(versions, MovieVersion{
			ID:       v.FilmHOPK,
			Title:    v.Title,
			Set:      set,
			Sessions: sessions,
		})
	}

	summary := append(append(formats, languages...), seats...)

	return &Movie{
		FilmID:      m.CorporateFilmID,
		Title:       m.Title,
		Synopsis:    CleanSynopsis(m.Synopsis),
		Rating:      m.Rating,
		TrailerURL:  m.TrailerURL,
		PosterURL:   PosterURL(posterBase, m.CorporateFilmID),
		Duration:    ParseRuntime(m.Runtime),
		VersionTags: tags.Merge(summary...),
		Cast:        cast,
		Versions:    versions,
	}
}
