// Package cinemark provides a client for the Cinemark "vista" web API.
//
// The API is undocumented; only the fields anticine consumes are modeled.
package cinemark

// TheatreGroup is one city entry of the theatres listing.
type TheatreGroup struct {
	City    string    `json:"city"`
	Cinemas []Theatre `json:"cinemas"`
}

// Theatre is a single venue as returned upstream.
type Theatre struct {
	ID          string `json:"ID"`
	Name        string `json:"Name"`
	PhoneNumber string `json:"PhoneNumber"`
	Address1    string `json:"Address1"`
	Address2    string `json:"Address2"`
	City        string `json:"City"`
	Latitude    string `json:"Latitude"`
	Longitude   string `json:"Longitude"`
	Description string `json:"Description"`
	Slug        string `json:"Slug"`
}

// ConcessionResponse wraps the concession catalog of one venue.
// A non-zero ResponseCode carries an explicit upstream error.
type ConcessionResponse struct {
	ConcessionItems  []ConcessionItem `json:"ConcessionItems"`
	ErrorDescription *string          `json:"ErrorDescription"`
	ResponseCode     int              `json:"ResponseCode"`
}

// ConcessionItem is a single concession product.
type ConcessionItem struct {
	ID                  string `json:"Id"`
	Description         string `json:"Description"`
	DescriptionAlt      string `json:"DescriptionAlt"`
	ExtendedDescription string `json:"ExtendedDescription"`
	HeadOfficeItemCode  string `json:"HeadOfficeItemCode"`
	PriceInCents        int    `json:"PriceInCents"`
}

// BillboardItem is one day of a venue's billboard.
type BillboardItem struct {
	Date   string  `json:"date"`
	Movies []Movie `json:"movies"`
}

// Movie is a film showing at a venue on a given day.
type Movie struct {
	CorporateFilmID string    `json:"corporate_film_id"`
	FilmHOCode      string    `json:"film_HO_code"`
	Title           string    `json:"title"`
	TrailerURL      string    `json:"trailer_url"`
	GraphicURL      string    `json:"graphic_url"`
	Runtime         string    `json:"runtime"`
	Rating          string    `json:"rating"`
	Synopsis        string    `json:"synopsis"`
	OpeningDate     string    `json:"opening_date"`
	Cast            []Cast    `json:"cast"`
	Versions        []Version `json:"movie_versions"`
}

// Version is a language/format variant of a movie with its sessions.
type Version struct {
	ID         string    `json:"id"`
	FilmHOPK   string    `json:"film_HOPK"`
	Title      string    `json:"title"`
	FilmHOCode string    `json:"film_HO_code"`
	Sessions   []Session `json:"sessions"`
}

// Session is a single showtime.
type Session struct {
	ID             string `json:"id"`
	Showtime       string `json:"showtime"`
	Day            string `json:"day"`
	Hour           string `json:"hour"`
	SeatsAvailable int    `json:"seats_available"`
}

// Cast is a cast or crew member.
type Cast struct {
	ID         string `json:"ID"`
	FirstName  string `json:"FirstName"`
	LastName   string `json:"LastName"`
	PersonType string `json:"PersonType"` // "Actor" or "Director"
}
