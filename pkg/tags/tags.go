// Package tags extracts presentation, language and seat-class tags from
// movie version titles such as "AVATAR (SUB 3D XD DBOX)".
package tags

import (
	"regexp"
	"strings"
)

// Defaults used when a category has no recognized token.
const (
	DefaultVersion  = "2D"
	DefaultLanguage = "DOB"
	DefaultSeats    = "TRAD"
)

// Category identifies one of the three tag vocabularies.
type Category int

const (
	CategoryNone Category = iota
	CategoryVersion
	CategoryLanguage
	CategorySeats
)

func (c Category) String() string {
	switch c {
	case CategoryVersion:
		return "version"
	case CategoryLanguage:
		return "language"
	case CategorySeats:
		return "seats"
	default:
		return "none"
	}
}

// vocabulary maps every recognized token to its category.
// ESP is undocumented upstream but shows up in version titles.
var vocabulary = map[string]Category{
	"2D":   CategoryVersion,
	"3D":   CategoryVersion,
	"XD":   CategoryVersion,
	"SUB":  CategoryLanguage,
	"DOB":  CategoryLanguage,
	"CAS":  CategoryLanguage,
	"ESP":  CategoryLanguage,
	"DBOX": CategorySeats,
	"PRE":  CategorySeats,
	"BIS":  CategorySeats,
	"TRAD": CategorySeats,
}

var groupRegex = regexp.MustCompile(`\(([^()]*)\)`)

// Set holds the space-joined tags of each category.
type Set struct {
	Version  string `json:"version_tags"`
	Language string `json:"language_tags"`
	Seats    string `json:"seats_tags"`
}

// Classify returns the category of a single token (case-insensitive).
func Classify(token string) Category {
	return vocabulary[strings.ToUpper(token)]
}

// Parse extracts tags from a version title. Only tokens inside parentheses
// are considered; unknown tokens are ignored and empty categories get their
// default. Tokens keep their source order, repeats included.
func Parse(title string) Set {
	var version, language, seats []string

	for _, m := range groupRegex.FindAllStringSubmatch(title, -1) {
		for _, tok := range strings.Fields(m[1]) {
			tok = strings.ToUpper(tok)
			switch vocabulary[tok] {
			case CategoryVersion:
				version = append(version, tok)
			case CategoryLanguage:
				language = append(language, tok)
			case CategorySeats:
				seats = append(seats, tok)
			}
		}
	}

	return Set{
		Version:  joinOrDefault(version, DefaultVersion),
		Language: joinOrDefault(language, DefaultLanguage),
		Seats:    joinOrDefault(seats, DefaultSeats),
	}
}

// Merge unions several tag strings, keeping first-seen order.
// Used to summarize all versions of a movie in one string.
func Merge(values ...string) string {
	var out []string
	for _, v := range values {
		for _, tok := range strings.Fields(v) {
			out = appendUnique(out, tok)
		}
	}
	return strings.Join(out, " ")
}

// Primary returns the first tag of a space-joined tag string.
func Primary(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func appendUnique(list []string, tok string) []string {
	for _, existing := range list {
		if existing == tok {
			return list
		}
	}
	return append(list, tok)
}

func joinOrDefault(list []string, def string) string {
	if len(list) == 0 {
		return def
	}
	return strings.Join(list, " ")
}
