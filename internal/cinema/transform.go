package cinema

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultPosterBase is where the chain's CDN serves 300x400 posters.
const DefaultPosterBase = "https://cinemarkmedia.modyocdn.com/pe/300x400"

var brandRegex = regexp.MustCompile(`(?i)cinemark`)

// RewriteBrand replaces the upstream brand name with the local one.
func RewriteBrand(name, brand string) string {
	if brand == "" {
		return name
	}
	return brandRegex.ReplaceAllLiteralString(name, brand)
}

// CleanSynopsis normalizes upstream synopsis text: NFC composition, runs
// of whitespace (tabs, carriage returns, double spaces) collapse to a single
// space, and leading/trailing blanks are removed.
func CleanSynopsis(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// PosterURL derives the poster location from the corporate film id.
func PosterURL(base, filmID string) string {
	if base == "" {
		base = DefaultPosterBase
	}
	return strings.TrimSuffix(base, "/") + "/" + filmID + ".jpg"
}

// ParseRuntime parses a runtime in minutes; unparsable values yield 0.
func ParseRuntime(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// FullName joins a cast member's names. Upstream first names often carry
// trailing blanks.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimRight(first, " ") + " " + strings.TrimSpace(last))
}

// ParseCoord parses a latitude or longitude string; invalid values yield 0.
func ParseCoord(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
