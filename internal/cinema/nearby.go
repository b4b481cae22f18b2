package cinema

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// cityMatchThreshold is the minimum Jaro-Winkler similarity for two city
// names to be considered the same ("Lima" vs "LIMA", "Ica" vs "Íca").
const cityMatchThreshold = 0.9

// SameCity reports whether two city names refer to the same city,
// ignoring case, accents and surrounding blanks.
func SameCity(a, b string) bool {
	na, nb := foldCity(a), foldCity(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return float64(edlib.JaroWinklerSimilarity(na, nb)) >= cityMatchThreshold
}

// Nearby returns the venues located in the given city ordered by distance
// to (lat, lon), closest first.
func Nearby(venues []Venue, city string, lat, lon float64) []Venue {
	out := make([]Venue, 0)
	for _, v := range venues {
		if SameCity(v.City, city) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return distance(out[i].Coords, lat, lon) < distance(out[j].Coords, lat, lon)
	})
	return out
}

// distance is planar; venues of one city are close enough for ordering.
func distance(c Coords, lat, lon float64) float64 {
	return math.Hypot(c.Lat-lat, c.Lon-lon)
}

func foldCity(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
