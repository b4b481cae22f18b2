package ai

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/rivo/uniseg"
)

// TagLength is the number of emoji kept from a model reply. A ZWJ sequence,
// a skin tone or a variation selector counts with its base emoji.
const TagLength = 5

var promptTemplate = template.Must(template.New("prompt").Parse(
	`This is a game! Given the title and descripcion of two movies, represent each of them with 5 flat emojis.

----------
1) FROZEN:
Anna se une a Kristoff, un alpinista extremo, y a su reno, Sven, en un viaje épico donde se toparán con místicos Trolls, un divertido muñeco de nieve llamado Olaf, y temperaturas extremas, en una aventura por hallar a su hermana: la princesa Elsa.
----------
five flat emojis: ⛄🏰👸🏔️🥶

----------
2) {{.Title}}:
{{.Synopsis}}
----------
five flat emojis:`))

// Tagger turns a movie's title and synopsis into a short emoji tag.
type Tagger struct {
	provider Provider
}

// NewTagger creates a tagger backed by the given provider.
func NewTagger(p Provider) *Tagger {
	return &Tagger{provider: p}
}

// Prompt renders the few-shot prompt for a movie.
func Prompt(title, synopsis string) string {
	var b strings.Builder
	// Execute only fails on writer errors; strings.Builder never returns one.
	_ = promptTemplate.Execute(&b, struct{ Title, Synopsis string }{title, synopsis})
	return b.String()
}

// Tag asks the provider for a tag and keeps its first TagLength characters.
func (t *Tagger) Tag(ctx context.Context, title, synopsis string) (string, error) {
	resp, err := t.provider.Chat(ctx, []Message{
		{Role: "user", Content: Prompt(title, synopsis)},
	})
	if err != nil {
		return "", fmt.Errorf("tag %q: %w", title, err)
	}

	tag := Truncate(strings.TrimSpace(resp.Content), TagLength)
	if tag == "" {
		return "", fmt.Errorf("tag %q: %w", title, ErrEmptyReply)
	}
	return tag, nil
}

// Truncate keeps the first n user-perceived characters (grapheme clusters)
// of s.
func Truncate(s string, n int) string {
	g := uniseg.NewGraphemes(s)
	for i := 0; g.Next(); i++ {
		if i == n {
			from, _ := g.Positions()
			return s[:from]
		}
	}
	return s
}
