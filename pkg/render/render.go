// Package render turns model markdown into styled terminal output.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

type Renderer struct {
	term *glamour.TermRenderer
}

// New returns a renderer wrapping at width columns using one of glamour's standard styles.
func New(width int, style string) (*Renderer, error) {
	if width <= 0 {
		width = 80
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{term: term}, nil
}

// Render never fails: output that glamour cannot handle is shown as-is.
func (r *Renderer) Render(markdown string) string {
	if r == nil || r.term == nil {
		return markdown
	}
	out, err := r.term.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(out, "\n")
}
