// Package format renders model output for the terminal.
package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
)

// Render modes.
const (
	ModePlain    = "plain"
	ModeMarkdown = "markdown"
)

// Renderer turns model replies into terminal text.
type Renderer struct {
	md *glamour.TermRenderer
}

// NewRenderer returns a Renderer for mode. Markdown mode renders through
// glamour with a fixed dark style, or a plain ASCII style when noColor is
// set. Plain mode passes text through untouched.
func NewRenderer(mode string, noColor bool, width int) (*Renderer, error) {
	switch mode {
	case "", ModePlain:
		return &Renderer{}, nil
	case ModeMarkdown:
	default:
		return nil, fmt.Errorf("format: unknown render mode %q (want %s or %s)", mode, ModePlain, ModeMarkdown)
	}

	if width <= 0 {
		width = 100
	}

	opts := []glamour.TermRendererOption{
		glamour.WithStyles(glamourstyles.DarkStyleConfig),
		glamour.WithWordWrap(width),
	}
	if noColor {
		opts = []glamour.TermRendererOption{
			glamour.WithStyles(glamourstyles.ASCIIStyleConfig),
			glamour.WithColorProfile(termenv.Ascii),
			glamour.WithWordWrap(width),
		}
	}

	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("format: markdown renderer: %w", err)
	}

	return &Renderer{md: md}, nil
}

// Render returns text formatted for display. A rendering failure falls back
// to the raw text.
func (r *Renderer) Render(text string) string {
	if r == nil || r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
