// Package styles holds the terminal styles and layout helpers used by the
// chainkit output.
package styles

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Width is the width of banners and rules.
const Width = 60

// Palette.
var (
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#8b949e"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
)

// Styles is the set of styles bound to one output.
type Styles struct {
	Frame   lipgloss.Style
	Header  lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
}

// New returns styles for w. Colors are dropped when noColor is set or when w
// is not a terminal.
func New(w io.Writer, noColor bool) Styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}

	return Styles{
		Frame:   r.NewStyle().Bold(true).Foreground(ColorAccent),
		Header:  r.NewStyle().Bold(true),
		Label:   r.NewStyle().Bold(true).Foreground(ColorAccent),
		Dim:     r.NewStyle().Foreground(ColorMuted),
		Error:   r.NewStyle().Bold(true).Foreground(ColorError),
		Success: r.NewStyle().Bold(true).Foreground(ColorSuccess),
	}
}

// Rule returns a line of width '=' characters.
func Rule(width int) string {
	return strings.Repeat("=", width)
}

// Center pads s on the left so it sits in the middle of width display
// columns. Strings wider than width are returned unchanged.
func Center(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", (width-w)/2) + s
}

// Banner frames title between two rules.
func (s Styles) Banner(title string) string {
	rule := s.Frame.Render(Rule(Width))
	return rule + "\n" + s.Frame.Render(Center(title, Width)) + "\n" + rule
}

// Columns lays out rows of (name, description) pairs with the names padded
// to a common display width.
func Columns(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r[0]))
	}

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(runewidth.FillRight(r[0], width+2))
		b.WriteString(r[1])
		b.WriteByte('\n')
	}
	return b.String()
}
