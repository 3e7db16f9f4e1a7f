// SPDX-License-Identifier: MPL-2.0

// Package line defines the console line model: an ordered list of colored
// text fragments. Every layer that displays or logs output uses it.
package line

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	// Default renders with the terminal's foreground color.
	Default Color = iota
	// Green marks success.
	Green
	// Red marks errors and forced termination.
	Red
	// Yellow marks warnings and errors converted to warnings.
	Yellow
)

// Palette shared with the CLI styles.
const (
	colorGreen  = lipgloss.Color("#10B981")
	colorRed    = lipgloss.Color("#EF4444")
	colorYellow = lipgloss.Color("#F59E0B")
)

type (
	// Color is the closed set of colors a console fragment can carry.
	Color int

	// Item is one colored fragment of a line.
	Item struct {
		Content string `json:"content"`
		Color   Color  `json:"color"`
	}

	// Line is an ordered, non-empty sequence of items.
	Line struct {
		items []Item
	}
)

// String returns the lowercase color name.
func (c Color) String() string {
	switch c {
	case Default:
		return "default"
	case Green:
		return "green"
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	}
	return fmt.Sprintf("color(%d)", int(c))
}

// ParseColor maps a color name back to a Color.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Default, nil
	case "green":
		return Green, nil
	case "red":
		return Red, nil
	case "yellow":
		return Yellow, nil
	}
	return Default, fmt.Errorf("unknown console color %q", s)
}

// New builds a line from items. With no items the line holds a single empty
// default fragment, so a Line is never empty.
func New(items ...Item) Line {
	if len(items) == 0 {
		return Line{items: []Item{{}}}
	}
	return Line{items: slices.Clone(items)}
}

// Text builds a single-fragment line.
func Text(content string, color Color) Line {
	return Line{items: []Item{{Content: content, Color: color}}}
}

// Empty returns a blank line.
func Empty() Line {
	return New()
}

// Items returns a copy of the line's fragments.
func (l Line) Items() []Item {
	if len(l.items) == 0 {
		return []Item{{}}
	}
	return slices.Clone(l.items)
}

// Color returns the color of the first fragment.
func (l Line) Color() Color {
	if len(l.items) == 0 {
		return Default
	}
	return l.items[0].Color
}

// String joins the fragment contents with single spaces.
func (l Line) String() string {
	parts := make([]string, 0, len(l.items))
	for _, it := range l.items {
		parts = append(parts, it.Content)
	}
	return strings.Join(parts, " ")
}

// Equal reports whether both lines hold the same fragments.
func (l Line) Equal(other Line) bool {
	return slices.Equal(l.Items(), other.Items())
}

// Render styles each fragment for the renderer's color profile and joins
// them like String does.
func (l Line) Render(r *lipgloss.Renderer) string {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	parts := make([]string, 0, len(l.items))
	for _, it := range l.items {
		parts = append(parts, style(r, it.Color).Render(it.Content))
	}
	return strings.Join(parts, " ")
}

func style(r *lipgloss.Renderer, c Color) lipgloss.Style {
	s := r.NewStyle()
	switch c {
	case Green:
		return s.Foreground(colorGreen)
	case Red:
		return s.Foreground(colorRed)
	case Yellow:
		return s.Foreground(colorYellow)
	case Default:
		return s
	}
	return s
}
