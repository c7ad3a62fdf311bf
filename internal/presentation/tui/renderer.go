package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown replies into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer with automatic light/dark styling.
// When glamour cannot initialize, replies are returned unchanged.
func NewRenderer(width int) Renderer {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return Plain
	}
	return func(markdown string) (string, error) {
		out, err := r.Render(markdown)
		if err != nil {
			return markdown, err
		}
		return out, nil
	}
}

// Plain is the renderer used when output is not a terminal.
func Plain(markdown string) (string, error) {
	return strings.TrimSpace(markdown) + "\n", nil
}
