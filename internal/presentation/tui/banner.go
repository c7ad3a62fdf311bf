package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Nova banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  _   _                 ", "#818cf8"},
		{" | \\ | | _____   ____ _ ", "#a78bfa"},
		{" |  \\| |/ _ \\ \\ / / _` |", "#c084fc"},
		{" | |\\  | (_) \\ V / (_| |", "#e879f9"},
		{" |_| \\_|\\___/ \\_/ \\__,_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  asistente financiero y legal · v"+v).Faint())
	}
	fmt.Fprintln(w)
}

// Dim renders s faint when the terminal supports it.
func Dim(s string) string {
	return termenv.String(s).Faint().String()
}

// Alert renders s in the error color.
func Alert(s string) string {
	p := termenv.ColorProfile()
	return termenv.String(s).Foreground(p.Color("#fb7185")).String()
}
