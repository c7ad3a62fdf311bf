package textutil

import (
	"regexp"
	"strings"
)

// Sessions written by earlier releases embedded extracted documents inline,
// between these markers. The blocks are removed before text is shown or fed
// back to a model.
var (
	historicalBlock = regexp.MustCompile(`(?s)<!--HISTORICAL_DOC_TEXT-->.*?<!--END_HISTORICAL_DOC_TEXT-->`)
	markerLine      = regexp.MustCompile(`(?m)^\s*(?:<!--[A-Z_/]+-->|\[(?:DOC|DOCUMENT|HIDDEN)[_ ][A-Z_ ]*\])\s*$\n?`)
)

// StripMarkers removes legacy hidden-document blocks and stray sentinel lines.
func StripMarkers(s string) string {
	if !strings.Contains(s, "<!--") && !strings.Contains(s, "[") {
		return s
	}
	s = historicalBlock.ReplaceAllString(s, "")
	s = markerLine.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
