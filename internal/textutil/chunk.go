package textutil

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into passages of at most max characters, breaking on
// blank lines first and on whitespace when a paragraph is too long.
func Chunk(text string, max int) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	if max <= 0 {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) > max {
			flush()
			chunks = append(chunks, splitWords(para, max)...)
			continue
		}
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+2+utf8.RuneCountInString(para) > max {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()
	return chunks
}

func splitWords(para string, max int) []string {
	var out []string
	var cur []rune
	for _, w := range strings.Fields(para) {
		rw := []rune(w)
		for len(rw) > max {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(rw[:max]))
			rw = rw[max:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, rw...)
		case len(cur)+1+len(rw) > max:
			out = append(out, string(cur))
			cur = append([]rune(nil), rw...)
		default:
			cur = append(cur, ' ')
			cur = append(cur, rw...)
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
