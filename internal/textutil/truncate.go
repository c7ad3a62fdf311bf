package textutil

import "unicode/utf8"

// TruncateTail keeps the last max characters of s.
// Long documents tend to carry signatures and parties at the end.
func TruncateTail(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := utf8.RuneCountInString(s)
	if n <= max {
		return s
	}
	skip := n - max
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}
