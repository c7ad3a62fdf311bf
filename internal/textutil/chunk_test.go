package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, Chunk("  \n\n ", 100))
	})

	t.Run("merges short paragraphs", func(t *testing.T) {
		got := Chunk("uno\n\ndos\n\ntres", 100)
		assert.Equal(t, []string{"uno\n\ndos\n\ntres"}, got)
	})

	t.Run("breaks between paragraphs", func(t *testing.T) {
		got := Chunk("aaaa aaaa\n\nbbbb bbbb", 12)
		assert.Equal(t, []string{"aaaa aaaa", "bbbb bbbb"}, got)
	})

	t.Run("long paragraph splits on words", func(t *testing.T) {
		para := strings.Repeat("cláusula ", 30)
		got := Chunk(para, 40)
		assert.Greater(t, len(got), 1)
		for _, c := range got {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 40)
		}
		assert.Equal(t, strings.Fields(para), strings.Fields(strings.Join(got, " ")))
	})

	t.Run("oversized word is cut", func(t *testing.T) {
		got := Chunk(strings.Repeat("x", 25), 10)
		assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, got)
	})
}
