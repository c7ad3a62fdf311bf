package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	limit := 64

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInput(strings.Repeat("a", tt.inputSize), limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := SanitizeInput(strings.Repeat("a", DefaultMaxInputSize+1), 0)
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "¿Qué es un pagaré?", "¿Qué es un pagaré?"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("bad\xff", 0)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestTruncateTail(t *testing.T) {
	assert.Equal(t, "hello", TruncateTail("hello", 10))
	assert.Equal(t, "hello", TruncateTail("hello", 0))
	assert.Equal(t, "llo", TruncateTail("hello", 3))
	assert.Equal(t, "ñó", TruncateTail("añó", 2), "limits count characters, not bytes")
}

func TestStripMarkers(t *testing.T) {
	in := "Respuesta final.\n<!--HISTORICAL_DOC_TEXT-->\ncontenido secreto\n<!--END_HISTORICAL_DOC_TEXT-->\n[DOC_CONTEXT]\n"
	out := StripMarkers(in)
	assert.Equal(t, "Respuesta final.", out)
	assert.NotContains(t, out, "secreto")

	assert.Equal(t, "sin marcas", StripMarkers("sin marcas"))
	assert.Equal(t, "ver [1] arriba", StripMarkers("ver [1] arriba"))
}
