package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

var errNotUTF8 = errors.New("content is not valid UTF-8")

// PlainText reads .txt, .md and .csv uploads.
type PlainText struct{}

func (PlainText) Extract(ctx context.Context, blob []byte, kind domain.Kind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	blob = bytes.TrimPrefix(blob, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(blob) {
		return "", &faults.ExtractionError{Kind: string(kind), Cause: errNotUTF8}
	}
	return strings.TrimSpace(strings.ReplaceAll(string(blob), "\r\n", "\n")), nil
}
