package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

const maxDocumentXML = 32 << 20

var errNoDocumentXML = errors.New("word/document.xml not found")

// DOCX reads the paragraphs of an Office Open XML document.
// Legacy binary .doc files are rejected by the zip reader.
type DOCX struct{}

func (DOCX) Extract(ctx context.Context, blob []byte, kind domain.Kind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fail := func(err error) (string, error) {
		return "", &faults.ExtractionError{Kind: string(kind), Cause: err}
	}

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return fail(fmt.Errorf("open docx: %w", err))
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return fail(errNoDocumentXML)
	}

	rc, err := doc.Open()
	if err != nil {
		return fail(fmt.Errorf("open document.xml: %w", err))
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentXML))
	if err != nil {
		return fail(fmt.Errorf("read document.xml: %w", err))
	}

	text, err := parseDocumentXML(data)
	if err != nil {
		return fail(err)
	}
	return text, nil
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []struct {
		Text []string `xml:"t"`
	} `xml:"r"`
}

func parseDocumentXML(data []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				sb.WriteString(t)
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
