package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

// PDFCommand is the allow-list name the PDF extractor runs.
const PDFCommand = "pdftotext"

var errNotPDF = errors.New("missing %PDF header")

// CommandRunner runs an allow-listed external command by name.
// *process.Runner satisfies it.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// PDF extracts text with poppler's pdftotext. The blob is written to a
// temporary file because pdftotext needs a seekable input.
type PDF struct {
	runner CommandRunner
	tmpDir string
}

// NewPDF returns a PDF extractor running PDFCommand through runner.
func NewPDF(runner CommandRunner) *PDF {
	return &PDF{runner: runner}
}

func (p *PDF) Extract(ctx context.Context, blob []byte, kind domain.Kind) (string, error) {
	if !containsPDFHeader(blob) {
		return "", &faults.ExtractionError{Kind: string(kind), Cause: errNotPDF}
	}

	f, err := os.CreateTemp(p.tmpDir, "nova-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(blob); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp pdf: %w", err)
	}

	out, err := p.runner.Run(ctx, PDFCommand, "-layout", "-enc", "UTF-8", f.Name(), "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &faults.ExtractionError{Kind: string(kind), Cause: fmt.Errorf("pdftotext failed: %w", err)}
	}
	return strings.TrimSpace(strings.ReplaceAll(string(out), "\f", "\n")), nil
}

// containsPDFHeader tolerates leading junk before the header, as readers do.
func containsPDFHeader(blob []byte) bool {
	return strings.Contains(string(blob[:min(len(blob), 1024)]), "%PDF-")
}
