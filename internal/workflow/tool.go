package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jorge-rr00/newbackend/internal/textutil"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

// toolNode turns new attachments into hidden tags.
type toolNode struct {
	in          *invoker
	logger      *slog.Logger
	concurrency int
	maxChars    int
	now         func() time.Time
}

type extraction struct {
	text string
	err  error
}

// ingest extracts every attachment whose content is not already known to the
// session. Identical content inside one turn is extracted once. Results keep
// submission order. Per-attachment failures are flagged, not returned; the
// only error is the turn context ending.
func (n *toolNode) ingest(ctx context.Context, sc scope, attachments []domain.Attachment, known map[string]domain.HiddenTag) (domain.ExtractionPatch, error) {
	var patch domain.ExtractionPatch
	if len(attachments) == 0 {
		return patch, nil
	}

	refs := make([]domain.AttachmentRef, len(attachments))
	first := make(map[string]int) // content hash -> first index needing extraction
	var pending []int
	for i, a := range attachments {
		refs[i] = a.Ref()
		hash := refs[i].ContentHash
		if _, ok := known[hash]; ok {
			continue
		}
		if _, ok := first[hash]; ok {
			continue
		}
		first[hash] = i
		pending = append(pending, i)
	}

	results := make([]extraction, len(attachments))
	g := new(errgroup.Group)
	g.SetLimit(max(n.concurrency, 1))
	for _, i := range pending {
		a := attachments[i]
		kind := refs[i].Kind
		g.Go(func() error {
			results[i] = n.extractOne(ctx, sc, a, kind)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return patch, err
	}

	recalled := make(map[string]bool)
	extractedAt := n.now()
	for i, a := range attachments {
		ref := refs[i]
		hash := ref.ContentHash

		if tag, ok := known[hash]; ok {
			if !recalled[hash] {
				recalled[hash] = true
				patch.Recalled = append(patch.Recalled, tag)
			}
			patch.Attachments = append(patch.Attachments, ref)
			continue
		}

		res := results[first[hash]]
		if res.err != nil {
			ref.ExtractionFailed = true
			ref.Reason = failureReason(res.err)
			if first[hash] == i {
				n.logger.Warn("attachment extraction failed",
					"session_id", sc.sessionID,
					"filename", a.Filename,
					"kind", ref.Kind,
					"error", res.err,
				)
			}
			patch.Attachments = append(patch.Attachments, ref)
			continue
		}

		patch.Attachments = append(patch.Attachments, ref)
		if first[hash] == i {
			patch.NewTags = append(patch.NewTags, domain.HiddenTag{
				ContentHash:  hash,
				AttachmentID: a.ID,
				Filename:     a.Filename,
				Kind:         ref.Kind,
				Text:         res.text,
				ExtractedAt:  extractedAt,
			})
		}
	}
	return patch, nil
}

func (n *toolNode) extractOne(ctx context.Context, sc scope, a domain.Attachment, kind domain.Kind) extraction {
	if kind == domain.KindUnknown {
		return extraction{err: &faults.UnsupportedFormatError{Kind: string(kind), Filename: a.Filename}}
	}
	text, err := n.in.extract(ctx, sc, a.Data, kind)
	if err != nil {
		return extraction{err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return extraction{err: faults.ErrEmptyExtraction}
	}
	return extraction{text: textutil.TruncateTail(text, n.maxChars)}
}

func failureReason(err error) string {
	var unsupported *faults.UnsupportedFormatError
	switch {
	case errors.As(err, &unsupported):
		return "unsupported format"
	case errors.Is(err, faults.ErrEmptyExtraction):
		return "no text found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "extraction error"
}
