package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jorge-rr00/newbackend/internal/textutil"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

// DefaultChunkSize is the passage length used when indexing documents.
const DefaultChunkSize = 1200

// IndexFiles extracts each file, splits it into passages and adds them to the
// knowledge index of d. Passage ids are derived from the file content so a
// re-index replaces earlier passages instead of duplicating them.
func IndexFiles(ctx context.Context, ext ports.Extractor, idx ports.Indexer, d domain.Domain, paths []string, readFile func(string) ([]byte, error), chunkSize int) (int, error) {
	if !d.Valid() {
		return 0, domain.ErrInvalidDomain
	}
	total := 0
	for _, path := range paths {
		data, err := readFile(path)
		if err != nil {
			return total, fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		text, err := ext.Extract(ctx, data, domain.DetectKind(name, ""))
		if err != nil {
			return total, fmt.Errorf("extract %s: %w", path, err)
		}

		hash := domain.HashContent(data)[:16]
		var passages []domain.Passage
		for i, chunk := range textutil.Chunk(text, chunkSize) {
			passages = append(passages, domain.Passage{
				ID:      fmt.Sprintf("%s-%d", hash, i),
				Content: chunk,
				Source:  name,
			})
		}
		if len(passages) == 0 {
			continue
		}
		if err := idx.Index(ctx, d, passages); err != nil {
			return total, fmt.Errorf("index %s: %w", path, err)
		}
		total += len(passages)
	}
	return total, nil
}
