// Package dto holds wire shapes decoded from loosely typed provider payloads.
package dto

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// contentFields are tried in order when locating the passage body of a hit.
var contentFields = []string{"content_text", "content", "text", "document_text", "body", "searchable_text"}

// minFallbackContent is the shortest string accepted as content when none of
// the known fields is present.
const minFallbackContent = 30

// SearchHit is one document of an Azure AI Search response. Index schemas
// differ per knowledge base, so only the well known keys are typed and the
// rest are kept for content discovery.
type SearchHit struct {
	ID      string  `mapstructure:"id"`
	ChunkID string  `mapstructure:"chunk_id"`
	Score   float64 `mapstructure:"@search.score"`
	Source  string  `mapstructure:"source"`
	Title   string  `mapstructure:"title"`
	Storage string  `mapstructure:"metadata_storage_name"`

	Rest map[string]any `mapstructure:",remain"`
}

// DecodeSearchHit decodes a raw search document.
func DecodeSearchHit(raw map[string]any) (SearchHit, error) {
	var hit SearchHit
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &hit,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return hit, err
	}
	if err := dec.Decode(raw); err != nil {
		return hit, fmt.Errorf("decode search hit: %w", err)
	}
	return hit, nil
}

// Key returns the document key, or "" when the index exposes none.
func (h SearchHit) Key() string {
	if h.ID != "" {
		return h.ID
	}
	return h.ChunkID
}

// Origin names the source document of the hit.
func (h SearchHit) Origin() string {
	switch {
	case h.Source != "":
		return h.Source
	case h.Title != "":
		return h.Title
	}
	return h.Storage
}

// Content locates the passage body: known fields first, then the first long
// string field in key order.
func (h SearchHit) Content() string {
	for _, k := range contentFields {
		if s, ok := h.Rest[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}

	keys := make([]string, 0, len(h.Rest))
	for k := range h.Rest {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, "@") {
			continue
		}
		if s, ok := h.Rest[k].(string); ok && len(strings.TrimSpace(s)) > minFallbackContent {
			return s
		}
	}
	return ""
}
