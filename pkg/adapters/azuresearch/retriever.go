// Package azuresearch implements knowledge retrieval over Azure AI Search,
// one index per specialist domain.
package azuresearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jorge-rr00/newbackend/internal/dto"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

const (
	provider          = "azure-search"
	defaultAPIVersion = "2023-11-01"
	maxResponseBody   = 16 << 20
)

// ErrNoIndex is returned for a domain without a configured index.
var ErrNoIndex = errors.New("no search index configured for domain")

// Config points the retriever at a search service.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Indexes    map[domain.Domain]string
	HTTPClient *http.Client
}

// Retriever implements ports.Retriever and ports.Indexer.
type Retriever struct {
	endpoint   string
	key        string
	apiVersion string
	indexes    map[domain.Domain]string
	client     *http.Client
}

var (
	_ ports.Retriever = (*Retriever)(nil)
	_ ports.Indexer   = (*Retriever)(nil)
)

// New validates cfg and returns a Retriever.
func New(cfg Config) (*Retriever, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, errors.New("azuresearch: endpoint and api key are required")
	}
	r := &Retriever{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		key:        cfg.APIKey,
		apiVersion: cfg.APIVersion,
		indexes:    make(map[domain.Domain]string, len(cfg.Indexes)),
		client:     cfg.HTTPClient,
	}
	if r.apiVersion == "" {
		r.apiVersion = defaultAPIVersion
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	for d, name := range cfg.Indexes {
		if name != "" {
			r.indexes[d] = name
		}
	}
	return r, nil
}

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
}

type searchResponse struct {
	Value []map[string]any `json:"value"`
}

// Search runs a full text query against the index of d. An empty result set
// is returned as an empty slice.
func (r *Retriever) Search(ctx context.Context, d domain.Domain, query string, topK int) ([]domain.Passage, error) {
	index, err := r.index(d)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 3
	}

	var resp searchResponse
	if err := r.post(ctx, index, "search", searchRequest{Search: query, Top: topK}, &resp); err != nil {
		return nil, err
	}

	passages := make([]domain.Passage, 0, len(resp.Value))
	for i, raw := range resp.Value {
		hit, err := dto.DecodeSearchHit(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", provider, err)
		}
		content := hit.Content()
		if content == "" {
			continue
		}
		id := hit.Key()
		if id == "" {
			id = fmt.Sprintf("%s#%d", index, i)
		}
		passages = append(passages, domain.Passage{
			ID:      id,
			Content: content,
			Score:   hit.Score,
			Source:  hit.Origin(),
		})
	}
	return passages, nil
}

type indexAction struct {
	Action  string `json:"@search.action"`
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

type indexRequest struct {
	Value []indexAction `json:"value"`
}

type indexResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"value"`
}

// Index uploads passages into the index of d, merging on id. Passages
// without an id get a random one.
func (r *Retriever) Index(ctx context.Context, d domain.Domain, passages []domain.Passage) error {
	index, err := r.index(d)
	if err != nil {
		return err
	}
	if len(passages) == 0 {
		return nil
	}

	req := indexRequest{Value: make([]indexAction, 0, len(passages))}
	for _, p := range passages {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		req.Value = append(req.Value, indexAction{Action: "mergeOrUpload", ID: id, Content: p.Content, Source: p.Source})
	}

	var resp indexResponse
	if err := r.post(ctx, index, "index", req, &resp); err != nil {
		return err
	}
	for _, v := range resp.Value {
		if !v.Status {
			return fmt.Errorf("%s: indexing %s failed: %s", provider, v.Key, v.ErrorMessage)
		}
	}
	return nil
}

func (r *Retriever) index(d domain.Domain) (string, error) {
	name, ok := r.indexes[d]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoIndex, d)
	}
	return name, nil
}

func (r *Retriever) post(ctx context.Context, index, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", provider, err)
	}

	u := fmt.Sprintf("%s/indexes/%s/docs/%s?api-version=%s", r.endpoint, url.PathEscape(index), op, url.QueryEscape(r.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", r.key)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s: read response: %w: %w", provider, faults.ErrProviderUnavailable, err)
	}
	// 207 is a partial success on index batches; per-document status is checked by the caller.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return faults.FromResponse(provider, resp.StatusCode, resp.Header, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}
