package azuresearch_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jorge-rr00/newbackend/pkg/adapters/azuresearch"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetriever(t *testing.T, h http.HandlerFunc) *azuresearch.Retriever {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	r, err := azuresearch.New(azuresearch.Config{
		Endpoint: srv.URL + "/",
		APIKey:   "key",
		Indexes: map[domain.Domain]string{
			domain.DomainLegal:     "legal-idx",
			domain.DomainFinancial: "fin-idx",
		},
	})
	require.NoError(t, err)
	return r
}

func TestRetriever_Search(t *testing.T) {
	var body map[string]any
	r := newRetriever(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/indexes/legal-idx/docs/search", req.URL.Path)
		assert.Equal(t, "2023-11-01", req.URL.Query().Get("api-version"))
		assert.Equal(t, "key", req.Header.Get("api-key"))
		raw, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		_, _ = io.WriteString(w, `{"value":[
			{"@search.score":3.1,"id":"a","content":"Artículo 1544 del Código Civil.","source":"cc.pdf"},
			{"@search.score":1.2,"chunk_id":"b","text_chunk":"Una cláusula de penalización debe ser proporcional."},
			{"@search.score":0.4,"id":"c","n":1}
		]}`)
	})

	passages, err := r.Search(context.Background(), domain.DomainLegal, "arrendamiento", 3)
	require.NoError(t, err)
	require.Len(t, passages, 2, "hits without content are skipped")
	assert.Equal(t, "a", passages[0].ID)
	assert.Equal(t, "cc.pdf", passages[0].Source)
	assert.Equal(t, 3.1, passages[0].Score)
	assert.Equal(t, "b", passages[1].ID)
	assert.Contains(t, passages[1].Content, "penalización")

	assert.Equal(t, "arrendamiento", body["search"])
	assert.EqualValues(t, 3, body["top"])
}

func TestRetriever_EmptyIsNotAnError(t *testing.T) {
	r := newRetriever(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"value":[]}`)
	})
	passages, err := r.Search(context.Background(), domain.DomainFinancial, "q", 3)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetriever_Outage(t *testing.T) {
	r := newRetriever(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := r.Search(context.Background(), domain.DomainLegal, "q", 3)
	require.Error(t, err)
	assert.True(t, faults.IsRetryableError(err))

	var pe *faults.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.RetryAfter)
}

func TestRetriever_UnknownDomain(t *testing.T) {
	r := newRetriever(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := r.Search(context.Background(), domain.DomainUnset, "q", 3)
	assert.ErrorIs(t, err, azuresearch.ErrNoIndex)
}

func TestRetriever_Index(t *testing.T) {
	var got struct {
		Value []map[string]string `json:"value"`
	}
	r := newRetriever(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/indexes/fin-idx/docs/index", req.URL.Path)
		raw, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = io.WriteString(w, `{"value":[{"key":"p1","status":true},{"key":"x","status":true}]}`)
	})

	err := r.Index(context.Background(), domain.DomainFinancial, []domain.Passage{
		{ID: "p1", Content: "IVA general 21%"},
		{Content: "sin id"},
	})
	require.NoError(t, err)
	require.Len(t, got.Value, 2)
	assert.Equal(t, "mergeOrUpload", got.Value[0]["@search.action"])
	assert.NotEmpty(t, got.Value[1]["id"])
}

func TestRetriever_IndexPartialFailure(t *testing.T) {
	r := newRetriever(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, `{"value":[{"key":"p1","status":false,"errorMessage":"too large"}]}`)
	})
	err := r.Index(context.Background(), domain.DomainLegal, []domain.Passage{{ID: "p1", Content: "x"}})
	assert.ErrorContains(t, err, "too large")
}
