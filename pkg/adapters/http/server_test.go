package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-rr00/newbackend"
	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/internal/testutils"
	"github.com/jorge-rr00/newbackend/internal/workflow"
	novahttp "github.com/jorge-rr00/newbackend/pkg/adapters/http"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

type fixture struct {
	gen     *testutils.Generator
	ext     *testutils.Extractor
	nova    *newbackend.Assistant
	streams *novahttp.StreamManager
	handler http.Handler
}

func newFixture(t *testing.T, opts ...novahttp.Option) *fixture {
	t.Helper()
	f := &fixture{
		gen:     testutils.NewGenerator(),
		ext:     testutils.NewExtractor(),
		streams: novahttp.NewStreamManager(nil),
	}
	n := 0
	nova, err := newbackend.New(
		newbackend.WithGenerator(f.gen),
		newbackend.WithRetriever(testutils.NewRetriever()),
		newbackend.WithExtractor(f.ext),
		newbackend.WithLifecycleHooks(f.streams.Hooks()),
		newbackend.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		newbackend.WithRetryPolicy(resilience.Policy{
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      1,
		}),
	)
	require.NoError(t, err)
	f.nova = nova
	f.handler = novahttp.NewHandler(nova, append([]novahttp.Option{novahttp.WithStreams(f.streams)}, opts...)...)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func multipartQuery(t *testing.T, sessionID, query string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("query", query))
	if sessionID != "" {
		require.NoError(t, mw.WriteField("session_id", sessionID))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	f := newFixture(t, novahttp.WithAllowedOrigin("http://localhost:5173"))

	w := f.do(t, http.MethodOptions, "/api/query", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[struct {
		SessionID string           `json:"session_id"`
		Messages  []domain.Message `json:"messages"`
	}](t, w)
	require.NotEmpty(t, created.SessionID)
	require.Len(t, created.Messages, 1)
	assert.Equal(t, workflow.WelcomeMessage, created.Messages[0].Content)

	w = f.do(t, http.MethodGet, "/api/sessions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Sessions []domain.SessionSummary `json:"sessions"`
	}](t, w)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, created.SessionID, list.Sessions[0].ID)

	w = f.do(t, http.MethodGet, "/api/sessions/"+created.SessionID+"/messages", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/api/sessions/"+created.SessionID+"/messages", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	s, err := f.nova.Session(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Empty(t, s.Turns)

	w = f.do(t, http.MethodDelete, "/api/sessions/"+created.SessionID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/sessions/"+created.SessionID+"/messages", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode[novahttp.ErrorResponse](t, w).Code)
}

func TestDeleteAllSessions(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/sessions", nil, "").Code)
	}

	w := f.do(t, http.MethodDelete, "/api/sessions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":3}`, w.Body.String())

	list, err := f.nova.Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestQuery_MultipartWithDocument(t *testing.T) {
	f := newFixture(t)
	f.gen.Say(domain.ModeClassify, "LEGAL").
		Say(domain.ModeRoute, "ANSWER: Es un contrato de arrendamiento.")
	f.ext.Returns("pdf-bytes", "CONTRATO DE ARRENDAMIENTO")

	body, ct := multipartQuery(t, "", "¿Qué tipo de contrato es?", map[string]string{"c.pdf": "pdf-bytes"})
	w := f.do(t, http.MethodPost, "/api/query", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[novahttp.QueryResponse](t, w)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Reply, "arrendamiento")
	assert.Equal(t, domain.DomainLegal, resp.Domain)
	assert.Equal(t, 1, f.ext.Calls("pdf-bytes"))

	w = f.do(t, http.MethodGet, "/api/sessions/"+resp.SessionID+"/messages", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "CONTRATO DE ARRENDAMIENTO")
}

func TestQuery_JSONDeclaration(t *testing.T) {
	f := newFixture(t)
	body := bytes.NewBufferString(`{"query":"financiera"}`)

	w := f.do(t, http.MethodPost, "/api/query", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[novahttp.QueryResponse](t, w)
	assert.Equal(t, domain.RouteDeclared, resp.Route)
	assert.Equal(t, domain.DomainFinancial, resp.Domain)
	assert.Zero(t, f.gen.Calls(domain.ModeClassify))
}

func TestQuery_ErrorStatus(t *testing.T) {
	cases := []struct {
		name     string
		script   func(*testutils.Generator)
		query    string
		status   int
		code     domain.ErrorKind
		rejected bool
	}{
		{
			name:     "guardrail rejection",
			script:   func(g *testutils.Generator) { g.Say(domain.ModeClassify, "OUT_OF_SCOPE") },
			query:    "cuéntame un chiste",
			status:   http.StatusBadRequest,
			code:     domain.KindGuardrailRejected,
			rejected: true,
		},
		{
			name:   "classifier unavailable",
			script: func(*testutils.Generator) {},
			query:  "¿cuál es mi saldo?",
			status: http.StatusServiceUnavailable,
			code:   domain.KindClassificationUnavailable,
		},
		{
			name:   "no usable input",
			script: func(*testutils.Generator) {},
			query:  "   ",
			status: http.StatusBadRequest,
			code:   domain.KindNoUsableInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.script(f.gen)

			body, ct := multipartQuery(t, "", tc.query, nil)
			w := f.do(t, http.MethodPost, "/api/query", body, ct)
			assert.Equal(t, tc.status, w.Code, w.Body.String())

			resp := decode[novahttp.ErrorResponse](t, w)
			assert.Equal(t, string(tc.code), resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tc.rejected, resp.Rejected)
		})
	}
}

func TestQuery_PayloadTooLarge(t *testing.T) {
	f := newFixture(t, novahttp.WithMaxUploadBytes(1024))

	body, ct := multipartQuery(t, "", "resume", map[string]string{"big.txt": strings.Repeat("x", 4096)})
	w := f.do(t, http.MethodPost, "/api/query", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestQuery_InvalidSessionID(t *testing.T) {
	for name, id := range map[string]string{
		"too long":       strings.Repeat("a", 129),
		"path separator": "../sessions",
		"control char":   "abc\tdef",
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.gen.Say(domain.ModeClassify, "LEGAL")

			body, ct := multipartQuery(t, id, "¿Qué es un contrato?", nil)
			w := f.do(t, http.MethodPost, "/api/query", body, ct)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "BAD_REQUEST", decode[novahttp.ErrorResponse](t, w).Code)
			assert.Zero(t, f.gen.Calls(domain.ModeClassify))
		})
	}
}

func TestQuery_MalformedJSON(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/query", bytes.NewBufferString("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "nova_turns_total 0")
	})
	f := newFixture(t, novahttp.WithMetrics("/metrics", metrics))

	w := f.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nova_turns_total")
}

func TestSubscribeEvents_StreamsTurnProgress(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	s, err := f.nova.CreateSession(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/"+s.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return f.streams.Subscribers(s.ID) == 1 }, time.Second, 10*time.Millisecond)

	res := f.nova.ProcessTurn(context.Background(), s.ID, "legal", nil)
	require.True(t, res.OK())

	var sawTurn bool
	for !sawTurn {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var ev struct {
			Type      domain.EventType `json:"type"`
			SessionID string           `json:"session_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev))
		assert.Equal(t, s.ID, ev.SessionID)
		sawTurn = ev.Type == domain.EventTurnCompleted
	}
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := novahttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")

	for i := 0; i < 100; i++ {
		sm.Broadcast("s1", "msg")
	}
	assert.Len(t, ch, cap(ch))

	cancel()
	cancel()
	assert.Zero(t, sm.Subscribers("s1"))
}
