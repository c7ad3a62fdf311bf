package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-rr00/newbackend"
	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/internal/testutils"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

func newTestServer(t *testing.T, gen *testutils.Generator) *Server {
	t.Helper()
	n := 0
	nova, err := newbackend.New(
		newbackend.WithGenerator(gen),
		newbackend.WithRetriever(testutils.NewRetriever()),
		newbackend.WithExtractor(testutils.NewExtractor()),
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
	return NewServer(nova, nil)
}

func TestAsk_StartsSessionAndAnswers(t *testing.T) {
	gen := testutils.NewGenerator().
		Say(domain.ModeClassify, "FINANCIAL").
		Say(domain.ModeRoute, "ANSWER: El IVA general es del 21%.")
	s := newTestServer(t, gen)
	ctx := context.Background()

	res, err := s.handleAsk(ctx, mcp.CallToolRequest{}, AskArgs{Query: "¿Cuál es el IVA general?"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, domain.DomainFinancial, res.Domain)
	assert.Contains(t, res.Reply, "21%")

	hist, err := s.handleHistory(ctx, mcp.CallToolRequest{}, HistoryArgs{SessionID: res.SessionID})
	require.NoError(t, err)
	require.Len(t, hist.Messages, 3)
	assert.Equal(t, domain.RoleUser, hist.Messages[1].Role)
}

func TestAsk_FailureCarriesKind(t *testing.T) {
	gen := testutils.NewGenerator().Say(domain.ModeClassify, "OUT_OF_SCOPE")
	s := newTestServer(t, gen)

	_, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Query: "una receta de paella"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.KindGuardrailRejected))
}

func TestHistory_Errors(t *testing.T) {
	s := newTestServer(t, testutils.NewGenerator())
	ctx := context.Background()

	_, err := s.handleHistory(ctx, mcp.CallToolRequest{}, HistoryArgs{})
	assert.ErrorIs(t, err, domain.ErrEmptySessionID)

	_, err = s.handleHistory(ctx, mcp.CallToolRequest{}, HistoryArgs{SessionID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestToolsAreListed(t *testing.T) {
	s := newTestServer(t, testutils.NewGenerator())

	raw := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := s.MCPServer().HandleMessage(context.Background(), raw)
	b, err := json.Marshal(resp)
	require.NoError(t, err)

	out := string(b)
	assert.Contains(t, out, `"ask"`)
	assert.Contains(t, out, `"history"`)
	assert.Contains(t, out, `"sessions"`)
}
