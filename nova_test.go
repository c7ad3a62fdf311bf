package newbackend_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-rr00/newbackend"
	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/internal/testutils"
	"github.com/jorge-rr00/newbackend/internal/workflow"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

func newAssistant(t *testing.T, gen *testutils.Generator, ext *testutils.Extractor) *newbackend.Assistant {
	t.Helper()
	n := 0
	nova, err := newbackend.New(
		newbackend.WithGenerator(gen),
		newbackend.WithRetriever(testutils.NewRetriever()),
		newbackend.WithExtractor(ext),
		newbackend.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		newbackend.WithRetryPolicy(resilience.Policy{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      1,
		}),
	)
	require.NoError(t, err)
	return nova
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := newbackend.New(newbackend.WithGenerator(testutils.NewGenerator()))
	assert.Error(t, err)
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	_, err := newbackend.New(
		newbackend.WithGenerator(testutils.NewGenerator()),
		newbackend.WithRetriever(testutils.NewRetriever()),
		newbackend.WithExtractor(testutils.NewExtractor()),
		newbackend.WithRetryPolicy(resilience.Policy{}),
	)
	assert.Error(t, err)
}

func TestAssistant_SessionLifecycle(t *testing.T) {
	gen := testutils.NewGenerator().
		Say(domain.ModeClassify, "LEGAL").
		Say(domain.ModeRoute, "ANSWER: Es un contrato de arrendamiento.")
	ext := testutils.NewExtractor().Returns("pdf-bytes", "TEXTO CONFIDENCIAL DEL CONTRATO")
	nova := newAssistant(t, gen, ext)
	ctx := context.Background()

	s, err := nova.CreateSession(ctx)
	require.NoError(t, err)
	require.Len(t, s.Turns, 1)

	history, err := nova.History(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, workflow.WelcomeMessage, history[0].Content)

	res := nova.ProcessTurn(ctx, s.ID, "¿Qué tipo de contrato es?", []domain.Attachment{testutils.File("c.pdf", "pdf-bytes")})
	require.True(t, res.OK(), "%+v", res.Error)
	assert.Equal(t, s.ID, res.SessionID)

	history, err = nova.History(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"c.pdf"}, history[1].Attachments)
	for _, m := range history {
		assert.NotContains(t, m.Content, "CONFIDENCIAL")
	}

	summaries, err := nova.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].TurnCount)
	assert.Equal(t, domain.DomainLegal, summaries[0].Classification)

	require.NoError(t, nova.ClearSession(ctx, s.ID))
	cleared, err := nova.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Turns)
	assert.Equal(t, domain.DomainLegal, cleared.Classification)

	require.NoError(t, nova.DeleteSession(ctx, s.ID))
	_, err = nova.Session(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAssistant_ProcessTurnWithoutSessionCreatesOne(t *testing.T) {
	nova := newAssistant(t, testutils.NewGenerator(), testutils.NewExtractor())

	res := nova.ProcessTurn(context.Background(), "", "legal", nil)
	require.True(t, res.OK())
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, domain.RouteDeclared, res.Route)

	s, err := nova.Session(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Len(t, s.Turns, 2, "welcome plus the declared turn")
}
