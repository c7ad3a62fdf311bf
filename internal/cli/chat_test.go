package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
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

func newChatAssistant(t *testing.T, gen *testutils.Generator, ext *testutils.Extractor) *newbackend.Assistant {
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
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      1,
		}),
	)
	require.NoError(t, err)
	return nova
}

func TestRunChat_Conversation(t *testing.T) {
	gen := testutils.NewGenerator().Say(domain.ModeRoute, "ANSWER: El documento es un contrato.")
	ext := testutils.NewExtractor().Returns("pdf-bytes", "CONTRATO")
	nova := newChatAssistant(t, gen, ext)

	files := map[string][]byte{"/tmp/c.pdf": []byte("pdf-bytes")}
	var out bytes.Buffer
	in := strings.NewReader("legal\n/adjuntar /tmp/c.pdf\n¿Qué es esto?\n/historial\n/salir\nnunca\n")

	err := RunChat(context.Background(), nova, ChatOptions{
		In:  in,
		Out: &out,
		ReadFile: func(p string) ([]byte, error) {
			if b, ok := files[p]; ok {
				return b, nil
			}
			return nil, os.ErrNotExist
		},
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, workflow.WelcomeMessage)
	assert.Contains(t, text, "Intento registrado")
	assert.Contains(t, text, "Adjunto 'c.pdf'")
	assert.Contains(t, text, "El documento es un contrato.")
	assert.Contains(t, text, "(c.pdf)", "history lists attachment names")
	assert.NotContains(t, text, "CONTRATO\n", "document text never reaches the transcript")
	assert.Equal(t, 1, ext.Calls("pdf-bytes"))
	assert.Equal(t, 1, gen.Calls(domain.ModeRoute), "input after /salir is ignored")
}

func TestRunChat_ShowsFailures(t *testing.T) {
	gen := testutils.NewGenerator().Say(domain.ModeClassify, "OUT_OF_SCOPE")
	nova := newChatAssistant(t, gen, testutils.NewExtractor())

	var out bytes.Buffer
	err := RunChat(context.Background(), nova, ChatOptions{
		In:  strings.NewReader("cuéntame un chiste\n/adjuntar /nope\n/desconocido\n"),
		Out: &out,
		ReadFile: func(string) ([]byte, error) {
			return nil, errors.New("boom")
		},
	})
	require.NoError(t, err, "EOF ends the chat cleanly")

	text := out.String()
	assert.Contains(t, text, string(domain.KindGuardrailRejected))
	assert.Contains(t, text, "no se pudo leer /nope")
	assert.Contains(t, text, "Comando desconocido")
}

func TestRunChat_ResumesSession(t *testing.T) {
	nova := newChatAssistant(t, testutils.NewGenerator(), testutils.NewExtractor())
	s, err := nova.CreateSession(context.Background())
	require.NoError(t, err)

	var out bytes.Buffer
	err = RunChat(context.Background(), nova, ChatOptions{
		SessionID: s.ID,
		In:        strings.NewReader("/nueva\n"),
		Out:       &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Sesión '"+s.ID+"' reanudada.")
	assert.Contains(t, out.String(), "Sesión 'id-3' activa.")
}

func TestParseCommand(t *testing.T) {
	cmd, arg, ok := parseCommand("/Adjuntar  informe final.pdf ")
	assert.True(t, ok)
	assert.Equal(t, "adjuntar", cmd)
	assert.Equal(t, "informe final.pdf", arg)

	_, _, ok = parseCommand("hola")
	assert.False(t, ok)
}
