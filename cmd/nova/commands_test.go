package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph", "--route", "declared")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "class committed current")

	_, err = run(t, "graph", "--route", "nowhere")
	assert.ErrorContains(t, err, "unknown route")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nova version ")
}

func TestRedactDocuments(t *testing.T) {
	s := domain.NewSession("s1", time.Now())
	s.Turns = append(s.Turns, domain.Turn{
		ID:        "t1",
		Documents: []domain.HiddenTag{{Filename: "contrato.pdf", Text: "cláusula"}},
	})

	redactDocuments(s)
	assert.Equal(t, "[8 chars]", s.Turns[0].Documents[0].Text)
	assert.Equal(t, "contrato.pdf", s.Turns[0].Documents[0].Filename)
}
