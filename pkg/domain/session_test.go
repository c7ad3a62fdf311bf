package domain_test

import (
	"testing"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userTurn(text string, docs ...domain.HiddenTag) domain.Turn {
	return domain.Turn{
		ID:        text,
		Role:      domain.RoleUser,
		Status:    domain.EntryAccepted,
		Text:      text,
		Reply:     "re: " + text,
		Documents: docs,
		CreatedAt: time.Now(),
	}
}

func TestCommit_ClassifiesAtMostOnce(t *testing.T) {
	s := domain.NewSession("s1", time.Now())

	err := domain.Commit{Turn: userTurn("hola"), Classification: domain.DomainFinancial}.ApplyTo(s)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainFinancial, s.Classification)

	// Same value is idempotent.
	err = domain.Commit{Turn: userTurn("otra"), Classification: domain.DomainFinancial}.ApplyTo(s)
	require.NoError(t, err)

	err = domain.Commit{Turn: userTurn("legal"), Classification: domain.DomainLegal}.ApplyTo(s)
	assert.ErrorIs(t, err, domain.ErrAlreadyClassified)
	assert.Equal(t, domain.DomainFinancial, s.Classification)
	assert.Len(t, s.Turns, 2, "a refused commit must not append")
}

func TestCommit_RejectsInvalidDomain(t *testing.T) {
	s := domain.NewSession("s1", time.Now())
	err := domain.Commit{Turn: userTurn("x"), Classification: domain.Domain("medical")}.ApplyTo(s)
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)
	assert.Empty(t, s.Turns)
}

func TestSession_ActiveDocuments(t *testing.T) {
	s := domain.NewSession("s1", time.Now())
	a := domain.HiddenTag{ContentHash: "a", Text: "doc a"}
	b := domain.HiddenTag{ContentHash: "b", Text: "doc b"}

	s.Turns = append(s.Turns,
		userTurn("t1", a),
		domain.Turn{Role: domain.RoleUser, Status: domain.EntryRejected, Text: "chiste"},
		userTurn("t2", b),
		userTurn("t3"),
	)

	t.Run("no ttl keeps everything", func(t *testing.T) {
		docs := s.ActiveDocuments(0)
		require.Len(t, docs, 2)
		assert.Equal(t, "a", docs[0].ContentHash)
		assert.Equal(t, "b", docs[1].ContentHash)
	})

	t.Run("ttl drops old documents", func(t *testing.T) {
		docs := s.ActiveDocuments(2)
		require.Len(t, docs, 1)
		assert.Equal(t, "b", docs[0].ContentHash)
	})

	t.Run("known documents are content addressed", func(t *testing.T) {
		known := s.KnownDocuments()
		assert.Contains(t, known, "a")
		assert.Contains(t, known, "b")
	})
}

func TestSession_Window(t *testing.T) {
	s := domain.NewSession("s1", time.Now())
	for _, txt := range []string{"1", "2", "3", "4"} {
		s.Turns = append(s.Turns, userTurn(txt))
	}
	s.Turns = append(s.Turns, domain.Turn{Role: domain.RoleUser, Status: domain.EntryRejected, Text: "nope"})

	w := s.Window(2)
	require.Len(t, w, 2)
	assert.Equal(t, "3", w[0].Text)
	assert.Equal(t, "4", w[1].Text)

	assert.Empty(t, s.Window(0))
	assert.Len(t, s.Window(10), 4)
}

func TestSession_TranscriptHidesDocuments(t *testing.T) {
	s := domain.NewSession("s1", time.Now())
	s.Turns = append(s.Turns,
		domain.Turn{Role: domain.RoleSystem, Status: domain.EntryAccepted, Reply: "Bienvenido"},
		userTurn("resume", domain.HiddenTag{ContentHash: "h", Text: "SECRET DOC TEXT"}),
	)

	msgs := s.Transcript()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Bienvenido", msgs[0].Content)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	for _, m := range msgs {
		assert.NotContains(t, m.Content, "SECRET DOC TEXT")
	}
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := domain.NewSession("s1", time.Now())
	s.Turns = append(s.Turns, userTurn("a", domain.HiddenTag{ContentHash: "h"}))

	c := s.Clone()
	c.Turns[0].Documents[0].ContentHash = "mutated"
	c.Turns = append(c.Turns, userTurn("b"))

	assert.Equal(t, "h", s.Turns[0].Documents[0].ContentHash)
	assert.Len(t, s.Turns, 1)
}

func TestRoutingDecision_ExactlyOne(t *testing.T) {
	direct := domain.AnswerDirectly("42")
	text, ok := direct.Direct()
	assert.True(t, ok)
	assert.Equal(t, "42", text)
	_, delegated := direct.Delegated()
	assert.False(t, delegated)

	del := domain.Delegate(domain.DomainLegal)
	_, ok = del.Direct()
	assert.False(t, ok)
	d, ok := del.Delegated()
	assert.True(t, ok)
	assert.Equal(t, domain.DomainLegal, d)
}

func TestParseDomain(t *testing.T) {
	cases := map[string]domain.Domain{
		"financiera":  domain.DomainFinancial,
		" Financiero": domain.DomainFinancial,
		"FINANCIAL":   domain.DomainFinancial,
		"Legal.":      domain.DomainLegal,
		"jurídico":    domain.DomainLegal,
	}
	for in, want := range cases {
		got, ok := domain.ParseDomain(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := domain.ParseDomain("OUT_OF_SCOPE")
	assert.False(t, ok)
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, domain.KindPDF, domain.DetectKind("contrato.PDF", ""))
	assert.Equal(t, domain.KindImage, domain.DetectKind("scan.jpeg", ""))
	assert.Equal(t, domain.KindStructured, domain.DetectKind("memo.docx", ""))
	assert.Equal(t, domain.KindText, domain.DetectKind("notes.md", ""))
	assert.Equal(t, domain.KindImage, domain.DetectKind("blob", "image/png"))
	assert.Equal(t, domain.KindUnknown, domain.DetectKind("archive.zip", "application/zip"))
}

func TestWorkingMemory_Release(t *testing.T) {
	wm := domain.NewWorkingMemory("q")
	require.NoError(t, wm.Apply(domain.ExtractionPatch{NewTags: []domain.HiddenTag{{ContentHash: "x"}}}))
	assert.Len(t, wm.Documents, 1)

	wm.Release()
	assert.True(t, wm.Released())
	assert.Empty(t, wm.Documents)
	assert.ErrorIs(t, wm.Apply(domain.ExtractionPatch{}), domain.ErrMemoryReleased)
}

func TestWorkingMemory_ApplyDeduplicates(t *testing.T) {
	wm := domain.NewWorkingMemory("q")
	wm.Documents = []domain.HiddenTag{{ContentHash: "old"}}

	require.NoError(t, wm.Apply(domain.ExtractionPatch{
		Recalled: []domain.HiddenTag{{ContentHash: "old"}, {ContentHash: "expired"}},
		NewTags:  []domain.HiddenTag{{ContentHash: "new"}},
	}))

	var hashes []string
	for _, d := range wm.Documents {
		hashes = append(hashes, d.ContentHash)
	}
	assert.Equal(t, []string{"old", "expired", "new"}, hashes)
	assert.Len(t, wm.NewTags, 1)
}
