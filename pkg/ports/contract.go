package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000000000")
	now := time.Now().UTC().Truncate(time.Millisecond)

	newSession := func(t *testing.T, suffix string) string {
		t.Helper()
		id := prefix + "-" + suffix
		require.NoError(t, store.Create(ctx, domain.NewSession(id, now)))
		t.Cleanup(func() { _ = store.Delete(ctx, id) })
		return id
	}

	turn := func(text string, docs ...domain.HiddenTag) domain.Turn {
		return domain.Turn{
			ID:        text + "-id",
			Role:      domain.RoleUser,
			Status:    domain.EntryAccepted,
			Text:      text,
			Reply:     "reply to " + text,
			Route:     domain.RouteSpecialist,
			Documents: docs,
			Sources:   []string{"p1"},
			CreatedAt: now.Add(time.Second),
		}
	}

	t.Run("Create and Load", func(t *testing.T) {
		id := newSession(t, "create")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, loaded.ID)
		assert.Equal(t, domain.DomainUnset, loaded.Classification)
		assert.Empty(t, loaded.Turns)
	})

	t.Run("Create Duplicate", func(t *testing.T) {
		id := newSession(t, "dup")
		err := store.Create(ctx, domain.NewSession(id, now))
		assert.ErrorIs(t, err, domain.ErrSessionExists)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Commit Preserves Order And Tags", func(t *testing.T) {
		id := newSession(t, "order")
		tag := domain.HiddenTag{ContentHash: "abc", AttachmentID: "a1", Filename: "c.pdf", Kind: domain.KindPDF, Text: "doc body"}

		require.NoError(t, store.Commit(ctx, id, domain.Commit{Turn: turn("first", tag), Classification: domain.DomainLegal}))
		require.NoError(t, store.Commit(ctx, id, domain.Commit{Turn: turn("second")}))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.Len(t, loaded.Turns, 2)
		assert.Equal(t, "first", loaded.Turns[0].Text)
		assert.Equal(t, "second", loaded.Turns[1].Text)
		require.Len(t, loaded.Turns[0].Documents, 1)
		assert.Equal(t, "doc body", loaded.Turns[0].Documents[0].Text)
		assert.Equal(t, []string{"p1"}, loaded.Turns[0].Sources)
		assert.Equal(t, domain.DomainLegal, loaded.Classification)
	})

	t.Run("Commit Missing Session", func(t *testing.T) {
		err := store.Commit(ctx, prefix+"-ghost", domain.Commit{Turn: turn("x")})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Classification Is Set At Most Once", func(t *testing.T) {
		id := newSession(t, "classify")

		require.NoError(t, store.Commit(ctx, id, domain.Commit{Turn: turn("a"), Classification: domain.DomainFinancial}))

		err := store.Commit(ctx, id, domain.Commit{Turn: turn("b"), Classification: domain.DomainLegal})
		assert.ErrorIs(t, err, domain.ErrAlreadyClassified)

		err = store.SetClassification(ctx, id, domain.DomainLegal)
		assert.ErrorIs(t, err, domain.ErrAlreadyClassified)

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.DomainFinancial, loaded.Classification)
		assert.Len(t, loaded.Turns, 1, "a refused commit must not append the turn")
	})

	t.Run("SetClassification", func(t *testing.T) {
		id := newSession(t, "setclass")
		require.NoError(t, store.SetClassification(ctx, id, domain.DomainLegal))
		require.NoError(t, store.SetClassification(ctx, id, domain.DomainLegal))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.DomainLegal, loaded.Classification)
	})

	t.Run("Concurrent Commits Are Not Lost", func(t *testing.T) {
		id := newSession(t, "concurrent")
		const n = 8

		// Callers serialize per session through session.Manager; the store must
		// still never interleave a partial write with a concurrent one.
		var mu sync.Mutex
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				mu.Lock()
				defer mu.Unlock()
				assert.NoError(t, store.Commit(ctx, id, domain.Commit{Turn: turn("c")}))
			}(i)
		}
		wg.Wait()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Len(t, loaded.Turns, n)
	})

	t.Run("Clear Keeps Classification", func(t *testing.T) {
		id := newSession(t, "clear")
		require.NoError(t, store.Commit(ctx, id, domain.Commit{Turn: turn("a"), Classification: domain.DomainLegal}))

		require.NoError(t, store.Clear(ctx, id))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, loaded.Turns)
		assert.Equal(t, domain.DomainLegal, loaded.Classification)
	})

	t.Run("Delete", func(t *testing.T) {
		id := newSession(t, "delete")

		require.NoError(t, store.Delete(ctx, id))
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := newSession(t, "list-1")
		id2 := newSession(t, "list-2")
		require.NoError(t, store.Commit(ctx, id2, domain.Commit{Turn: turn("a")}))

		summaries, err := store.List(ctx)
		require.NoError(t, err)

		byID := make(map[string]domain.SessionSummary)
		for _, s := range summaries {
			byID[s.ID] = s
		}
		require.Contains(t, byID, id1)
		require.Contains(t, byID, id2)
		assert.Equal(t, 0, byID[id1].TurnCount)
		assert.Equal(t, 1, byID[id2].TurnCount)
	})
}
