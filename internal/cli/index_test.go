package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-rr00/newbackend/pkg/adapters/extract"
	"github.com/jorge-rr00/newbackend/pkg/adapters/sqlite"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

func TestIndexFiles(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "ley.txt")
	require.NoError(t, os.WriteFile(doc, []byte("El arrendador debe entregar la vivienda.\n\nEl arrendatario paga la renta mensual."), 0o644))

	db, err := sqlite.Open(filepath.Join(dir, "kb.db"))
	require.NoError(t, err)
	defer db.Close()
	kb := sqlite.NewKnowledge(db)
	ctx := context.Background()

	n, err := IndexFiles(ctx, extract.NewRouter(), kb, domain.DomainLegal, []string{doc}, os.ReadFile, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-indexing the same content replaces the passages.
	n, err = IndexFiles(ctx, extract.NewRouter(), kb, domain.DomainLegal, []string{doc}, os.ReadFile, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := kb.Search(ctx, domain.DomainLegal, "renta", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ley.txt", hits[0].Source)
}

func TestIndexFiles_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := IndexFiles(ctx, extract.NewRouter(), nil, domain.Domain("medical"), nil, os.ReadFile, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)

	_, err = IndexFiles(ctx, extract.NewRouter(), nil, domain.DomainLegal, []string{"missing.txt"}, os.ReadFile, 0)
	assert.ErrorContains(t, err, "read missing.txt")

	dir := t.TempDir()
	zip := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(zip, []byte("PK"), 0o644))
	_, err = IndexFiles(ctx, extract.NewRouter(), nil, domain.DomainLegal, []string{zip}, os.ReadFile, 0)
	assert.ErrorContains(t, err, "extract")
}
