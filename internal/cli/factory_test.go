package cli

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-rr00/newbackend/internal/config"
	"github.com/jorge-rr00/newbackend/internal/logging"
	"github.com/jorge-rr00/newbackend/internal/testutils"
	"github.com/jorge-rr00/newbackend/pkg/adapters/extract"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = t.TempDir()
	return &cfg
}

func roundTrip(t *testing.T, svc *Services) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.Store.Create(ctx, domain.NewSession("s1", time.Now())))
	loaded, err := svc.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", loaded.ID)
}

func TestOpenStorage_Backends(t *testing.T) {
	for _, backend := range []string{"memory", "file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Store.Backend = backend

			svc, err := OpenStorage(cfg, logging.NewNop())
			require.NoError(t, err)
			defer func() { assert.NoError(t, svc.Close()) }()

			assert.Nil(t, svc.Locker)
			roundTrip(t, svc)
		})
	}
}

func TestOpenStorage_RedisWithLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Backend = "redis"
	cfg.Store.RedisAddr = mr.Addr()
	cfg.Store.DistributedLock = true

	svc, err := OpenStorage(cfg, logging.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.Locker)
	roundTrip(t, svc)
}

func TestOpenStorage_Encryption(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	t.Run("valid key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.EncryptionKey = key
		cfg.Store.FallbackKeys = []string{key}
		cfg.Store.MaskPII = true

		svc, err := OpenStorage(cfg, logging.NewNop())
		require.NoError(t, err)
		roundTrip(t, svc)
	})

	t.Run("short key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
		_, err := OpenStorage(cfg, logging.NewNop())
		assert.ErrorContains(t, err, "32 bytes")
	})

	t.Run("not base64", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.EncryptionKey = "%%%"
		_, err := OpenStorage(cfg, logging.NewNop())
		assert.ErrorContains(t, err, "base64")
	})
}

func TestSqlitePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "nova.db"), sqlitePath("data"))
	assert.Equal(t, "kb.sqlite", sqlitePath("kb.sqlite"))
	assert.Equal(t, "nova.db", sqlitePath(""))
}

func TestNewExtractor(t *testing.T) {
	dir := t.TempDir()
	commands := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(commands, []byte(`
commands:
  - name: pdftotext
    command: /opt/poppler/bin/pdftotext
`), 0o644))

	cfg := config.ExtractionConfig{PDFToText: "pdftotext", CommandsFile: commands}
	ext, err := NewExtractor(cfg, logging.NewNop())
	require.NoError(t, err)

	router, ok := ext.(*extract.Router)
	require.True(t, ok)
	assert.True(t, router.Supports(domain.KindPDF))
	assert.True(t, router.Supports(domain.KindText))
	assert.False(t, router.Supports(domain.KindImage), "no vision endpoint configured")

	cfg.VisionEndpoint, cfg.VisionKey = "https://vision.example.com", "k"
	ext, err = NewExtractor(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.True(t, ext.(*extract.Router).Supports(domain.KindImage))
}

func TestNewExtractor_BrokenCommandsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commands: ["), 0o644))

	_, err := NewExtractor(config.ExtractionConfig{CommandsFile: path}, logging.NewNop())
	assert.Error(t, err)
}

func TestNewAssistant_RequiresCredentials(t *testing.T) {
	svc, err := OpenStorage(testConfig(t), logging.NewNop())
	require.NoError(t, err)

	_, err = svc.NewAssistant()
	assert.ErrorContains(t, err, "missing configuration")
}

func TestAssemble_RecordsMetrics(t *testing.T) {
	cfg := testConfig(t)
	svc, err := OpenStorage(cfg, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.EnableMetrics())

	nova, err := svc.assemble(testutils.NewGenerator(), testutils.NewRetriever(), testutils.NewExtractor())
	require.NoError(t, err)

	res := nova.ProcessTurn(context.Background(), "", "legal", nil)
	require.True(t, res.OK(), "%+v", res.Error)

	families, err := svc.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "nova_turns_total")
	assert.Contains(t, names, "nova_stage_visits_total")
}

func TestOpenKnowledge_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retrieval.Backend = "sqlite"
	svc, err := OpenStorage(cfg, logging.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.OpenKnowledge())
	ctx := context.Background()
	require.NoError(t, svc.Indexer.Index(ctx, domain.DomainLegal, []domain.Passage{
		{ID: "p1", Content: "El contrato de arrendamiento se rige por la ley de arrendamientos urbanos."},
	}))

	hits, err := svc.Retriever.Search(ctx, domain.DomainLegal, "arrendamiento", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p1", hits[0].ID)
}
