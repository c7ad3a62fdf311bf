package cli

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jorge-rr00/newbackend"
	"github.com/jorge-rr00/newbackend/internal/config"
	"github.com/jorge-rr00/newbackend/internal/logging"
	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/pkg/adapters/azuresearch"
	"github.com/jorge-rr00/newbackend/pkg/adapters/extract"
	"github.com/jorge-rr00/newbackend/pkg/adapters/file"
	"github.com/jorge-rr00/newbackend/pkg/adapters/memory"
	"github.com/jorge-rr00/newbackend/pkg/adapters/openai"
	"github.com/jorge-rr00/newbackend/pkg/adapters/process"
	"github.com/jorge-rr00/newbackend/pkg/adapters/redis"
	"github.com/jorge-rr00/newbackend/pkg/adapters/sqlite"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/observability"
	"github.com/jorge-rr00/newbackend/pkg/persistence/middleware"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

// Services is the wired application graph shared by the commands.
type Services struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     ports.SessionStore
	Locker    ports.DistributedLocker
	Retriever ports.Retriever
	Indexer   ports.Indexer
	Registry  *prometheus.Registry
	Metrics   *observability.Metrics

	closers []func() error
}

// Close releases every opened connection, last opened first.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the application logger from the log section.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level := logging.ParseLevel(cfg.Level)
	if cfg.Format == "json" {
		return logging.NewJSON(w, level)
	}
	return logging.New(level)
}

// OpenStorage wires the session store (with its middleware) and, when
// configured, the distributed locker. Knowledge retrieval is left for
// NewAssistant so session-only commands need no provider credentials.
func OpenStorage(cfg *config.Config, logger *slog.Logger) (*Services, error) {
	svc := &Services{Config: cfg, Logger: logger}

	store, err := svc.openStore(cfg.Store)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	var mws []middleware.Middleware
	if cfg.Store.MaskPII {
		mws = append(mws, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
	}
	if cfg.Store.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg.Store)
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	svc.Store = middleware.Chain(store, mws...)

	logger.Debug("storage ready", "backend", cfg.Store.Backend, "encrypted", cfg.Store.EncryptionKey != "", "mask_pii", cfg.Store.MaskPII)
	return svc, nil
}

func (s *Services) openStore(cfg config.StoreConfig) (ports.SessionStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.NewStore(), nil
	case "file":
		return file.New(filepath.Join(cfg.Path, "sessions")), nil
	case "redis":
		var opts []redis.Option
		if cfg.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.RedisTTL))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		s.closers = append(s.closers, store.Close)
		if cfg.DistributedLock {
			s.Locker = redis.NewLocker(store.Client(), "nova:")
		}
		return store, nil
	case "sqlite":
		db, err := s.openDB(sqlitePath(cfg.Path))
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(db), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func (s *Services) openDB(path string) (*sql.DB, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s.closers = append(s.closers, db.Close)
	return db, nil
}

// sqlitePath accepts either a database file or a directory.
func sqlitePath(path string) string {
	if path == "" {
		path = "."
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return path
	}
	return filepath.Join(path, "nova.db")
}

func encryptionConfig(cfg config.StoreConfig) (middleware.EncryptionConfig, error) {
	active, err := decodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("encryption key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		fk, err := decodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("fallback key %d: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, fk)
	}
	return enc, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// OpenKnowledge wires the retriever and, when it supports it, the indexer.
func (s *Services) OpenKnowledge() error {
	cfg := s.Config.Retrieval
	switch cfg.Backend {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = s.Config.Store.Path
		}
		db, err := s.openDB(sqlitePath(path))
		if err != nil {
			return err
		}
		k := sqlite.NewKnowledge(db)
		s.Retriever, s.Indexer = k, k
	default:
		r, err := azuresearch.New(azuresearch.Config{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			APIVersion: cfg.APIVersion,
			Indexes: map[domain.Domain]string{
				domain.DomainFinancial: cfg.IndexFinancial,
				domain.DomainLegal:     cfg.IndexLegal,
			},
		})
		if err != nil {
			return err
		}
		s.Retriever, s.Indexer = r, r
	}
	return nil
}

// NewGenerator builds the chat completion client, rate limited when configured.
func NewGenerator(cfg config.GenerationConfig) (ports.Generator, error) {
	g, err := openai.New(openai.Config{
		Azure:      cfg.Provider == "azure",
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		Deployment: cfg.Deployment,
		APIVersion: cfg.APIVersion,
	})
	if err != nil {
		return nil, err
	}
	return resilience.LimitGenerator(g, cfg.RateLimit, cfg.Burst), nil
}

// NewExtractor builds the per-kind extractor. PDFs go through the allow-listed
// pdftotext command; images need a vision endpoint.
func NewExtractor(cfg config.ExtractionConfig, logger *slog.Logger) (ports.Extractor, error) {
	commands, err := process.LoadCommands(cfg.CommandsFile)
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}
	runner := process.NewRunner(process.WithCommands(commands))
	if _, ok := commands[extract.PDFCommand]; !ok && cfg.PDFToText != "" {
		runner.Register(extract.PDFCommand, cfg.PDFToText)
	}

	opts := []extract.Option{extract.WithExtractor(domain.KindPDF, extract.NewPDF(runner))}
	if cfg.VisionEndpoint != "" && cfg.VisionKey != "" {
		opts = append(opts, extract.WithExtractor(domain.KindImage, extract.NewVision(cfg.VisionEndpoint, cfg.VisionKey)))
	} else {
		logger.Warn("image extraction disabled: AZURE_VISION_ENDPOINT or AZURE_VISION_KEY missing")
	}
	logger.Debug("extractor ready", "commands", runner.Registered())
	return extract.NewRouter(opts...), nil
}

// EnableMetrics registers the Prometheus collectors on a private registry.
func (s *Services) EnableMetrics() error {
	s.Registry = prometheus.NewRegistry()
	m, err := observability.NewMetrics(s.Registry)
	if err != nil {
		return err
	}
	s.Metrics = m
	return nil
}

// NewAssistant wires the full turn pipeline on top of the opened storage.
// extra hooks run after the metrics hooks.
func (s *Services) NewAssistant(extra ...domain.LifecycleHooks) (*newbackend.Assistant, error) {
	if err := s.Config.RequireServices(); err != nil {
		return nil, err
	}
	gen, err := NewGenerator(s.Config.Generation)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	if s.Retriever == nil {
		if err := s.OpenKnowledge(); err != nil {
			return nil, fmt.Errorf("retriever: %w", err)
		}
	}
	ext, err := NewExtractor(s.Config.Extraction, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	return s.assemble(gen, s.Retriever, ext, extra...)
}

func (s *Services) assemble(gen ports.Generator, ret ports.Retriever, ext ports.Extractor, extra ...domain.LifecycleHooks) (*newbackend.Assistant, error) {
	var hooks domain.LifecycleHooks
	if s.Metrics != nil {
		hooks = s.Metrics.Hooks()
	}
	if s.Logger.Enabled(context.Background(), slog.LevelDebug) {
		hooks = hooks.Merge(debugHooks(s.Logger))
	}
	for _, h := range extra {
		hooks = hooks.Merge(h)
	}

	opts := []newbackend.Option{
		newbackend.WithStore(s.Store),
		newbackend.WithGenerator(gen),
		newbackend.WithRetriever(ret),
		newbackend.WithExtractor(ext),
		newbackend.WithConfig(s.Config.Workflow),
		newbackend.WithRetryPolicy(s.Config.Retry),
		newbackend.WithLifecycleHooks(hooks),
		newbackend.WithLogger(s.Logger),
	}
	if s.Locker != nil {
		opts = append(opts, newbackend.WithLocker(s.Locker))
	}
	return newbackend.New(opts...)
}
