// Package config loads the Nova configuration: defaults, then an optional
// YAML file, then environment variables (a .env file is honoured).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/internal/validator"
	"github.com/jorge-rr00/newbackend/internal/workflow"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Log        LogConfig         `yaml:"log"`
	Store      StoreConfig       `yaml:"store"`
	Generation GenerationConfig  `yaml:"generation"`
	Retrieval  RetrievalConfig   `yaml:"retrieval"`
	Extraction ExtractionConfig  `yaml:"extraction"`
	Workflow   workflow.Config   `yaml:"workflow"`
	Retry      resilience.Policy `yaml:"retry"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr" validate:"required"`
	FrontendOrigin string `yaml:"frontend_origin"`
	// MaxUploadBytes bounds a multipart query request.
	MaxUploadBytes int64  `yaml:"max_upload_bytes" validate:"gt=0"`
	MetricsPath    string `yaml:"metrics_path"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory file redis sqlite"`
	// Path is the directory of the file store or the sqlite database file.
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
	RedisTTL      time.Duration `yaml:"redis_ttl" validate:"gte=0"`
	// EncryptionKey is a base64 AES-256 key. Empty disables encryption at rest.
	EncryptionKey   string   `yaml:"encryption_key"`
	FallbackKeys    []string `yaml:"fallback_keys"`
	MaskPII         bool     `yaml:"mask_pii"`
	DistributedLock bool     `yaml:"distributed_lock"`
}

type GenerationConfig struct {
	Provider   string  `yaml:"provider" validate:"oneof=azure openai"`
	Endpoint   string  `yaml:"endpoint"`
	APIKey     string  `yaml:"api_key"`
	Deployment string  `yaml:"deployment"`
	APIVersion string  `yaml:"api_version"`
	RateLimit  float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst      int     `yaml:"burst" validate:"gte=0"`
}

type RetrievalConfig struct {
	Backend        string `yaml:"backend" validate:"oneof=azure sqlite"`
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	APIVersion     string `yaml:"api_version"`
	IndexFinancial string `yaml:"index_financial"`
	IndexLegal     string `yaml:"index_legal"`
	// Path is the sqlite knowledge database; defaults to the store path.
	Path string `yaml:"path"`
}

type ExtractionConfig struct {
	VisionEndpoint string `yaml:"vision_endpoint"`
	VisionKey      string `yaml:"vision_key"`
	PDFToText      string `yaml:"pdftotext"`
	// CommandsFile lists extra allow-listed commands (YAML or JSON).
	CommandsFile string `yaml:"commands_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":5100",
			FrontendOrigin: "*",
			MaxUploadBytes: 32 << 20,
			MetricsPath:    "/metrics",
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Backend:   "memory",
			Path:      "./data",
			RedisAddr: "localhost:6379",
		},
		Generation: GenerationConfig{
			Provider:   "azure",
			Deployment: "gpt-4",
			APIVersion: "2024-02-15-preview",
		},
		Retrieval: RetrievalConfig{Backend: "azure"},
		Extraction: ExtractionConfig{
			PDFToText: "pdftotext",
		},
		Workflow: workflow.DefaultConfig(),
		Retry:    resilience.DefaultPolicy(),
	}
}

// Load builds the configuration. path may be empty; a missing .env is ignored.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: retry: %w", err)
	}
	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		return errors.New("invalid configuration: store.redis_addr is required for the redis backend")
	}
	if c.Store.DistributedLock && c.Store.Backend != "redis" {
		return errors.New("invalid configuration: store.distributed_lock requires the redis backend")
	}
	return nil
}

// RequireServices checks the credentials needed to answer turns. Commands
// that only manage sessions skip it.
func (c *Config) RequireServices() error {
	var missing []string
	if c.Generation.APIKey == "" {
		missing = append(missing, "generation api key (AZURE_OPENAI_API_KEY or OPENAI_API_KEY)")
	}
	if c.Generation.Provider == "azure" && c.Generation.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if c.Retrieval.Backend == "azure" {
		if c.Retrieval.Endpoint == "" || c.Retrieval.APIKey == "" {
			missing = append(missing, "AZURE_SEARCH_ENDPOINT and AZURE_SEARCH_KEY")
		}
		if c.Retrieval.IndexFinancial == "" || c.Retrieval.IndexLegal == "" {
			missing = append(missing, "AZURE_SEARCH_INDEX_FINANCIAL and AZURE_SEARCH_INDEX_LEGAL")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %v", missing)
	}
	return nil
}
