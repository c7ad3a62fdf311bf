package workflow

import "time"

// Config holds the per-turn limits of the engine.
type Config struct {
	// TurnTimeout bounds a whole turn, lock wait included.
	TurnTimeout time.Duration `yaml:"turn_timeout" validate:"gt=0"`
	// HistoryWindow is the number of recent accepted turns shown to the orchestrator.
	HistoryWindow int `yaml:"history_window" validate:"gte=0"`
	// SpecialistHistory is the number of recent accepted turns shown to specialists.
	SpecialistHistory int `yaml:"specialist_history" validate:"gte=0"`
	// MaxDocChars caps each extracted document and the assembled document context.
	MaxDocChars int `yaml:"max_doc_chars" validate:"gt=0"`
	// DocumentTTL is how many accepted turns a document stays in scope. 0 keeps it forever.
	DocumentTTL        int     `yaml:"document_ttl" validate:"gte=0"`
	TopK               int     `yaml:"top_k" validate:"gt=0"`
	ExtractConcurrency int     `yaml:"extract_concurrency" validate:"gt=0"`
	MaxInputSize       int     `yaml:"max_input_size" validate:"gt=0"`
	Temperature        float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	RedactMaxTokens    int     `yaml:"redact_max_tokens" validate:"gte=0"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:        90 * time.Second,
		HistoryWindow:      10,
		SpecialistHistory:  6,
		MaxDocChars:        20000,
		DocumentTTL:        0,
		TopK:               3,
		ExtractConcurrency: 4,
		MaxInputSize:       16 * 1024,
		Temperature:        0.2,
		RedactMaxTokens:    1024,
	}
}

// withDefaults fills zero limits so a partially filled Config stays usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = d.TurnTimeout
	}
	if c.MaxDocChars <= 0 {
		c.MaxDocChars = d.MaxDocChars
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.ExtractConcurrency <= 0 {
		c.ExtractConcurrency = d.ExtractConcurrency
	}
	if c.MaxInputSize <= 0 {
		c.MaxInputSize = d.MaxInputSize
	}
	return c
}
