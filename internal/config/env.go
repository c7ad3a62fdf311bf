package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type lookupFunc func(string) (string, bool)

// first returns the value of the first variable that is set and non-empty.
func first(lookup lookupFunc, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// applyEnv overlays environment variables. Both NOVA_* names and the Azure
// names used by existing deployments are accepted.
func applyEnv(c *Config, lookup lookupFunc) error {
	str := func(dst *string, keys ...string) {
		if v, ok := first(lookup, keys...); ok {
			*dst = v
		}
	}
	var errs []string
	num := func(dst *int, keys ...string) {
		if v, ok := first(lookup, keys...); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", keys[0], v))
				return
			}
			*dst = n
		}
	}
	dur := func(dst *time.Duration, keys ...string) {
		if v, ok := first(lookup, keys...); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a duration", keys[0], v))
				return
			}
			*dst = d
		}
	}
	flag := func(dst *bool, keys ...string) {
		if v, ok := first(lookup, keys...); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a boolean", keys[0], v))
				return
			}
			*dst = b
		}
	}
	float := func(dst *float64, keys ...string) {
		if v, ok := first(lookup, keys...); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a number", keys[0], v))
				return
			}
			*dst = f
		}
	}

	if port, ok := first(lookup, "PORT"); ok {
		c.Server.Addr = ":" + port
	}
	str(&c.Server.Addr, "NOVA_ADDR")
	str(&c.Server.FrontendOrigin, "FRONTEND_ORIGIN")

	str(&c.Log.Level, "NOVA_LOG_LEVEL")
	str(&c.Log.Format, "NOVA_LOG_FORMAT")
	if debug, ok := first(lookup, "DEBUG"); ok && strings.EqualFold(debug, "true") {
		c.Log.Level = "debug"
	}

	str(&c.Store.Backend, "NOVA_STORE")
	str(&c.Store.Path, "NOVA_STORE_PATH")
	str(&c.Store.RedisAddr, "NOVA_REDIS_ADDR", "REDIS_ADDR")
	str(&c.Store.RedisPassword, "NOVA_REDIS_PASSWORD", "REDIS_PASSWORD")
	num(&c.Store.RedisDB, "NOVA_REDIS_DB")
	dur(&c.Store.RedisTTL, "NOVA_REDIS_TTL")
	str(&c.Store.EncryptionKey, "NOVA_ENCRYPTION_KEY")
	if v, ok := first(lookup, "NOVA_ENCRYPTION_FALLBACK_KEYS"); ok {
		c.Store.FallbackKeys = splitList(v)
	}
	flag(&c.Store.MaskPII, "NOVA_MASK_PII")
	flag(&c.Store.DistributedLock, "NOVA_DISTRIBUTED_LOCK")

	str(&c.Generation.Provider, "NOVA_GENERATION_PROVIDER")
	str(&c.Generation.Endpoint, "AZURE_OPENAI_ENDPOINT", "OPENAI_BASE_URL")
	str(&c.Generation.APIKey, "AZURE_OPENAI_KEY", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY")
	str(&c.Generation.Deployment, "AZURE_OPENAI_DEPLOYMENT", "OPENAI_MODEL")
	str(&c.Generation.APIVersion, "AZURE_OPENAI_API_VERSION")
	float(&c.Generation.RateLimit, "NOVA_GENERATION_RPS")
	num(&c.Generation.Burst, "NOVA_GENERATION_BURST")

	str(&c.Retrieval.Backend, "NOVA_RETRIEVAL")
	str(&c.Retrieval.Endpoint, "AZURE_SEARCH_ENDPOINT")
	str(&c.Retrieval.APIKey, "AZURE_SEARCH_KEY", "AZURE_SEARCH_API_KEY")
	str(&c.Retrieval.APIVersion, "AZURE_SEARCH_API_VERSION")
	str(&c.Retrieval.IndexFinancial, "AZURE_SEARCH_INDEX_FINANCIAL")
	str(&c.Retrieval.IndexLegal, "AZURE_SEARCH_INDEX_LEGAL")
	str(&c.Retrieval.Path, "NOVA_KNOWLEDGE_PATH")

	str(&c.Extraction.VisionEndpoint, "AZURE_VISION_ENDPOINT")
	str(&c.Extraction.VisionKey, "AZURE_VISION_KEY")
	str(&c.Extraction.PDFToText, "NOVA_PDFTOTEXT")
	str(&c.Extraction.CommandsFile, "NOVA_COMMANDS_FILE")
	num(&c.Workflow.ExtractConcurrency, "NOVA_EXTRACT_CONCURRENCY")

	dur(&c.Workflow.TurnTimeout, "NOVA_TURN_TIMEOUT")
	num(&c.Workflow.HistoryWindow, "NOVA_HISTORY_WINDOW")
	num(&c.Workflow.SpecialistHistory, "NOVA_SPECIALIST_HISTORY")
	num(&c.Workflow.MaxDocChars, "NOVA_MAX_DOC_CHARS")
	num(&c.Workflow.DocumentTTL, "NOVA_DOCUMENT_TTL")
	num(&c.Workflow.TopK, "NOVA_TOP_K")

	num(&c.Retry.MaxAttempts, "NOVA_RETRY_MAX_ATTEMPTS")
	dur(&c.Retry.InitialInterval, "NOVA_RETRY_INITIAL_INTERVAL")
	dur(&c.Retry.MaxInterval, "NOVA_RETRY_MAX_INTERVAL")
	dur(&c.Retry.CallTimeout, "NOVA_CALL_TIMEOUT")

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
