package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port string
	Env  string

	FirstPassAPIKey    string
	FirstPassAPIURL    string
	FirstPassModel     string
	FirstPassMaxTokens int

	JudgeAPIKey    string
	JudgeModel     string
	JudgeMaxTokens int

	CacheTTL       time.Duration
	RequestTimeout time.Duration

	LedgerBackend string // "file" or "postgres"
	LedgerDir     string
	DatabaseURL   string

	UseEvaluation      bool
	UseImprovement     bool
	UseBatchProcessing bool
	BatchSize          int

	MaxUploadBytes int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	ledgerBackend := normalizeLedgerBackend(getEnv("LEDGER_BACKEND", "file"))

	if ledgerBackend == "postgres" && dbURL == "" {
		log.Printf("DATABASE_URL is required for the postgres ledger backend")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		FirstPassAPIKey:    getEnv("HUGGINGFACE_API_KEY", ""),
		FirstPassAPIURL:    getEnv("HUGGINGFACE_API_URL", ""),
		FirstPassModel:     getEnv("FIRST_PASS_MODEL", "taiwan-llm"),
		FirstPassMaxTokens: getEnvInt("FIRST_PASS_MAX_TOKENS", 2048),
		JudgeAPIKey:        getEnv("OPENAI_API_KEY", ""),
		JudgeModel:         getEnv("JUDGE_MODEL", "gpt-4o-mini"),
		JudgeMaxTokens:     getEnvInt("JUDGE_MAX_TOKENS", 2048),
		CacheTTL:           getEnvDuration("CACHE_TTL", time.Hour),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 90*time.Second),
		LedgerBackend:      ledgerBackend,
		LedgerDir:          getEnv("LEDGER_DIR", "./data/ledger"),
		DatabaseURL:        dbURL,
		UseEvaluation:      getEnvBool("USE_EVALUATION", true),
		UseImprovement:     getEnvBool("USE_IMPROVEMENT", true),
		UseBatchProcessing: getEnvBool("USE_BATCH_PROCESSING", true),
		BatchSize:          getEnvInt("BATCH_SIZE", 3),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
	}
}

// MockMode reports whether the service should run on canned model
// responses because no upstream credentials are configured.
func (c Config) MockMode() bool {
	return c.FirstPassAPIKey == "" && c.JudgeAPIKey == ""
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("%s: invalid integer %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("%s: invalid boolean %q, using %t", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("%s: invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeLedgerBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	default:
		return "file"
	}
}
