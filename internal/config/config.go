package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	MaxUploadBytes             int64
	RequestTimeout             time.Duration
	APIRateLimitRPS            float64
	APIRateLimitBurst          int
	APIBackpressureMaxInFlight int
	APIBackpressureWaitTimeout time.Duration

	// Empty DSN or URL disables the history store and the event queue.
	PostgresDSN string
	NATSURL     string
	NATSSubject string

	StoragePath string

	PdftoppmPath      string
	TesseractPath     string
	TesseractLang     string
	TessdataDir       string
	OCRDPI            int
	OCRMaxPages       int
	OCRAllowEmptyText bool

	// LLMProvider is gemini, ollama or fixture; empty picks gemini when a
	// key is set and fixtures otherwise.
	LLMProvider         string
	LLMTimeout          time.Duration
	LLMRetryMaxAttempts int
	LLMFixturesPath     string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	OllamaURL           string
	OllamaGenModel      string

	ModelDir       string
	ModelServerURL string
	ModelTimeout   time.Duration

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		MaxUploadBytes:             int64(mustEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
		RequestTimeout:             mustEnvDuration("REQUEST_TIMEOUT", 2*time.Minute),
		APIRateLimitRPS:            mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:          mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIBackpressureMaxInFlight: mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 0),
		APIBackpressureWaitTimeout: mustEnvDuration("API_BACKPRESSURE_WAIT_TIMEOUT", 250*time.Millisecond),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),
		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "reports.analyzed"),

		StoragePath: mustEnv("STORAGE_PATH", ""),

		PdftoppmPath:      mustEnv("PDFTOPPM_PATH", "pdftoppm"),
		TesseractPath:     mustEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang:     mustEnv("TESSERACT_LANG", "eng"),
		TessdataDir:       mustEnv("TESSDATA_DIR", ""),
		OCRDPI:            mustEnvInt("OCR_DPI", 300),
		OCRMaxPages:       mustEnvInt("OCR_MAX_PAGES", 0),
		OCRAllowEmptyText: mustEnvBool("OCR_ALLOW_EMPTY_TEXT", false),

		LLMProvider:         strings.ToLower(mustEnv("LLM_PROVIDER", "")),
		LLMTimeout:          mustEnvDuration("LLM_TIMEOUT", 45*time.Second),
		LLMRetryMaxAttempts: mustEnvInt("LLM_RETRY_MAX_ATTEMPTS", 2),
		LLMFixturesPath:     mustEnv("LLM_FIXTURES_PATH", ""),
		GeminiAPIKey:        mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:         mustEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:       mustEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		OllamaURL:           mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:      mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		ModelDir:       mustEnv("MODEL_DIR", "./models"),
		ModelServerURL: mustEnv("MODEL_SERVER_URL", ""),
		ModelTimeout:   mustEnvDuration("MODEL_TIMEOUT", 10*time.Second),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// EffectiveLLMProvider resolves the structuring provider.
func (c Config) EffectiveLLMProvider() string {
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return "fixture"
		}
		return "gemini"
	case "ollama", "fixture":
		return c.LLMProvider
	case "":
		if c.GeminiAPIKey != "" {
			return "gemini"
		}
		return "fixture"
	default:
		return "fixture"
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
