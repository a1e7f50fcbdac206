package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LLM_TIMEOUT", "OCR_DPI", "NATS_SUBJECT", "POSTGRES_DSN", "GEMINI_API_KEY", "LLM_PROVIDER", "OCR_ALLOW_EMPTY_TEXT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LLMTimeout != 45*time.Second {
		t.Fatalf("expected default llm timeout 45s, got %s", cfg.LLMTimeout)
	}
	if cfg.OCRDPI != 300 {
		t.Fatalf("expected default dpi 300, got %d", cfg.OCRDPI)
	}
	if cfg.NATSSubject != "reports.analyzed" {
		t.Fatalf("expected default subject, got %q", cfg.NATSSubject)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("expected postgres disabled by default, got %q", cfg.PostgresDSN)
	}
	if cfg.OCRAllowEmptyText {
		t.Fatalf("expected empty text to be rejected by default")
	}
	if cfg.EffectiveLLMProvider() != "fixture" {
		t.Fatalf("expected fixture provider without key, got %q", cfg.EffectiveLLMProvider())
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "30")
	t.Setenv("API_BACKPRESSURE_WAIT_TIMEOUT", "1500ms")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("OCR_ALLOW_EMPTY_TEXT", "true")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OCR_MAX_PAGES", "not-a-number")

	cfg := Load()
	if cfg.LLMTimeout != 30*time.Second {
		t.Fatalf("expected plain seconds to parse, got %s", cfg.LLMTimeout)
	}
	if cfg.APIBackpressureWaitTimeout != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s wait timeout, got %s", cfg.APIBackpressureWaitTimeout)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if !cfg.OCRAllowEmptyText {
		t.Fatalf("expected allow empty text override")
	}
	if cfg.OCRMaxPages != 0 {
		t.Fatalf("expected invalid int to fall back, got %d", cfg.OCRMaxPages)
	}
	if cfg.EffectiveLLMProvider() != "gemini" {
		t.Fatalf("expected gemini with key, got %q", cfg.EffectiveLLMProvider())
	}
}

func TestEffectiveLLMProvider(t *testing.T) {
	cases := []struct {
		provider, key, want string
	}{
		{"gemini", "", "fixture"},
		{"gemini", "k", "gemini"},
		{"ollama", "", "ollama"},
		{"fixture", "k", "fixture"},
		{"bogus", "k", "fixture"},
	}
	for _, tc := range cases {
		cfg := Config{LLMProvider: tc.provider, GeminiAPIKey: tc.key}
		if got := cfg.EffectiveLLMProvider(); got != tc.want {
			t.Fatalf("provider=%q key=%q: got %q, want %q", tc.provider, tc.key, got, tc.want)
		}
	}
}
