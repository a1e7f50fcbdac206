// Package gemini calls the Google Generative Language REST API to turn
// report text into schema-constrained JSON.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/llm"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"
)

// Bad keys and rejected requests come back as 4xx and are not retried.
var classifyGeminiError = resilience.HTTPClassifier(resilience.RetryableHTTPStatuses...)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Options struct {
	ResilienceExecutor *resilience.Executor
	HTTPClient         *http.Client
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config) *Client {
	return NewWithOptions(cfg, Options{})
}

func NewWithOptions(cfg Config, options Options) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: httpClient,
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Name() string { return "Gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Generate sends the prompt with a response schema when the disease has
// one and returns the raw JSON text of the first candidate.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	temperature := 0.0
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      &temperature,
		},
	}
	if req.Spec != nil {
		payload.GenerationConfig.ResponseSchema = llm.GeminiSchema(*req.Spec)
	}

	path := "/v1beta/models/" + url.PathEscape(c.model) + ":generateContent"
	resp, err := resilience.Call(ctx, c.executor, "gemini.generate", func(callCtx context.Context) (generateResponse, error) {
		var out generateResponse
		err := c.postJSON(callCtx, path, payload, &out, "generate")
		return out, err
	}, classifyGeminiError)
	if err != nil {
		return "", resilience.WrapTemporary(classifyGeminiError, "gemini generate", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty content (finish reason %s)", resp.Candidates[0].FinishReason)
	}
	return text, nil
}
