// Package ollama drives a local Ollama server as the structured
// extraction provider.
package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/llm"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/resilience"
)

var classifyOllamaError = resilience.HTTPClassifier(resilience.RetryableHTTPStatuses...)

type Options struct {
	ResilienceExecutor *resilience.Executor
	Timeout            time.Duration
}

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel string) *Client {
	return NewWithOptions(baseURL, genModel, Options{})
}

func NewWithOptions(baseURL, genModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Name() string { return "Ollama" }

// Generate asks for a JSON answer constrained by the catalog schema, or
// any JSON object when the disease has none.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	var format any = "json"
	if req.Spec != nil {
		format = llm.JSONSchema(*req.Spec)
	}
	reqBody := map[string]any{
		"model":   c.genModel,
		"prompt":  req.Prompt,
		"stream":  false,
		"format":  format,
		"options": map[string]any{"temperature": 0},
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	type generateResponse struct {
		Response string `json:"response"`
	}
	response, err := resilience.Call(ctx, c.executor, "ollama.generate", func(callCtx context.Context) (generateResponse, error) {
		var out generateResponse
		err := c.postJSON(callCtx, "/api/generate", reqBody, &out, "generate")
		return out, err
	}, classifyOllamaError)
	if err != nil {
		return "", resilience.WrapTemporary(classifyOllamaError, "ollama generate", err)
	}
	return strings.TrimSpace(llm.ExtractJSONObject(response.Response)), nil
}
