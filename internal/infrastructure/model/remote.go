package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/resilience"
)

var classifyRemoteError = resilience.HTTPClassifier(resilience.RetryableHTTPStatuses...)

// RemoteClassifier calls POST {base}/v1/models/{name}/predict.
type RemoteClassifier struct {
	baseURL    string
	name       string
	size       int
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewRemoteClassifier(baseURL, name string, size int, httpClient *http.Client, executor *resilience.Executor) *RemoteClassifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteClassifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		name:       name,
		size:       size,
		httpClient: httpClient,
		executor:   executor,
	}
}

func (c *RemoteClassifier) InputSize() int { return c.size }

type remotePrediction struct {
	Class         *int            `json:"class"`
	Probabilities json.RawMessage `json:"probabilities"`
}

func (c *RemoteClassifier) Predict(ctx context.Context, features []float64) (int, error) {
	out, err := c.call(ctx, features)
	if err != nil {
		return 0, err
	}
	if out.Class == nil {
		return 0, domain.WrapError(domain.ErrPredictionFormat, "remote predict", errors.New("response has no class"))
	}
	return *out.Class, nil
}

// PredictProbability accepts either a scalar P(positive) or an array of
// class probabilities.
func (c *RemoteClassifier) PredictProbability(ctx context.Context, features []float64) ([]float64, error) {
	out, err := c.call(ctx, features)
	if err != nil {
		return nil, err
	}
	return decodeProbabilities(out.Probabilities)
}

func decodeProbabilities(raw json.RawMessage) ([]float64, error) {
	const op = "remote predict"
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, domain.WrapError(domain.ErrPredictionFormat, op, errors.New("response has no probabilities"))
	}
	var scalar float64
	if err := json.Unmarshal(trimmed, &scalar); err == nil {
		return []float64{scalar}, nil
	}
	var list []float64
	if err := json.Unmarshal(trimmed, &list); err == nil {
		return list, nil
	}
	// A batch of one, e.g. [[0.2, 0.8]].
	var batch [][]float64
	if err := json.Unmarshal(trimmed, &batch); err == nil && len(batch) == 1 {
		return batch[0], nil
	}
	return nil, domain.WrapError(domain.ErrPredictionFormat, op, fmt.Errorf("unexpected probabilities %s", truncate(string(trimmed), 128)))
}

func (c *RemoteClassifier) call(ctx context.Context, features []float64) (remotePrediction, error) {
	operation := "model." + c.name
	out, err := resilience.Call(ctx, c.executor, operation, func(callCtx context.Context) (remotePrediction, error) {
		return c.post(callCtx, features)
	}, classifyRemoteError)
	if err != nil {
		if resilience.HTTPStatusCode(err) == http.StatusNotFound {
			return remotePrediction{}, domain.WrapError(domain.ErrModelUnavailable, operation, err)
		}
		return remotePrediction{}, resilience.WrapTemporary(classifyRemoteError, operation, err)
	}
	return out, nil
}

func (c *RemoteClassifier) post(ctx context.Context, features []float64) (remotePrediction, error) {
	body, err := json.Marshal(map[string]any{"features": features})
	if err != nil {
		return remotePrediction{}, fmt.Errorf("marshal predict request: %w", err)
	}
	endpoint := c.baseURL + "/v1/models/" + url.PathEscape(c.name) + "/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return remotePrediction{}, fmt.Errorf("create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return remotePrediction{}, fmt.Errorf("model server request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return remotePrediction{}, resilience.NewHTTPStatusError("model server", "predict", resp)
	}
	var out remotePrediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return remotePrediction{}, domain.WrapError(domain.ErrPredictionFormat, "remote predict", fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
