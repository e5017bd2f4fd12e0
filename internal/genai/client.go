package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/observability"
	"github.com/ardiwinata/nobar/internal/resilience"
)

// Client talks to a Gemini-style generateContent endpoint. The orchestrator
// uses it for intent classification and movie title extraction; every call
// goes through the provider's circuit breaker so a dead model API degrades
// the search instead of hanging it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	retryCfg   resilience.RetryConfig
	logger     *zap.Logger
}

func NewClient(cfg config.GenAIConfig, searchCfg config.SearchConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai: api key is required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		cb:         resilience.NewCircuitBreaker("genai", searchCfg.CircuitBreaker, logger),
		retryCfg: resilience.RetryConfig{
			MaxAttempts: searchCfg.Retry.MaxAttempts,
			InitialWait: searchCfg.Retry.InitialWait,
			MaxWait:     searchCfg.Retry.MaxWait,
			Multiplier:  searchCfg.Retry.Multiplier,
		},
		logger: logger,
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete sends a single-turn prompt and returns the first candidate's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "genai.complete",
		attribute.String("genai.model", c.model),
	)
	defer span.End()

	start := time.Now()

	cbResult, err := c.cb.Execute(func() (any, error) {
		var text string
		retryErr := resilience.Retry(ctx, c.retryCfg, func() error {
			var execErr error
			text, execErr = c.executeComplete(ctx, prompt)
			return execErr
		})
		return text, retryErr
	})

	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
		observability.UpstreamRequestDuration.WithLabelValues("genai", "complete", status).Observe(duration.Seconds())
		return "", fmt.Errorf("genai complete: %w", err)
	}
	observability.UpstreamRequestDuration.WithLabelValues("genai", "complete", status).Observe(duration.Seconds())

	text, ok := cbResult.(string)
	if !ok {
		return "", fmt.Errorf("genai complete: unexpected result type from circuit breaker")
	}
	return text, nil
}

func (c *Client) executeComplete(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling genai request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building genai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing genai request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("genai error status=%d body=%s", res.StatusCode, string(bodyBytes))
	}

	var genResp generateResponse
	if err := json.NewDecoder(res.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding genai response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("genai returned no candidates")
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
