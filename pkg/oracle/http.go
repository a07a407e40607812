package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize limits the oracle response body to prevent memory
// exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// RetryConfig holds retry configuration for oracle requests.
// Only transport-level failures are retried; validation errors are
// surfaced verbatim and never retried.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// HTTPPlanner is a Planner backed by an OpenAI-compatible
// chat-completions endpoint. The response contract (the PlanResponse
// JSON Schema) is embedded in the system prompt; replies are decoded
// and validated before they reach the caller.
type HTTPPlanner struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// PlannerOption configures an HTTPPlanner.
type PlannerOption func(*HTTPPlanner)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) PlannerOption {
	return func(p *HTTPPlanner) { p.httpClient = c }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) PlannerOption {
	return func(p *HTTPPlanner) { p.retry = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) PlannerOption {
	return func(p *HTTPPlanner) { p.logger = l }
}

// NewHTTPPlanner creates a planner for the given chat-completions
// endpoint (e.g. "https://api.example.com/v1/chat/completions").
func NewHTTPPlanner(endpoint, model, apiKey string, opts ...PlannerOption) *HTTPPlanner {
	p := &HTTPPlanner{
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Plan sends the instructions to the oracle and returns the validated
// plan. Transport failures are retried with exponential backoff;
// shape violations fail immediately with a *ValidationError.
func (p *HTTPPlanner) Plan(ctx context.Context, instructions string, kind ToolKind) (*PlanResponse, error) {
	schemaJSON, err := GenerateResponseSchema()
	if err != nil {
		return nil, fmt.Errorf("generate response schema: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(kind, schemaJSON)},
			{Role: "user", Content: instructions},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	backoff := p.retry.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			p.logger.Debug("retrying oracle request", "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff = time.Duration(float64(backoff) * p.retry.BackoffMultiplier)
			if backoff > p.retry.MaxBackoff {
				backoff = p.retry.MaxBackoff
			}
		}

		content, transient, err := p.complete(ctx, body)
		if err != nil {
			lastErr = err
			if !transient {
				return nil, err
			}
			p.logger.Warn("transient oracle failure", "attempt", attempt, "error", err)
			continue
		}

		return Decode(extractJSON(content), kind)
	}
	return nil, fmt.Errorf("oracle unavailable after %d attempts: %w", p.retry.MaxAttempts, lastErr)
}

// complete performs one HTTP round trip. The second return value
// reports whether the failure is worth retrying.
func (p *HTTPPlanner) complete(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	p.logger.Debug("oracle response", "status", resp.StatusCode, "bytes", len(data), "duration", time.Since(start))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("oracle returned HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("oracle returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", false, fmt.Errorf("decode completion: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", false, fmt.Errorf("oracle returned no choices")
	}
	return chat.Choices[0].Message.Content, false, nil
}

func systemPrompt(kind ToolKind, schemaJSON []byte) string {
	var b strings.Builder
	b.WriteString("You convert a user's natural-language request into an ordered plan of shell operations.\n")
	fmt.Fprintf(&b, "Tool kind: %s.\n", kind)
	b.WriteString("Respond with a single JSON object conforming to this JSON Schema, and nothing else:\n")
	b.Write(schemaJSON)
	return b.String()
}

// extractJSON pulls the first JSON object out of a completion that may
// be wrapped in markdown fences or prose.
func extractJSON(content string) []byte {
	s := strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return []byte(s)
}
