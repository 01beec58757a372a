package claude

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"crypto-autotrade/internal/api"
	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/trace"
)

const (
	DefaultEndpoint  = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

type Params struct {
	APIKey      string
	Endpoint    string // proxies set this; empty means the public API
	Model       string
	MaxTokens   int
	Temperature float64
}

// Oracle calls the Claude Messages API and returns the assistant text.
type Oracle struct {
	p      Params
	client *api.Client
}

var _ interfaces.Oracle = (*Oracle)(nil)

func New(p Params) *Oracle {
	if p.Endpoint == "" {
		p.Endpoint = DefaultEndpoint
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 1024
	}
	return &Oracle{
		p: p,
		client: api.NewClient(
			api.WithBaseURL(strings.TrimRight(p.Endpoint, "/")),
			api.WithTimeout(60*time.Second),
			api.WithHeader("anthropic-version", anthropicVersion),
			api.WithLogging(true),
		),
	}
}

func (o *Oracle) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if o.p.APIKey == "" {
		return "", errors.New("CLAUDE_API_KEY missing")
	}

	body := map[string]any{
		"model":       o.p.Model,
		"system":      system,
		"max_tokens":  o.p.MaxTokens,
		"temperature": o.p.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	resp, err := o.client.POST(ctx, "/v1/messages", body, map[string]string{"x-api-key": o.p.APIKey})
	if err != nil {
		return "", err
	}
	return extractText(resp.Body)
}

// textPaths are tried in order: the Messages API shape first, then the
// legacy completion and OpenAI-style shapes some proxies return.
var textPaths = []string{
	"content.0.text",
	"completion",
	"output_text",
	"choices.0.message.content",
	"choices.0.text",
}

func extractText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		// not JSON: treat the whole body as the answer
		return strings.TrimSpace(string(body)), nil
	}
	for _, p := range textPaths {
		if r := gjson.GetBytes(body, p); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
			return strings.TrimSpace(r.Str), nil
		}
	}
	return "", errors.New("claude response has no text content")
}
