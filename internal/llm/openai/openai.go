// Package openai is an Oracle backed by any OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/trace"
)

const CerebrasBaseURL = "https://api.cerebras.ai/v1"

type Params struct {
	APIKey      string
	BaseURL     string // empty means api.openai.com
	Model       string
	MaxTokens   int
	Temperature float64
}

type Oracle struct {
	p      Params
	client goopenai.Client
}

var _ interfaces.Oracle = (*Oracle)(nil)
var _ interfaces.VisionOracle = (*Oracle)(nil)

// New builds a client that never retries: a failed completion fails the cycle.
func New(p Params, opts ...option.RequestOption) *Oracle {
	base := []option.RequestOption{
		option.WithAPIKey(p.APIKey),
		option.WithMaxRetries(0),
	}
	if p.BaseURL != "" {
		base = append(base, option.WithBaseURL(p.BaseURL))
	}
	return &Oracle{p: p, client: goopenai.NewClient(append(base, opts...)...)}
}

func (o *Oracle) params(messages ...goopenai.ChatCompletionMessageParamUnion) goopenai.ChatCompletionNewParams {
	req := goopenai.ChatCompletionNewParams{
		Model:       goopenai.ChatModel(o.p.Model),
		Messages:    messages,
		Temperature: goopenai.Float(o.p.Temperature),
	}
	if o.p.MaxTokens > 0 {
		req.MaxTokens = goopenai.Int(int64(o.p.MaxTokens))
	}
	return req
}

func (o *Oracle) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if o.p.APIKey == "" {
		return "", errors.New("API key missing")
	}
	return o.send(ctx, o.params(goopenai.SystemMessage(system), goopenai.UserMessage(user)))
}

// CompleteWithImage sends a PNG as an inline data URL next to the prompt.
func (o *Oracle) CompleteWithImage(ctx context.Context, system, prompt string, png []byte) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-vision-call")
	defer span.End()

	if o.p.APIKey == "" {
		return "", errors.New("API key missing")
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	parts := []goopenai.ChatCompletionContentPartUnionParam{
		goopenai.TextContentPart(prompt),
		goopenai.ImageContentPart(goopenai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}
	return o.send(ctx, o.params(goopenai.SystemMessage(system), goopenai.UserMessage(parts)))
}

func (o *Oracle) send(ctx context.Context, req goopenai.ChatCompletionNewParams) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}
