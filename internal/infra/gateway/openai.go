package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/templodoabismo/pluma/internal/usecase"
)

var tracer = otel.Tracer("gateway")

type OpenAIOptions struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// OpenAICompleter asks an OpenAI-compatible chat endpoint for a JSON object.
type OpenAICompleter struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

func NewOpenAICompleter(opts OpenAIOptions) (*OpenAICompleter, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("openai model is required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAICompleter{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		limiter: newLimiter(opts.RequestsPerMinute),
	}, nil
}

func (c *OpenAICompleter) Model() string {
	return c.model
}

func (c *OpenAICompleter) Complete(ctx context.Context, req usecase.CompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.OpenAI.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.model))

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "openai rate limit wait")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		err := errors.New("openai returned no choices")
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.Int("usage.total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
