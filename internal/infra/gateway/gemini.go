package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/templodoabismo/pluma/internal/usecase"
)

type GeminiOptions struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// GeminiCompleter asks the Gemini API for a JSON answer.
type GeminiCompleter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

func NewGeminiCompleter(ctx context.Context, opts GeminiOptions) (*GeminiCompleter, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("gemini model is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}

	return &GeminiCompleter{
		client:  client,
		model:   opts.Model,
		timeout: opts.Timeout,
		limiter: newLimiter(opts.RequestsPerMinute),
	}, nil
}

func (c *GeminiCompleter) Model() string {
	return c.model
}

func (c *GeminiCompleter) Complete(ctx context.Context, req usecase.CompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Gemini.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.model))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "gemini rate limit wait")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "gemini generate content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		err := errors.New("gemini returned an empty answer")
		span.RecordError(err)
		return "", err
	}
	return text, nil
}
