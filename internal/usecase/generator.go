package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/metrics"
)

var generatorTracer = otel.Tracer("generator")

type GeneratorOptions struct {
	MaxTokens   int
	Temperature float32
}

type ContentGenerator struct {
	completer TextCompleter
	opts      GeneratorOptions
	logger    *slog.Logger
	now       func() time.Time
}

func NewContentGenerator(completer TextCompleter, opts GeneratorOptions, logger *slog.Logger) *ContentGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentGenerator{
		completer: completer,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

type completion struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

// Generate asks the completer for the slot's text and falls back to the
// fixed text for the resolved type on any failure.
func (g *ContentGenerator) Generate(ctx context.Context, slot domain.Slot, date time.Time) domain.Manifestation {
	ctx, span := generatorTracer.Start(ctx, "Generator.Generate")
	defer span.End()

	contentType := domain.ResolveType(slot, date)
	span.SetAttributes(
		attribute.String("slot", string(slot)),
		attribute.String("type", string(contentType)),
	)

	m := domain.Manifestation{
		ID:        uuid.New(),
		Slot:      slot,
		Type:      contentType,
		Date:      date,
		Model:     g.completer.Model(),
		CreatedAt: g.now(),
	}

	system, prompt := BuildPrompt(contentType, date)

	start := time.Now()
	raw, err := g.completer.Complete(ctx, CompletionRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	elapsed := time.Since(start)

	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, err)
		return g.fallback(ctx, span, m, domain.OutcomeServiceError, err, elapsed, "")
	}

	parsed, err := parseCompletion(raw)
	if err != nil {
		return g.fallback(ctx, span, m, domain.OutcomeMalformed, err, elapsed, raw)
	}

	m.Title = parsed.Title
	m.Content = parsed.Content
	m.Author = parsed.Author

	metrics.RecordGeneration(string(slot), string(contentType), string(domain.OutcomeGenerated), elapsed.Seconds())
	g.logger.InfoContext(ctx, "manifestation generated",
		slog.String("slot", string(slot)),
		slog.String("type", string(contentType)),
		slog.Duration("elapsed", elapsed),
		slog.String("module", "generator"),
	)
	return m
}

func (g *ContentGenerator) fallback(
	ctx context.Context,
	span trace.Span,
	m domain.Manifestation,
	outcome domain.GenerationOutcome,
	err error,
	elapsed time.Duration,
	raw string,
) domain.Manifestation {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(outcome))

	metrics.RecordGeneration(string(m.Slot), string(m.Type), string(outcome), elapsed.Seconds())

	attrs := []any{
		slog.String("slot", string(m.Slot)),
		slog.String("type", string(m.Type)),
		slog.String("reason", string(outcome)),
		slog.String("error", err.Error()),
		slog.String("module", "generator"),
	}
	if raw != "" {
		attrs = append(attrs, slog.String("raw_response", truncate(raw, 300)))
	}
	g.logger.WarnContext(ctx, "generation failed, using fallback", attrs...)

	m.Title, m.Content, m.Author = FallbackFor(m.Type)
	m.Fallback = true
	return m
}

func parseCompletion(raw string) (completion, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return completion{}, fmt.Errorf("%w: no json object in response", domain.ErrMalformedCompletion)
	}

	var c completion
	if err := json.Unmarshal([]byte(text[start:end+1]), &c); err != nil {
		return completion{}, fmt.Errorf("%w: %v", domain.ErrMalformedCompletion, err)
	}

	c.Title = strings.TrimSpace(c.Title)
	c.Content = strings.TrimSpace(c.Content)
	c.Author = strings.TrimSpace(c.Author)

	if c.Title == "" || c.Content == "" {
		return completion{}, fmt.Errorf("%w: missing title or content", domain.ErrMalformedCompletion)
	}
	if c.Author == "" {
		c.Author = domain.DefaultAuthor
	}
	return c, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
