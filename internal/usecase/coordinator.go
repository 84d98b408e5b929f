package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/metrics"
)

var coordinatorTracer = otel.Tracer("coordinator")

const (
	defaultRecentLimit = 16
	maxRecentLimit     = 64
)

// SweepReport summarises one EnsureTodayComplete run.
type SweepReport struct {
	Date      time.Time     `json:"date"`
	Present   []domain.Slot `json:"present"`
	Generated []domain.Slot `json:"generated"`
	Failed    []domain.Slot `json:"failed"`
}

type Coordinator struct {
	repo      ManifestationRepository
	generator Generator
	publisher EventPublisher
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

func NewCoordinator(
	repo ManifestationRepository,
	generator Generator,
	publisher EventPublisher,
	location *time.Location,
	logger *slog.Logger,
) *Coordinator {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		repo:      repo,
		generator: generator,
		publisher: publisher,
		location:  location,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the wall clock, for tests and one-off backfills.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

func (c *Coordinator) Today() time.Time {
	return domain.Today(c.now(), c.location)
}

// EnsureTodayComplete generates every slot that has no manifestation for
// today. A complete day performs no generation and no writes.
func (c *Coordinator) EnsureTodayComplete(ctx context.Context) (SweepReport, error) {
	ctx, span := coordinatorTracer.Start(ctx, "Coordinator.EnsureTodayComplete")
	defer span.End()

	today := c.Today()
	report := SweepReport{Date: today}

	current, err := c.repo.GetCurrent(ctx, today)
	if err != nil {
		span.RecordError(err)
		metrics.RecordSweep("error")
		return report, fmt.Errorf("failed to load current manifestations: %w", err)
	}

	present := make(map[domain.Slot]bool, len(current))
	for _, m := range current {
		present[m.Slot] = true
	}

	var missing []domain.Slot
	for _, slot := range domain.Slots() {
		if present[slot] {
			report.Present = append(report.Present, slot)
			continue
		}
		missing = append(missing, slot)
	}

	span.SetAttributes(
		attribute.String("date", today.Format(time.DateOnly)),
		attribute.Int("missing", len(missing)),
	)

	if len(missing) == 0 {
		metrics.RecordSweep("complete")
		return report, nil
	}

	if len(current) == 0 {
		c.logger.InfoContext(ctx, "new day, generating all slots",
			slog.String("date", today.Format(time.DateOnly)),
			slog.String("module", "coordinator"),
		)
	}

	for _, slot := range missing {
		if _, err := c.generateAndReplace(ctx, slot, today, false); err != nil {
			report.Failed = append(report.Failed, slot)
			continue
		}
		report.Generated = append(report.Generated, slot)
	}

	if len(report.Failed) > 0 {
		metrics.RecordSweep("partial")
	} else {
		metrics.RecordSweep("filled")
	}

	c.logger.InfoContext(ctx, "sweep finished",
		slog.String("date", today.Format(time.DateOnly)),
		slog.Int("generated", len(report.Generated)),
		slog.Int("failed", len(report.Failed)),
		slog.String("module", "coordinator"),
	)

	return report, nil
}

// ForceRegenerate replaces the slot's manifestation unconditionally. The
// content type follows today's date.
func (c *Coordinator) ForceRegenerate(ctx context.Context, slot domain.Slot) (domain.Manifestation, error) {
	ctx, span := coordinatorTracer.Start(ctx, "Coordinator.ForceRegenerate")
	defer span.End()

	if !slot.Valid() {
		return domain.Manifestation{}, fmt.Errorf("%w: %q", domain.ErrUnknownSlot, slot)
	}

	m, err := c.generateAndReplace(ctx, slot, c.Today(), true)
	if err != nil {
		span.RecordError(err)
		return domain.Manifestation{}, err
	}
	return m, nil
}

func (c *Coordinator) generateAndReplace(ctx context.Context, slot domain.Slot, today time.Time, forced bool) (domain.Manifestation, error) {
	m := c.generator.Generate(ctx, slot, today)

	stored, err := c.repo.Replace(ctx, m)
	if err != nil {
		metrics.RecordReplaceFailure(string(slot))
		c.logger.ErrorContext(ctx, "failed to replace manifestation",
			slog.String("slot", string(slot)),
			slog.String("error", err.Error()),
			slog.String("module", "coordinator"),
		)
		return domain.Manifestation{}, fmt.Errorf("failed to replace slot %s: %w", slot, err)
	}

	if c.publisher != nil {
		event := domain.ManifestationEvent{
			Type:          domain.EventTypeReplaced,
			Manifestation: stored,
			Forced:        forced,
		}
		if err := c.publisher.PublishManifestation(ctx, event); err != nil {
			c.logger.WarnContext(ctx, "failed to publish manifestation event",
				slog.String("slot", string(slot)),
				slog.String("error", err.Error()),
				slog.String("module", "coordinator"),
			)
		}
	}

	return stored, nil
}

// Current returns today's manifestations ordered by slot.
func (c *Coordinator) Current(ctx context.Context) ([]domain.Manifestation, error) {
	return c.repo.GetCurrent(ctx, c.Today())
}

func (c *Coordinator) Recent(ctx context.Context, limit int) ([]domain.Manifestation, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return c.repo.GetRecent(ctx, limit)
}

// Settings describes the generator as configured, with today's slot types.
func (c *Coordinator) Settings(interval time.Duration, provider, model string) domain.Settings {
	today := c.Today()
	settings := domain.Settings{
		Enabled:  true,
		Interval: interval.String(),
		Timezone: c.location.String(),
		Provider: provider,
		Model:    model,
	}
	for _, slot := range domain.Slots() {
		settings.Slots = append(settings.Slots, domain.SlotSettings{
			Slot: slot,
			Type: domain.ResolveType(slot, today),
		})
	}
	return settings
}
