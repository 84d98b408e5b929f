package usecase

import (
	"context"
	"time"

	"github.com/templodoabismo/pluma/internal/domain"
)

// ManifestationRepository persists the current manifestation of each slot.
type ManifestationRepository interface {
	GetCurrent(ctx context.Context, date time.Time) ([]domain.Manifestation, error)
	Replace(ctx context.Context, m domain.Manifestation) (domain.Manifestation, error)
	GetRecent(ctx context.Context, limit int) ([]domain.Manifestation, error)
}

// CompletionRequest is one structured-output request to a text model.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// TextCompleter sends a prompt to an external generative text service and
// returns the raw text of its answer.
type TextCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// Generator produces a manifestation for a slot. It never fails.
type Generator interface {
	Generate(ctx context.Context, slot domain.Slot, date time.Time) domain.Manifestation
}

// EventPublisher broadcasts replaced manifestations.
type EventPublisher interface {
	PublishManifestation(ctx context.Context, event domain.ManifestationEvent) error
}
