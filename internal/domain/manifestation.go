package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAuthor signs generated texts that come back without an author.
const DefaultAuthor = "Voz da Pluma"

// Manifestation is the text published for one slot on one day.
type Manifestation struct {
	ID        uuid.UUID   `json:"id"`
	Slot      Slot        `json:"slot"`
	Type      ContentType `json:"type"`
	Date      time.Time   `json:"date"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Author    string      `json:"author"`
	Fallback  bool        `json:"fallback"`
	Model     string      `json:"model,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// IsCurrent reports whether the manifestation belongs to today.
func (m Manifestation) IsCurrent(today time.Time) bool {
	return SameDay(today, m.Date)
}

// ManifestationEvent is broadcast whenever a slot's manifestation is replaced.
type ManifestationEvent struct {
	Type          string        `json:"type"`
	Manifestation Manifestation `json:"manifestation"`
	Forced        bool          `json:"forced"`
}

const EventTypeReplaced = "manifestation.replaced"
