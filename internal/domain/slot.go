package domain

import (
	"fmt"
	"time"
)

// Slot is one of the fixed daily publishing times.
type Slot string

const (
	SlotDawn    Slot = "07:00"
	SlotMorning Slot = "09:00"
	SlotMidday  Slot = "11:00"
)

// ContentType is the kind of text a slot publishes on a given day.
type ContentType string

const (
	ContentTypeRitual     ContentType = "ritual"
	ContentTypePoem       ContentType = "poem"
	ContentTypeVerse      ContentType = "verse"
	ContentTypeReflection ContentType = "reflection"
)

// RitualDay is the first day of the week, when the dawn slot publishes a ritual.
const RitualDay = time.Sunday

var slots = []Slot{SlotDawn, SlotMorning, SlotMidday}

// Slots returns the publishing slots in their fixed order.
func Slots() []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

func ParseSlot(label string) (Slot, error) {
	for _, s := range slots {
		if string(s) == label {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, label)
}

// Index is the position of the slot in the publishing order, or -1.
func (s Slot) Index() int {
	for i, known := range slots {
		if known == s {
			return i
		}
	}
	return -1
}

func (s Slot) Valid() bool {
	return s.Index() >= 0
}

// ResolveType decides what a slot publishes on the given date.
// Only the calendar weekday of date is consulted.
func ResolveType(slot Slot, date time.Time) ContentType {
	switch slot {
	case SlotDawn:
		if date.Weekday() == RitualDay {
			return ContentTypeRitual
		}
		return ContentTypePoem
	case SlotMorning:
		return ContentTypeVerse
	case SlotMidday:
		return ContentTypeReflection
	default:
		return ""
	}
}

// Today truncates now to midnight in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SameDay compares two instants by calendar date in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
