package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templodoabismo/pluma/internal/domain"
)

// --- mocks ---

type memoryRepo struct {
	mu          sync.Mutex
	rows        map[domain.Slot]domain.Manifestation
	replaced    []domain.Slot
	getErr      error
	replaceErrs map[domain.Slot]error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows:        map[domain.Slot]domain.Manifestation{},
		replaceErrs: map[domain.Slot]error{},
	}
}

func (r *memoryRepo) GetCurrent(ctx context.Context, date time.Time) ([]domain.Manifestation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	var out []domain.Manifestation
	for _, m := range r.rows {
		if domain.SameDay(date, m.Date) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Index() < out[j].Slot.Index() })
	return out, nil
}

func (r *memoryRepo) Replace(ctx context.Context, m domain.Manifestation) (domain.Manifestation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced = append(r.replaced, m.Slot)
	if err := r.replaceErrs[m.Slot]; err != nil {
		return domain.Manifestation{}, err
	}
	r.rows[m.Slot] = m
	return m, nil
}

func (r *memoryRepo) GetRecent(ctx context.Context, limit int) ([]domain.Manifestation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Manifestation
	for _, m := range r.rows {
		out = append(out, m)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type countingGenerator struct {
	mu    sync.Mutex
	calls []domain.Slot
	types []domain.ContentType
}

func (g *countingGenerator) Generate(ctx context.Context, slot domain.Slot, date time.Time) domain.Manifestation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, slot)
	contentType := domain.ResolveType(slot, date)
	g.types = append(g.types, contentType)
	return domain.Manifestation{
		ID:      uuid.New(),
		Slot:    slot,
		Type:    contentType,
		Date:    date,
		Title:   "generated " + string(slot),
		Content: "content " + string(slot),
		Author:  domain.DefaultAuthor,
	}
}

type recordingPublisher struct {
	events []domain.ManifestationEvent
	err    error
}

func (p *recordingPublisher) PublishManifestation(ctx context.Context, event domain.ManifestationEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCoordinator(repo ManifestationRepository, gen Generator, pub EventPublisher, now time.Time) *Coordinator {
	return NewCoordinator(repo, gen, pub, time.UTC, discardLogger()).WithClock(fixedClock(now))
}

// --- tests ---

func TestEnsureTodayCompleteFillsEmptyDayInOrder(t *testing.T) {
	repo := newMemoryRepo()
	gen := &countingGenerator{}
	coord := newTestCoordinator(repo, gen, nil, tuesday.Add(8*time.Hour))

	report, err := coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Slots(), gen.calls)
	assert.Equal(t, domain.Slots(), repo.replaced)
	assert.Equal(t, domain.Slots(), report.Generated)
	assert.Empty(t, report.Failed)
	assert.Equal(t, tuesday, report.Date)
}

func TestEnsureTodayCompleteIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.rows[domain.SlotDawn] = domain.Manifestation{Slot: domain.SlotDawn, Date: tuesday, Title: "a"}
	repo.rows[domain.SlotMorning] = domain.Manifestation{Slot: domain.SlotMorning, Date: tuesday, Title: "b"}
	gen := &countingGenerator{}
	coord := newTestCoordinator(repo, gen, nil, tuesday.Add(10*time.Hour))

	_, err := coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)
	_, err = coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)

	assert.Len(t, gen.calls, 1)
	assert.Len(t, repo.replaced, 1)
}

func TestEnsureTodayCompleteFillsOnlyMissing(t *testing.T) {
	repo := newMemoryRepo()
	dawn := domain.Manifestation{Slot: domain.SlotDawn, Date: tuesday, Title: "dawn title", Content: "dawn content"}
	morning := domain.Manifestation{Slot: domain.SlotMorning, Date: tuesday, Title: "morning title", Content: "morning content"}
	repo.rows[domain.SlotDawn] = dawn
	repo.rows[domain.SlotMorning] = morning
	gen := &countingGenerator{}
	coord := newTestCoordinator(repo, gen, nil, tuesday.Add(12*time.Hour))

	report, err := coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Slot{domain.SlotMidday}, gen.calls)
	assert.Equal(t, []domain.Slot{domain.SlotDawn, domain.SlotMorning}, report.Present)
	assert.Equal(t, dawn, repo.rows[domain.SlotDawn])
	assert.Equal(t, morning, repo.rows[domain.SlotMorning])
}

func TestEnsureTodayCompleteTreatsYesterdayAsMissing(t *testing.T) {
	repo := newMemoryRepo()
	yesterday := tuesday.AddDate(0, 0, -1)
	for _, slot := range domain.Slots() {
		repo.rows[slot] = domain.Manifestation{Slot: slot, Date: yesterday}
	}
	gen := &countingGenerator{}
	coord := newTestCoordinator(repo, gen, nil, tuesday)

	_, err := coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Slots(), gen.calls)
	for _, slot := range domain.Slots() {
		assert.True(t, domain.SameDay(tuesday, repo.rows[slot].Date))
	}
}

func TestEnsureTodayCompleteContinuesAfterReplaceFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.replaceErrs[domain.SlotMorning] = errors.New("connection reset")
	gen := &countingGenerator{}
	coord := newTestCoordinator(repo, gen, nil, tuesday)

	report, err := coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Slot{domain.SlotMorning}, report.Failed)
	assert.Equal(t, []domain.Slot{domain.SlotDawn, domain.SlotMidday}, report.Generated)
	assert.Len(t, gen.calls, 3)
}

func TestEnsureTodayCompleteFailsWhenStoreUnreadable(t *testing.T) {
	repo := newMemoryRepo()
	repo.getErr = errors.New("db down")
	gen := &countingGenerator{}
	coord := newTestCoordinator(repo, gen, nil, tuesday)

	_, err := coord.EnsureTodayComplete(context.Background())
	assert.Error(t, err)
	assert.Empty(t, gen.calls)
}

func TestForceRegenerateBypassesCompleteness(t *testing.T) {
	repo := newMemoryRepo()
	for _, slot := range domain.Slots() {
		repo.rows[slot] = domain.Manifestation{Slot: slot, Date: tuesday, Title: "old"}
	}
	gen := &countingGenerator{}
	pub := &recordingPublisher{}
	coord := newTestCoordinator(repo, gen, pub, tuesday)

	m, err := coord.ForceRegenerate(context.Background(), domain.SlotMidday)
	require.NoError(t, err)

	assert.Equal(t, []domain.Slot{domain.SlotMidday}, gen.calls)
	assert.Equal(t, []domain.Slot{domain.SlotMidday}, repo.replaced)
	assert.Equal(t, "generated 11:00", repo.rows[domain.SlotMidday].Title)
	assert.Equal(t, m.ID, repo.rows[domain.SlotMidday].ID)

	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].Forced)
	assert.Equal(t, domain.EventTypeReplaced, pub.events[0].Type)
}

func TestForceRegenerateNeverProducesRitualOffDay(t *testing.T) {
	repo := newMemoryRepo()
	gen := &countingGenerator{}
	coord := newTestCoordinator(repo, gen, nil, tuesday)

	m, err := coord.ForceRegenerate(context.Background(), domain.SlotDawn)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypePoem, m.Type)

	coord.WithClock(fixedClock(sunday.Add(7 * time.Hour)))
	m, err = coord.ForceRegenerate(context.Background(), domain.SlotDawn)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeRitual, m.Type)
}

func TestForceRegenerateRejectsUnknownSlot(t *testing.T) {
	coord := newTestCoordinator(newMemoryRepo(), &countingGenerator{}, nil, tuesday)

	_, err := coord.ForceRegenerate(context.Background(), domain.Slot("13:00"))
	assert.ErrorIs(t, err, domain.ErrUnknownSlot)
}

func TestForceRegenerateReturnsStoreError(t *testing.T) {
	repo := newMemoryRepo()
	repo.replaceErrs[domain.SlotDawn] = errors.New("insert failed")
	coord := newTestCoordinator(repo, &countingGenerator{}, nil, tuesday)

	_, err := coord.ForceRegenerate(context.Background(), domain.SlotDawn)
	assert.Error(t, err)
}

func TestPublishFailureDoesNotFailReplace(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{err: errors.New("redis down")}
	coord := newTestCoordinator(repo, &countingGenerator{}, pub, tuesday)

	report, err := coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Generated, 3)
	assert.Len(t, pub.events, 3)
}

func TestRecentClampsLimit(t *testing.T) {
	repo := newMemoryRepo()
	coord := newTestCoordinator(repo, &countingGenerator{}, nil, tuesday)
	_, err := coord.EnsureTodayComplete(context.Background())
	require.NoError(t, err)

	recent, err := coord.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	recent, err = coord.Recent(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestSettingsListsTodaysTypes(t *testing.T) {
	coord := newTestCoordinator(newMemoryRepo(), &countingGenerator{}, nil, sunday)

	settings := coord.Settings(30*time.Minute, "openai", "gpt-4o-mini")

	assert.True(t, settings.Enabled)
	assert.Equal(t, "30m0s", settings.Interval)
	require.Len(t, settings.Slots, 3)
	assert.Equal(t, domain.ContentTypeRitual, settings.Slots[0].Type)
	assert.Equal(t, domain.ContentTypeVerse, settings.Slots[1].Type)
	assert.Equal(t, domain.ContentTypeReflection, settings.Slots[2].Type)
}
