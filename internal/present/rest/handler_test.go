package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templodoabismo/pluma/internal/config"
	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/present/rest/middleware"
	"github.com/templodoabismo/pluma/internal/service"
	"github.com/templodoabismo/pluma/internal/usecase"
)

const adminToken = "s3cret"

var tuesday = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

type fakeCoordinator struct {
	current     []domain.Manifestation
	currentErr  error
	regenerated []domain.Slot
	regenErr    error
	sweeps      int
	recentLimit int
}

func (f *fakeCoordinator) Current(ctx context.Context) ([]domain.Manifestation, error) {
	return f.current, f.currentErr
}

func (f *fakeCoordinator) Recent(ctx context.Context, limit int) ([]domain.Manifestation, error) {
	f.recentLimit = limit
	return f.current, nil
}

func (f *fakeCoordinator) ForceRegenerate(ctx context.Context, slot domain.Slot) (domain.Manifestation, error) {
	f.regenerated = append(f.regenerated, slot)
	if f.regenErr != nil {
		return domain.Manifestation{}, f.regenErr
	}
	return domain.Manifestation{ID: uuid.New(), Slot: slot, Date: tuesday, Title: "novo"}, nil
}

func (f *fakeCoordinator) EnsureTodayComplete(ctx context.Context) (usecase.SweepReport, error) {
	f.sweeps++
	return usecase.SweepReport{Date: tuesday, Generated: domain.Slots()}, nil
}

func (f *fakeCoordinator) Settings(interval time.Duration, provider, model string) domain.Settings {
	return domain.Settings{Enabled: true, Interval: interval.String(), Provider: provider, Model: model}
}

func (f *fakeCoordinator) Today() time.Time {
	return tuesday
}

type fakeScheduler struct {
	restarts int
}

func (f *fakeScheduler) Status() service.SchedulerStatus {
	return service.SchedulerStatus{State: "running", Running: true, Interval: "30m0s", RunCount: f.restarts}
}

func (f *fakeScheduler) Restart(ctx context.Context) {
	f.restarts++
}

func (f *fakeScheduler) Interval() time.Duration {
	return 30 * time.Minute
}

func newTestEcho(coord *fakeCoordinator, sched *fakeScheduler, signal *service.SignalService) *echo.Echo {
	conf := config.Config{Generator: config.Generator{Provider: "openai", Model: "gpt-4o-mini"}}
	e := echo.New()
	h := NewHandler(conf, coord, sched, signal)
	h.RegisterRoutes(e, middleware.NewAuthMiddleware(adminToken).RequireAdmin)
	return e
}

func do(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func adminHeader() http.Header {
	return http.Header{"Authorization": []string{"Bearer " + adminToken}}
}

func TestHealth(t *testing.T) {
	rec := do(newTestEcho(&fakeCoordinator{}, &fakeScheduler{}, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCurrentRendersMissingSlotsAsNull(t *testing.T) {
	coord := &fakeCoordinator{current: []domain.Manifestation{
		{ID: uuid.New(), Slot: domain.SlotMidday, Type: domain.ContentTypeReflection, Date: tuesday, Title: "meio-dia"},
		{ID: uuid.New(), Slot: domain.SlotDawn, Type: domain.ContentTypePoem, Date: tuesday, Title: "aurora"},
	}}
	e := newTestEcho(coord, &fakeScheduler{}, nil)

	rec := do(e, http.MethodGet, "/api/v1/manifestations/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	dawn := strings.Index(body, `"07:00"`)
	morning := strings.Index(body, `"09:00":null`)
	midday := strings.Index(body, `"11:00"`)
	assert.True(t, dawn >= 0 && morning > dawn && midday > morning, body)

	var view struct {
		Date           string                           `json:"date"`
		Manifestations map[string]*domain.Manifestation `json:"manifestations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "2026-10-20", view.Date)
	assert.Nil(t, view.Manifestations["09:00"])
	assert.Equal(t, "aurora", view.Manifestations["07:00"].Title)
}

func TestCurrentHonoursETag(t *testing.T) {
	coord := &fakeCoordinator{current: []domain.Manifestation{{Slot: domain.SlotDawn, Date: tuesday, Title: "a"}}}
	e := newTestEcho(coord, &fakeScheduler{}, nil)

	first := do(e, http.MethodGet, "/api/v1/manifestations/current", nil)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	cached := do(e, http.MethodGet, "/api/v1/manifestations/current", http.Header{"If-None-Match": []string{etag}})
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Empty(t, cached.Body.String())

	coord.current[0].Title = "b"
	changed := do(e, http.MethodGet, "/api/v1/manifestations/current", http.Header{"If-None-Match": []string{etag}})
	assert.Equal(t, http.StatusOK, changed.Code)
	assert.NotEqual(t, etag, changed.Header().Get("ETag"))
}

func TestCurrentStoreError(t *testing.T) {
	e := newTestEcho(&fakeCoordinator{currentErr: errors.New("db down")}, &fakeScheduler{}, nil)
	rec := do(e, http.MethodGet, "/api/v1/manifestations/current", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCurrentSlot(t *testing.T) {
	coord := &fakeCoordinator{current: []domain.Manifestation{{Slot: domain.SlotDawn, Date: tuesday, Title: "a"}}}
	e := newTestEcho(coord, &fakeScheduler{}, nil)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/manifestations/current/07:00", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/v1/manifestations/current/09:00", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/v1/manifestations/current/08:00", nil).Code)
}

func TestRecentLimit(t *testing.T) {
	coord := &fakeCoordinator{}
	e := newTestEcho(coord, &fakeScheduler{}, nil)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/manifestations/recent?limit=5", nil).Code)
	assert.Equal(t, 5, coord.recentLimit)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/v1/manifestations/recent?limit=abc", nil).Code)
}

func TestAdminRequiresToken(t *testing.T) {
	e := newTestEcho(&fakeCoordinator{}, &fakeScheduler{}, nil)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/v1/admin/settings", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/v1/admin/settings",
		http.Header{"Authorization": []string{"Bearer wrong"}}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/v1/admin/settings",
		http.Header{"Authorization": []string{adminToken}}).Code)

	rec := do(e, http.MethodGet, "/api/v1/admin/settings", adminHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"provider":"openai"`)
}

func TestAdminDisabledWithoutConfiguredToken(t *testing.T) {
	e := echo.New()
	NewHandler(config.Config{}, &fakeCoordinator{}, &fakeScheduler{}, nil).
		RegisterRoutes(e, middleware.NewAuthMiddleware("").RequireAdmin)

	rec := do(e, http.MethodPost, "/api/v1/admin/sweep", http.Header{"Authorization": []string{"Bearer "}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegenerate(t *testing.T) {
	coord := &fakeCoordinator{}
	e := newTestEcho(coord, &fakeScheduler{}, nil)

	rec := do(e, http.MethodPost, "/api/v1/admin/manifestations/07:00/regenerate", adminHeader())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Slot{domain.SlotDawn}, coord.regenerated)
	assert.Contains(t, rec.Body.String(), `"title":"novo"`)

	rec = do(e, http.MethodPost, "/api/v1/admin/manifestations/13:00/regenerate", adminHeader())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, coord.regenerated, 1)

	coord.regenErr = errors.New("insert failed")
	rec = do(e, http.MethodPost, "/api/v1/admin/manifestations/09%3A00/regenerate", adminHeader())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSchedulerRoutes(t *testing.T) {
	coord := &fakeCoordinator{}
	sched := &fakeScheduler{}
	e := newTestEcho(coord, sched, nil)

	rec := do(e, http.MethodGet, "/api/v1/admin/scheduler", adminHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":true`)

	rec = do(e, http.MethodPost, "/api/v1/admin/scheduler/restart", adminHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sched.restarts)

	rec = do(e, http.MethodPost, "/api/v1/admin/sweep", adminHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, coord.sweeps)
	assert.Contains(t, rec.Body.String(), `"generated":["07:00","09:00","11:00"]`)
}

func TestRealtimeUnavailableWithoutRedis(t *testing.T) {
	e := newTestEcho(&fakeCoordinator{}, &fakeScheduler{}, nil)
	rec := do(e, http.MethodGet, "/api/v1/realtime", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRealtimePushesEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	signal := service.NewSignalService(rdb)

	srv := httptest.NewServer(newTestEcho(&fakeCoordinator{}, &fakeScheduler{}, signal))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/realtime", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(Request{Type: "h"}))

	event := domain.ManifestationEvent{
		Type:          domain.EventTypeReplaced,
		Manifestation: domain.Manifestation{ID: uuid.New(), Slot: domain.SlotMidday, Title: "reflexão"},
	}
	// The subscription is confirmed before the upgrade completes.
	require.NoError(t, signal.PublishManifestation(context.Background(), event))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got domain.ManifestationEvent
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, event.Manifestation.ID, got.Manifestation.ID)
	assert.Equal(t, domain.SlotMidday, got.Manifestation.Slot)
}
