package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeebo/xxh3"

	"github.com/templodoabismo/pluma/internal/config"
	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/present/rest/presenter"
	"github.com/templodoabismo/pluma/internal/service"
	"github.com/templodoabismo/pluma/internal/usecase"
	"github.com/templodoabismo/pluma/internal/utils"
)

type Coordinator interface {
	Current(ctx context.Context) ([]domain.Manifestation, error)
	Recent(ctx context.Context, limit int) ([]domain.Manifestation, error)
	ForceRegenerate(ctx context.Context, slot domain.Slot) (domain.Manifestation, error)
	EnsureTodayComplete(ctx context.Context) (usecase.SweepReport, error)
	Settings(interval time.Duration, provider, model string) domain.Settings
	Today() time.Time
}

type Scheduler interface {
	Status() service.SchedulerStatus
	Restart(ctx context.Context)
	Interval() time.Duration
}

type Handler struct {
	config      config.Config
	coordinator Coordinator
	scheduler   Scheduler
	signal      *service.SignalService
}

func NewHandler(
	config config.Config,
	coordinator Coordinator,
	scheduler Scheduler,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config:      config,
		coordinator: coordinator,
		scheduler:   scheduler,
		signal:      signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, requireAdmin echo.MiddlewareFunc) {
	e.GET("/health", h.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.GET("/manifestations/current", h.handleCurrent)
	api.GET("/manifestations/current/:slot", h.handleCurrentSlot)
	api.GET("/manifestations/recent", h.handleRecent)
	api.GET("/realtime", h.handleRealtime)

	admin := api.Group("/admin", requireAdmin)
	admin.GET("/settings", h.handleSettings)
	admin.GET("/scheduler", h.handleSchedulerStatus)
	admin.POST("/scheduler/restart", h.handleSchedulerRestart)
	admin.POST("/manifestations/:slot/regenerate", h.handleRegenerate)
	admin.POST("/sweep", h.handleSweep)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

// CurrentView is today's state, one key per slot in slot order. A slot
// without a manifestation is null.
type CurrentView struct {
	Date           string                                    `json:"date"`
	Manifestations utils.OrderedKVMap[*domain.Manifestation] `json:"manifestations"`
}

func (h *Handler) handleCurrent(c echo.Context) error {
	ctx := c.Request().Context()

	current, err := h.coordinator.Current(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	view := CurrentView{Date: h.coordinator.Today().Format(time.DateOnly)}
	for _, slot := range domain.Slots() {
		view.Manifestations.Set(string(slot), nil)
	}
	for i := range current {
		view.Manifestations.Set(string(current[i].Slot), &current[i])
	}
	view.Manifestations.SortBy(func(key string) int {
		return domain.Slot(key).Index()
	})

	payload, err := json.Marshal(view)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	etag := fmt.Sprintf(`"%016x"`, xxh3.Hash(payload))
	c.Response().Header().Set("ETag", etag)
	if match := c.Request().Header.Get("If-None-Match"); match == etag {
		return c.NoContent(http.StatusNotModified)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

func (h *Handler) handleCurrentSlot(c echo.Context) error {
	ctx := c.Request().Context()

	slot, err := h.slotParam(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	current, err := h.coordinator.Current(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	for _, m := range current {
		if m.Slot == slot {
			return presenter.OK(c, m)
		}
	}

	notFound := domain.NotFoundError{Resource: "manifestation for " + string(slot)}
	return presenter.NotFound(c, notFound.Error())
}

func (h *Handler) handleRecent(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	limitStr := c.QueryParam("limit")
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil || limitInt < 0 {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = limitInt
	}

	results, err := h.coordinator.Recent(ctx, limit)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, results)
}

func (h *Handler) handleSettings(c echo.Context) error {
	settings := h.coordinator.Settings(
		h.scheduler.Interval(),
		h.config.Generator.Provider,
		h.config.Generator.Model,
	)
	return presenter.OK(c, settings)
}

func (h *Handler) handleSchedulerStatus(c echo.Context) error {
	return presenter.OK(c, h.scheduler.Status())
}

func (h *Handler) handleSchedulerRestart(c echo.Context) error {
	h.scheduler.Restart(c.Request().Context())
	return presenter.OK(c, h.scheduler.Status())
}

func (h *Handler) handleRegenerate(c echo.Context) error {
	ctx := c.Request().Context()

	slot, err := h.slotParam(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	m, err := h.coordinator.ForceRegenerate(ctx, slot)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSlot) {
			return presenter.BadRequest(c, err)
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, m)
}

func (h *Handler) handleSweep(c echo.Context) error {
	report, err := h.coordinator.EnsureTodayComplete(c.Request().Context())
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, report)
}

func (h *Handler) slotParam(c echo.Context) (domain.Slot, error) {
	raw, err := url.PathUnescape(c.Param("slot"))
	if err != nil {
		return "", fmt.Errorf("invalid slot")
	}
	return domain.ParseSlot(raw)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type string `json:"type"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.signal == nil {
		return presenter.ServiceUnavailable(c, "realtime is not configured")
	}

	ctx := c.Request().Context()

	sub, err := h.signal.Subscribe(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	defer sub.Close()

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.ErrorContext(
			ctx, "Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return nil
	}
	defer ws.Close()

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				var wsErr *websocket.CloseError
				if errors.As(err, &wsErr) {
					if wsErr.Code != websocket.CloseNormalClosure && wsErr.Code != websocket.CloseGoingAway {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.DebugContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "h": // heartbeat
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := ws.WriteJSON(event); err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
