// Package client talks to a running pluma server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/service"
	"github.com/templodoabismo/pluma/internal/usecase"
	"github.com/templodoabismo/pluma/internal/utils"
)

const (
	defaultTimeout = 3 * time.Minute
	userAgent      = "pluma-client"
)

type Client struct {
	client  *http.Client
	cache   *cache.Cache
	baseURL string
	token   string
}

type Options struct {
	Timeout time.Duration
	Token   string
}

func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		cache:   cache.New(time.Minute, 5*time.Minute),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   opts.Token,
	}
	c.client = &http.Client{
		Timeout:   timeout,
		Transport: c,
	}
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// StatusError is returned for any non-200 answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Message)
}

func (c *Client) HttpRequest(ctx context.Context, method, path string, response any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if response == nil {
		return nil
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CurrentView mirrors the public current endpoint. Slots without a
// manifestation are nil and keys keep the server's slot order.
type CurrentView struct {
	Date           string                                    `json:"date"`
	Manifestations utils.OrderedKVMap[*domain.Manifestation] `json:"manifestations"`
}

func (c *Client) Current(ctx context.Context) (CurrentView, error) {
	var view CurrentView
	err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/manifestations/current", &view)
	return view, err
}

func (c *Client) Recent(ctx context.Context, limit int) ([]domain.Manifestation, error) {
	var recent []domain.Manifestation
	path := "/api/v1/manifestations/recent"
	if limit > 0 {
		path += "?limit=" + fmt.Sprint(limit)
	}
	err := c.HttpRequest(ctx, http.MethodGet, path, &recent)
	return recent, err
}

// Settings is cached for a minute; it only changes with the server's config.
func (c *Client) Settings(ctx context.Context) (domain.Settings, error) {
	const cacheKey = "settings"
	if x, found := c.cache.Get(cacheKey); found {
		return x.(domain.Settings), nil
	}

	var settings domain.Settings
	if err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/admin/settings", &settings); err != nil {
		return domain.Settings{}, err
	}

	c.cache.Set(cacheKey, settings, cache.DefaultExpiration)
	return settings, nil
}

func (c *Client) SchedulerStatus(ctx context.Context) (service.SchedulerStatus, error) {
	var status service.SchedulerStatus
	err := c.HttpRequest(ctx, http.MethodGet, "/api/v1/admin/scheduler", &status)
	return status, err
}

func (c *Client) RestartScheduler(ctx context.Context) (service.SchedulerStatus, error) {
	var status service.SchedulerStatus
	err := c.HttpRequest(ctx, http.MethodPost, "/api/v1/admin/scheduler/restart", &status)
	return status, err
}

func (c *Client) Regenerate(ctx context.Context, slot domain.Slot) (domain.Manifestation, error) {
	var m domain.Manifestation
	path := "/api/v1/admin/manifestations/" + url.PathEscape(string(slot)) + "/regenerate"
	err := c.HttpRequest(ctx, http.MethodPost, path, &m)
	return m, err
}

func (c *Client) Sweep(ctx context.Context) (usecase.SweepReport, error) {
	var report usecase.SweepReport
	err := c.HttpRequest(ctx, http.MethodPost, "/api/v1/admin/sweep", &report)
	return report, err
}
