package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/usecase"
)

const (
	cacheGenerationKey = "pluma:current:gen"
	cacheKeyPrefix     = "pluma:current:"
)

// MemcacheClient is the subset of *memcache.Client the cache uses.
type MemcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

// CachedManifestationRepository caches GetCurrent per day in memcached.
// Every Replace bumps a generation stamp that is part of each cache key, so
// all cached days are invalidated at once. Without a stamp the cache is
// bypassed.
type CachedManifestationRepository struct {
	inner  usecase.ManifestationRepository
	mc     MemcacheClient
	ttl    time.Duration
	logger *slog.Logger
	bumps  atomic.Uint64
}

func NewCachedManifestationRepository(inner usecase.ManifestationRepository, mc MemcacheClient, ttl time.Duration, logger *slog.Logger) *CachedManifestationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedManifestationRepository{
		inner:  inner,
		mc:     mc,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedManifestationRepository) GetCurrent(ctx context.Context, date time.Time) ([]domain.Manifestation, error) {
	gen, ok := r.generation(ctx)
	if !ok {
		result, err := r.inner.GetCurrent(ctx, date)
		if err != nil {
			return nil, err
		}
		r.bump(ctx)
		return result, nil
	}

	key := cacheKeyPrefix + gen + ":" + date.Format(time.DateOnly)

	item, err := r.mc.Get(key)
	if err == nil {
		var cached []domain.Manifestation
		if err := json.Unmarshal(item.Value, &cached); err == nil {
			return cached, nil
		}
	} else if err != memcache.ErrCacheMiss {
		r.warn(ctx, "memcache get failed", err)
	}

	result, err := r.inner.GetCurrent(ctx, date)
	if err != nil {
		return nil, err
	}

	value, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	err = r.mc.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(r.ttl.Seconds()),
	})
	if err != nil {
		r.warn(ctx, "memcache set failed", err)
	}

	return result, nil
}

func (r *CachedManifestationRepository) Replace(ctx context.Context, m domain.Manifestation) (domain.Manifestation, error) {
	stored, err := r.inner.Replace(ctx, m)
	r.bump(ctx)
	return stored, err
}

func (r *CachedManifestationRepository) GetRecent(ctx context.Context, limit int) ([]domain.Manifestation, error) {
	return r.inner.GetRecent(ctx, limit)
}

func (r *CachedManifestationRepository) generation(ctx context.Context) (string, bool) {
	item, err := r.mc.Get(cacheGenerationKey)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			r.warn(ctx, "memcache generation get failed", err)
		}
		return "", false
	}
	return string(item.Value), true
}

func (r *CachedManifestationRepository) bump(ctx context.Context) {
	err := r.mc.Set(&memcache.Item{
		Key:   cacheGenerationKey,
		Value: []byte(strconv.FormatInt(time.Now().UnixNano(), 36) + "." + strconv.FormatUint(r.bumps.Add(1), 36)),
	})
	if err != nil {
		r.warn(ctx, "memcache generation set failed", err)
	}
}

func (r *CachedManifestationRepository) warn(ctx context.Context, msg string, err error) {
	r.logger.WarnContext(ctx, msg,
		slog.String("error", err.Error()),
		slog.String("module", "cache"),
	)
}
