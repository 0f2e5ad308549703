package archive

import (
	"context"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/redis"
)

// Cached serves Latest and Load from Redis; List and Cleanup go to the store.
// 캐시 오류는 무시하고 저장소로 폴백
type Cached struct {
	store    contracts.SnapshotArchive
	cache    *redis.Cache
	location *time.Location
	logger   *logger.Logger
}

// NewCached wraps store with a Redis cache; loc must match the store's trade-date zone
func NewCached(store contracts.SnapshotArchive, cache *redis.Cache, loc *time.Location, log *logger.Logger) *Cached {
	return &Cached{
		store:    store,
		cache:    cache,
		location: loc,
		logger:   log.WithField("module", "archive"),
	}
}

func (c *Cached) Save(ctx context.Context, snap *contracts.MarketSnapshot) error {
	if err := c.store.Save(ctx, snap); err != nil {
		return err
	}

	bt := string(snap.BriefingType)
	if err := c.cache.Set(ctx, redis.LatestSnapshotKey(bt), snap, redis.TTLDaily); err != nil {
		c.logger.WithError(err).Warn("Failed to cache latest snapshot")
	}
	if err := c.cache.Set(ctx, redis.SnapshotKey(tradeDate(snap, c.location), bt), snap, redis.TTLDaily); err != nil {
		c.logger.WithError(err).Debug("Failed to cache dated snapshot")
	}
	return nil
}

func (c *Cached) Load(ctx context.Context, date time.Time, bt contracts.BriefingType) (*contracts.MarketSnapshot, error) {
	key := redis.SnapshotKey(date.In(c.location).Format(dateLayout), string(bt))

	var snap contracts.MarketSnapshot
	if found, err := c.cache.Get(ctx, key, &snap); err == nil && found {
		return &snap, nil
	}

	loaded, err := c.store.Load(ctx, date, bt)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, loaded, redis.TTLDaily); err != nil {
		c.logger.WithError(err).Debug("Failed to cache dated snapshot")
	}
	return loaded, nil
}

func (c *Cached) Latest(ctx context.Context, bt contracts.BriefingType) (*contracts.MarketSnapshot, error) {
	key := redis.LatestSnapshotKey(string(bt))

	var snap contracts.MarketSnapshot
	if found, err := c.cache.Get(ctx, key, &snap); err == nil && found {
		return &snap, nil
	}

	latest, err := c.store.Latest(ctx, bt)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, latest, redis.TTLDaily); err != nil {
		c.logger.WithError(err).Debug("Failed to cache latest snapshot")
	}
	return latest, nil
}

func (c *Cached) List(ctx context.Context) ([]contracts.ArchiveEntry, error) {
	return c.store.List(ctx)
}

// Cleanup drops cached latest entries since they may point at removed rows
func (c *Cached) Cleanup(ctx context.Context, retentionDays int, now time.Time) (int, error) {
	n, err := c.store.Cleanup(ctx, retentionDays, now)
	if err != nil {
		return n, err
	}
	if n > 0 {
		for _, bt := range contracts.AllBriefingTypes() {
			_ = c.cache.Delete(ctx, redis.LatestSnapshotKey(string(bt)))
		}
	}
	return n, nil
}
