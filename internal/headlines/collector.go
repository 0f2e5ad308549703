package headlines

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/redis"
)

// DefaultIssues is used when every headline source fails
var DefaultIssues = []contracts.Headline{
	{Title: "FOMC 결과 발표", Source: "default", Segment: contracts.SegmentInternational},
	{Title: "반도체 업황 회복 기대", Source: "default", Segment: contracts.SegmentDomestic},
	{Title: "원/달러 환율 변동성", Source: "default", Segment: contracts.SegmentDomestic},
	{Title: "주요 기업 실적 발표", Source: "default", Segment: contracts.SegmentInternational},
}

// Collector fans out to headline sources and merges the results.
// 헤드라인 실패는 브리핑을 막지 않음 (항상 결과 반환)
type Collector struct {
	sources []contracts.HeadlineSource
	cache   *redis.Cache
	timeout time.Duration
	logger  *logger.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(sources []contracts.HeadlineSource, cache *redis.Cache, timeout time.Duration, log *logger.Logger) *Collector {
	return &Collector{
		sources: sources,
		cache:   cache,
		timeout: timeout,
		logger:  log.WithField("module", "headlines"),
	}
}

// Collect returns up to limit headlines, emphasised segment first
func (c *Collector) Collect(ctx context.Context, bt contracts.BriefingType, limit int) []contracts.Headline {
	key := redis.HeadlinesKey(string(bt))
	if c.cache != nil {
		var cached []contracts.Headline
		if found, err := c.cache.Get(ctx, key, &cached); err == nil && found && len(cached) > 0 {
			return cached
		}
	}

	results := make([][]contracts.Headline, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		i, src := i, src
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			items, err := src.Headlines(sctx, limit)
			if err != nil {
				c.logger.WithError(err).WithField("source", src.Name()).Warn("Headline source failed")
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var merged []contracts.Headline
	for _, items := range results {
		merged = append(merged, items...)
	}

	if len(merged) == 0 {
		c.logger.Info("Using default issues")
		return arrange(append([]contracts.Headline(nil), DefaultIssues...), bt.Emphasis(), limit)
	}

	out := arrange(merged, bt.Emphasis(), limit)
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, out, redis.TTLMedium); err != nil {
			c.logger.WithError(err).Debug("Failed to cache headlines")
		}
	}
	return out
}

// arrange puts the emphasised segment first, keeping source order otherwise
func arrange(items []contracts.Headline, emphasis contracts.Segment, limit int) []contracts.Headline {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Segment == emphasis && items[j].Segment != emphasis
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
