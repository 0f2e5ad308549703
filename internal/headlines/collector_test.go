package headlines

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/redis"
)

type stubSource struct {
	name  string
	items []contracts.Headline
	err   error
	block bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Headlines(ctx context.Context, limit int) ([]contracts.Headline, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.items, s.err
}

func TestCollect_EmphasisFirst(t *testing.T) {
	naver := &stubSource{name: "naver", items: []contracts.Headline{
		{Title: "코스피 상승", Segment: contracts.SegmentDomestic},
	}}
	rss := &stubSource{name: "rss", items: []contracts.Headline{
		{Title: "Fed holds", Segment: contracts.SegmentInternational},
		{Title: "Oil slips", Segment: contracts.SegmentInternational},
	}}
	c := NewCollector([]contracts.HeadlineSource{naver, rss}, nil, time.Second, logger.Nop())

	got := c.Collect(context.Background(), contracts.BriefingUSClose, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, "Fed holds", got[0].Title)
	assert.Equal(t, "Oil slips", got[1].Title)

	got = c.Collect(context.Background(), contracts.BriefingKRClose, 0)
	assert.Equal(t, "코스피 상승", got[0].Title)
}

func TestCollect_FailuresAreNonFatal(t *testing.T) {
	broken := &stubSource{name: "naver", err: errors.New("503")}
	slow := &stubSource{name: "rss", block: true}
	c := NewCollector([]contracts.HeadlineSource{broken, slow}, nil, 20*time.Millisecond, logger.Nop())

	start := time.Now()
	got := c.Collect(context.Background(), contracts.BriefingKRPreview, 3)
	assert.Less(t, time.Since(start), time.Second)

	assert.Len(t, got, 3)
	assert.Equal(t, "default", got[0].Source)
	assert.Equal(t, contracts.SegmentDomestic, got[0].Segment)
}

func TestCollect_DisabledCache(t *testing.T) {
	src := &stubSource{name: "rss", items: []contracts.Headline{{Title: "x", Segment: contracts.SegmentInternational}}}
	cache := redis.NewCache(redis.Disabled(), "briefing")
	c := NewCollector([]contracts.HeadlineSource{src}, cache, time.Second, logger.Nop())

	got := c.Collect(context.Background(), contracts.BriefingUSPreview, 5)
	assert.Len(t, got, 1)
}
