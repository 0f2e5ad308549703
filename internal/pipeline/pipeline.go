package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ark-poiop/dkwjawj-renew/internal/acquisition"
	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/selector"
	"github.com/ark-poiop/dkwjawj-renew/internal/universe"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/metrics"
	"github.com/ark-poiop/dkwjawj-renew/pkg/tracing"
)

// Pipeline resolves the briefing type and acquires a full snapshot.
// ⭐ SSOT: 실행 단위 오케스트레이션 (자체 재시도 없음)
type Pipeline struct {
	selector *selector.Selector
	universe *universe.Universe
	strategy *acquisition.Strategy
	metrics  *metrics.Recorder
	budget   time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithClock overrides the wall clock (tests, replays)
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithMetrics attaches a metrics recorder
func WithMetrics(rec *metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = rec
	}
}

// New creates a new Pipeline instance
func New(
	sel *selector.Selector,
	u *universe.Universe,
	strategy *acquisition.Strategy,
	budget time.Duration,
	log *logger.Logger,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		selector: sel,
		universe: u,
		strategy: strategy,
		budget:   budget,
		now:      time.Now,
		logger:   log.WithField("module", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run resolves the requested slot and acquires both segments.
// ConfigurationError 만 반환, 조회 실패는 스냅샷의 백업 표기로 드러남
func (p *Pipeline) Run(ctx context.Context, slotToken string) (contracts.BriefingType, *contracts.MarketSnapshot, error) {
	// 1. 슬롯 해석
	slot, err := selector.ParseSlot(slotToken)
	if err != nil {
		return "", nil, err
	}
	now := p.now()
	bt := p.selector.Resolve(slot, now)
	runID := uuid.NewString()

	log := p.logger.WithFields(map[string]interface{}{
		"run_id":        runID,
		"slot":          slot.Token,
		"briefing_type": bt,
	})

	ctx, span := tracing.StartSpan(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("slot", slot.Token),
		attribute.String("briefing_type", string(bt)),
	)

	// 2. 실행 예산
	runCtx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	// 3. 두 세그먼트 모두 조회 (유형과 무관)
	instruments := make(map[contracts.Segment][]contracts.Instrument, len(contracts.RequiredSegments))
	for _, seg := range contracts.RequiredSegments {
		instruments[seg] = p.universe.Segment(seg)
	}

	start := time.Now()
	snap, err := p.strategy.Acquire(runCtx, instruments, now)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("Run rejected")
		return "", nil, err
	}

	snap.RunID = runID
	snap.BriefingType = bt

	// 4. 완결성 (설정 오류로만 실패 가능)
	if !snap.Complete {
		err := contracts.NewConfigurationError("snapshot incomplete: %s", describeSegments(snap))
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("Run rejected")
		return "", nil, err
	}

	elapsed := time.Since(start)
	p.metrics.RecordRun(string(bt), elapsed, snap.Complete, snap.LiveRatio())
	span.SetAttributes(
		attribute.Int("live", snap.LiveCount),
		attribute.Int("backup", snap.BackupCount),
	)

	log.WithFields(map[string]interface{}{
		"live":        snap.LiveCount,
		"backup":      snap.BackupCount,
		"live_ratio":  snap.LiveRatio(),
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Run completed")

	return bt, snap, nil
}

// describeSegments renders "domestic 0/2, international 3/2"
func describeSegments(snap *contracts.MarketSnapshot) string {
	parts := make([]string, 0, len(contracts.RequiredSegments))
	for _, seg := range contracts.RequiredSegments {
		sum := snap.Segments[seg]
		parts = append(parts, fmt.Sprintf("%s %d/%d", seg, sum.Instruments, sum.Required))
	}
	return strings.Join(parts, ", ")
}
