package acquisition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/metrics"
	"github.com/ark-poiop/dkwjawj-renew/pkg/tracing"
)

// Config holds acquisition settings
type Config struct {
	Workers        int                       // 세그먼트별 동시 조회 수
	AdapterTimeout time.Duration             // 종목별 조회 타임아웃
	Minimums       map[contracts.Segment]int // 세그먼트별 최소 종목 수
}

// Strategy acquires one accepted quote per instrument, live first then backup.
// ⭐ SSOT: 실시간/백업 선택과 완결성 판정은 여기서만
type Strategy struct {
	sources   map[contracts.Segment]contracts.QuoteSource
	validator contracts.QuoteValidator
	backup    contracts.BackupGenerator
	metrics   *metrics.Recorder
	config    Config
	logger    *logger.Logger
}

// NewStrategy creates a new Strategy instance
func NewStrategy(
	sources []contracts.QuoteSource,
	validator contracts.QuoteValidator,
	backup contracts.BackupGenerator,
	rec *metrics.Recorder,
	cfg Config,
	log *logger.Logger,
) *Strategy {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	bySegment := make(map[contracts.Segment]contracts.QuoteSource, len(sources))
	for _, src := range sources {
		bySegment[src.Segment()] = src
	}
	return &Strategy{
		sources:   bySegment,
		validator: validator,
		backup:    backup,
		metrics:   rec,
		config:    cfg,
		logger:    log.WithField("module", "acquisition"),
	}
}

// outcome is written by exactly one task, indexed by instrument position
type outcome struct {
	quote contracts.RawQuote
	acc   contracts.Acceptance
}

// Acquire fetches every required segment and evaluates completeness.
// 세그먼트 구성 오류만 error 로 반환, 조회 실패는 모두 백업으로 흡수
func (s *Strategy) Acquire(ctx context.Context, instruments map[contracts.Segment][]contracts.Instrument, at time.Time) (*contracts.MarketSnapshot, error) {
	// 1. 사전 검사: 빈 세그먼트는 어떤 조회도 시작하기 전에 거부
	for _, seg := range contracts.RequiredSegments {
		if err := s.checkSegment(seg, instruments[seg]); err != nil {
			return nil, err
		}
	}

	// 2. 세그먼트 병렬 조회 (서로 독립)
	parts := make([]*contracts.MarketSnapshot, len(contracts.RequiredSegments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range contracts.RequiredSegments {
		i, seg := i, seg
		g.Go(func() error {
			part, err := s.AcquireSegment(gctx, seg, instruments[seg], at)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. 병합 + 완결성 판정
	snap := contracts.NewSnapshot("", at)
	for _, part := range parts {
		snap.Merge(part)
	}
	snap.Evaluate(s.config.Minimums)

	s.logger.WithFields(map[string]interface{}{
		"live":     snap.LiveCount,
		"backup":   snap.BackupCount,
		"complete": snap.Complete,
	}).Info("Acquisition completed")

	return snap, nil
}

// AcquireSegment resolves every instrument of one segment into an accepted quote
func (s *Strategy) AcquireSegment(ctx context.Context, seg contracts.Segment, instruments []contracts.Instrument, at time.Time) (*contracts.MarketSnapshot, error) {
	if err := s.checkSegment(seg, instruments); err != nil {
		return nil, err
	}
	source := s.sources[seg]

	ctx, span := tracing.StartSpan(ctx, "acquisition.segment")
	defer span.End()
	span.SetAttributes(
		attribute.String("segment", string(seg)),
		attribute.String("provider", source.Provider()),
		attribute.Int("instruments", len(instruments)),
	)

	// 종목별 결과 슬롯은 각 작업이 자기 인덱스에만 기록
	outcomes := make([]outcome, len(instruments))
	var g errgroup.Group
	g.SetLimit(s.config.Workers)
	for i, inst := range instruments {
		i, inst := i, inst
		g.Go(func() error {
			outcomes[i] = s.resolve(ctx, source, inst, at)
			return nil
		})
	}
	_ = g.Wait()

	part := contracts.NewSnapshot("", at)
	for i, inst := range instruments {
		part.Accept(inst, outcomes[i].quote, outcomes[i].acc)
		s.metrics.RecordAccepted(string(seg), string(outcomes[i].acc.Origin))
	}

	sum := part.Segments[seg]
	span.SetAttributes(attribute.Int("live", sum.Live), attribute.Int("backup", sum.Backup))
	return part, nil
}

func (s *Strategy) checkSegment(seg contracts.Segment, instruments []contracts.Instrument) error {
	if len(instruments) == 0 {
		return contracts.NewConfigurationError("no instruments configured for segment %s", seg)
	}
	if _, ok := s.sources[seg]; !ok {
		return contracts.NewConfigurationError("no quote source registered for segment %s", seg)
	}
	for _, inst := range instruments {
		if inst.Segment != seg {
			return contracts.NewConfigurationError("instrument %s belongs to %s, not %s", inst.Symbol, inst.Segment, seg)
		}
	}
	return nil
}

// resolve never fails: any live failure degrades to a backup quote
func (s *Strategy) resolve(ctx context.Context, source contracts.QuoteSource, inst contracts.Instrument, at time.Time) outcome {
	provider := source.Provider()

	// 실행 예산이 이미 소진됐으면 조회를 시작하지 않음
	if contracts.RunExpired(ctx) {
		return s.fallback(inst, at, contracts.FailureBudget, "run budget exhausted before fetch")
	}

	quote, err := s.fetch(ctx, source, inst)
	if err != nil {
		class := contracts.ClassOf(err)
		if contracts.RunExpired(ctx) {
			class = contracts.FailureBudget
		}
		s.metrics.RecordFetchFailure(provider, string(class))
		return s.fallback(inst, at, class, err.Error())
	}

	// 실시간 출처 태그는 실제 호출한 어댑터와 일치해야 함
	if quote.Provider() != provider {
		s.metrics.RecordValidationReject(string(inst.Segment))
		return s.fallback(inst, at, contracts.FailureValidation,
			fmt.Sprintf("source tag %q does not match provider %s", quote.Source, provider))
	}

	verdict := s.validator.Validate(quote, inst)
	if !verdict.Passed {
		s.metrics.RecordValidationReject(string(inst.Segment))
		return s.fallback(inst, at, contracts.FailureValidation, verdict.Reason)
	}

	return outcome{
		quote: quote,
		acc: contracts.Acceptance{
			Symbol:  inst.Symbol,
			Segment: inst.Segment,
			Origin:  contracts.OriginLive,
			Source:  quote.Source,
		},
	}
}

type fetchResult struct {
	quote contracts.RawQuote
	err   error
}

// fetch bounds one adapter call by the per-adapter timeout.
// ctx 를 무시하는 어댑터도 실행 전체를 멈추지 못하도록 select 로 대기
func (s *Strategy) fetch(ctx context.Context, source contracts.QuoteSource, inst contracts.Instrument) (contracts.RawQuote, error) {
	fctx, cancel := context.WithTimeout(ctx, s.config.AdapterTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: contracts.NewFetchError(source.Provider(), inst.Symbol,
					contracts.FailureMalformed, fmt.Errorf("adapter panic: %v", r))}
			}
		}()
		q, err := source.Fetch(fctx, inst)
		done <- fetchResult{quote: q, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return contracts.RawQuote{}, contracts.NewFetchError(source.Provider(), inst.Symbol, contracts.FailureNetwork, res.err)
		}
		return res.quote, res.err
	case <-fctx.Done():
		return contracts.RawQuote{}, contracts.NewFetchError(source.Provider(), inst.Symbol,
			contracts.FailureNetwork, fmt.Errorf("adapter timeout after %s: %w", s.config.AdapterTimeout, fctx.Err()))
	}
}

func (s *Strategy) fallback(inst contracts.Instrument, at time.Time, class contracts.FailureClass, reason string) outcome {
	s.logger.WithFields(map[string]interface{}{
		"symbol":  inst.Symbol,
		"segment": inst.Segment,
		"class":   class,
		"reason":  reason,
	}).Warn("Falling back to backup quote")

	return outcome{
		quote: s.backup.Generate(inst, at),
		acc: contracts.Acceptance{
			Symbol:         inst.Symbol,
			Segment:        inst.Segment,
			Origin:         contracts.OriginBackup,
			Source:         contracts.SourceBackup,
			FailureClass:   class,
			FallbackReason: reason,
		},
	}
}
