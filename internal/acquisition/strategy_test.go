package acquisition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ark-poiop/dkwjawj-renew/internal/backup"
	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/quality"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/metrics"
)

var runAt = time.Date(2025, 3, 14, 10, 0, 0, 0, time.FixedZone("KST", 9*60*60))

// fakeSource answers every fetch through fn
type fakeSource struct {
	provider string
	segment  contracts.Segment
	fn       func(ctx context.Context, inst contracts.Instrument) (contracts.RawQuote, error)
	calls    int32
}

func (f *fakeSource) Provider() string           { return f.provider }
func (f *fakeSource) Segment() contracts.Segment { return f.segment }
func (f *fakeSource) Fetch(ctx context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx, inst)
}

func liveQuote(provider string) func(context.Context, contracts.Instrument) (contracts.RawQuote, error) {
	return func(_ context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
		return contracts.RawQuote{
			Symbol:    inst.Symbol,
			Price:     inst.Baseline * 1.01,
			Change:    inst.Baseline * 0.01,
			ChangePct: 1.0,
			FetchedAt: runAt,
			Source:    contracts.LiveSource(provider),
		}, nil
	}
}

func failWith(provider string, class contracts.FailureClass) func(context.Context, contracts.Instrument) (contracts.RawQuote, error) {
	return func(_ context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
		return contracts.RawQuote{}, contracts.NewFetchError(provider, inst.Symbol, class, errors.New("boom"))
	}
}

func instrument(symbol string, seg contracts.Segment, baseline float64) contracts.Instrument {
	return contracts.Instrument{
		Symbol:       symbol,
		Name:         symbol,
		Segment:      seg,
		Kind:         contracts.KindEquity,
		Code:         symbol,
		Baseline:     baseline,
		MinPrice:     baseline * 0.5,
		MaxPrice:     baseline * 1.5,
		MaxChangePct: 30,
	}
}

func fixtureUniverse() map[contracts.Segment][]contracts.Instrument {
	return map[contracts.Segment][]contracts.Instrument{
		contracts.SegmentDomestic: {
			instrument("KOSPI", contracts.SegmentDomestic, 3400),
			instrument("005930", contracts.SegmentDomestic, 70000),
			instrument("000660", contracts.SegmentDomestic, 260000),
		},
		contracts.SegmentInternational: {
			instrument("SPX", contracts.SegmentInternational, 5800),
			instrument("AAPL", contracts.SegmentInternational, 230),
		},
	}
}

func newStrategy(domestic, international *fakeSource, rec *metrics.Recorder) *Strategy {
	validator := quality.NewValidator(quality.Config{
		SegmentProviders: map[contracts.Segment][]string{
			contracts.SegmentDomestic:      {"kis"},
			contracts.SegmentInternational: {"yahoo"},
		},
	})
	cfg := Config{
		Workers:        2,
		AdapterTimeout: 200 * time.Millisecond,
		Minimums: map[contracts.Segment]int{
			contracts.SegmentDomestic:      2,
			contracts.SegmentInternational: 2,
		},
	}
	return NewStrategy(
		[]contracts.QuoteSource{domestic, international},
		validator,
		backup.NewGenerator(nil),
		rec,
		cfg,
		logger.Nop(),
	)
}

func TestAcquire_AllLive(t *testing.T) {
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: liveQuote("kis")}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	snap, err := newStrategy(dom, intl, nil).Acquire(context.Background(), fixtureUniverse(), runAt)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.LiveCount)
	assert.Equal(t, 0, snap.BackupCount)
	assert.True(t, snap.Complete)
	assert.Equal(t, "live:kis", snap.Quotes["005930"].Source)
	assert.Equal(t, "live:yahoo", snap.Quotes["AAPL"].Source)
	assert.Equal(t, 1.0, snap.LiveRatio())
}

func TestAcquire_DomesticDownInternationalUp(t *testing.T) {
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: failWith("kis", contracts.FailureNetwork)}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}
	rec := metrics.New()

	snap, err := newStrategy(dom, intl, rec).Acquire(context.Background(), fixtureUniverse(), runAt)
	require.NoError(t, err)

	domSum := snap.Segments[contracts.SegmentDomestic]
	assert.Equal(t, 3, domSum.Backup)
	assert.Equal(t, 0, domSum.Live)

	intlSum := snap.Segments[contracts.SegmentInternational]
	assert.Equal(t, 2, intlSum.Live)
	assert.Equal(t, 0, intlSum.Backup)

	assert.True(t, snap.Complete)
	for _, inst := range snap.BySegment(contracts.SegmentDomestic) {
		acc := snap.Acceptances[inst.Symbol]
		assert.Equal(t, contracts.OriginBackup, acc.Origin)
		assert.Equal(t, contracts.FailureNetwork, acc.FailureClass)
		assert.True(t, snap.Quotes[inst.Symbol].IsBackup())
	}
}

func TestAcquire_FailureClasses(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(context.Context, contracts.Instrument) (contracts.RawQuote, error)
		class contracts.FailureClass
	}{
		{name: "auth", fn: failWith("kis", contracts.FailureAuth), class: contracts.FailureAuth},
		{name: "rate limit", fn: failWith("kis", contracts.FailureRateLimit), class: contracts.FailureRateLimit},
		{name: "malformed", fn: failWith("kis", contracts.FailureMalformed), class: contracts.FailureMalformed},
		{
			name: "unclassified error",
			fn: func(context.Context, contracts.Instrument) (contracts.RawQuote, error) {
				return contracts.RawQuote{}, errors.New("connection reset")
			},
			class: contracts.FailureNetwork,
		},
		{
			name: "out of range",
			fn: func(_ context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
				q, _ := liveQuote("kis")(context.Background(), inst)
				q.Price = inst.MaxPrice * 2
				return q, nil
			},
			class: contracts.FailureValidation,
		},
		{
			name:  "wrong provider",
			fn:    liveQuote("yahoo"),
			class: contracts.FailureValidation,
		},
		{
			name: "backup-tagged live quote",
			fn: func(_ context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
				q, _ := liveQuote("kis")(context.Background(), inst)
				q.Source = contracts.SourceBackup
				return q, nil
			},
			class: contracts.FailureValidation,
		},
		{
			name: "panicking adapter",
			fn: func(context.Context, contracts.Instrument) (contracts.RawQuote, error) {
				panic("nil map")
			},
			class: contracts.FailureMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: tt.fn}
			intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

			snap, err := newStrategy(dom, intl, nil).Acquire(context.Background(), fixtureUniverse(), runAt)
			require.NoError(t, err)

			acc := snap.Acceptances["005930"]
			assert.Equal(t, contracts.OriginBackup, acc.Origin)
			assert.Equal(t, contracts.SourceBackup, acc.Source)
			assert.Zero(t, snap.Segments[contracts.SegmentDomestic].Live)
			assert.Equal(t, tt.class, acc.FailureClass)
			assert.NotEmpty(t, acc.FallbackReason)
			assert.Equal(t, contracts.SourceBackup, snap.Quotes["005930"].Source)
		})
	}
}

func TestAcquire_PerInstrumentIsolation(t *testing.T) {
	dom := &fakeSource{
		provider: "kis",
		segment:  contracts.SegmentDomestic,
		fn: func(ctx context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
			if inst.Symbol == "000660" {
				return failWith("kis", contracts.FailureRateLimit)(ctx, inst)
			}
			return liveQuote("kis")(ctx, inst)
		},
	}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	snap, err := newStrategy(dom, intl, nil).Acquire(context.Background(), fixtureUniverse(), runAt)
	require.NoError(t, err)

	assert.Equal(t, contracts.OriginBackup, snap.Acceptances["000660"].Origin)
	assert.Equal(t, contracts.OriginLive, snap.Acceptances["005930"].Origin)
	assert.Equal(t, contracts.OriginLive, snap.Acceptances["KOSPI"].Origin)
	assert.Equal(t, 4, snap.LiveCount)
	assert.Equal(t, 1, snap.BackupCount)
}

func TestAcquire_AdapterIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	dom := &fakeSource{
		provider: "kis",
		segment:  contracts.SegmentDomestic,
		fn: func(_ context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
			<-release
			return contracts.RawQuote{}, nil
		},
	}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	start := time.Now()
	snap, err := newStrategy(dom, intl, nil).Acquire(context.Background(), fixtureUniverse(), runAt)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 3, snap.Segments[contracts.SegmentDomestic].Backup)
	assert.Equal(t, contracts.FailureNetwork, snap.Acceptances["KOSPI"].FailureClass)
}

func TestAcquire_BudgetExhausted(t *testing.T) {
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: liveQuote("kis")}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	snap, err := newStrategy(dom, intl, nil).Acquire(ctx, fixtureUniverse(), runAt)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.LiveCount)
	assert.Equal(t, 5, snap.BackupCount)
	assert.True(t, snap.Complete)
	assert.Equal(t, int32(0), atomic.LoadInt32(&dom.calls))
	for _, acc := range snap.Acceptances {
		assert.Equal(t, contracts.FailureBudget, acc.FailureClass)
	}
}

func TestAcquire_BudgetExpiresMidFetch(t *testing.T) {
	slow := func(ctx context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
		<-ctx.Done()
		return contracts.RawQuote{}, contracts.NewFetchError("kis", inst.Symbol, contracts.FailureNetwork, ctx.Err())
	}
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: slow}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	snap, err := newStrategy(dom, intl, nil).Acquire(ctx, fixtureUniverse(), runAt)
	require.NoError(t, err)

	for _, inst := range snap.BySegment(contracts.SegmentDomestic) {
		assert.Equal(t, contracts.FailureBudget, snap.Acceptances[inst.Symbol].FailureClass)
	}
	assert.Equal(t, 2, snap.Segments[contracts.SegmentInternational].Live)
}

func TestAcquire_EmptySegment(t *testing.T) {
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: liveQuote("kis")}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	universe := fixtureUniverse()
	universe[contracts.SegmentInternational] = nil

	snap, err := newStrategy(dom, intl, nil).Acquire(context.Background(), universe, runAt)
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, contracts.IsConfigurationError(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&dom.calls))
}

func TestAcquire_MissingSource(t *testing.T) {
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: liveQuote("kis")}
	s := NewStrategy([]contracts.QuoteSource{dom}, quality.NewValidator(quality.Config{}),
		backup.NewGenerator(nil), nil, Config{Workers: 1, AdapterTimeout: time.Second}, logger.Nop())

	_, err := s.Acquire(context.Background(), fixtureUniverse(), runAt)
	assert.True(t, contracts.IsConfigurationError(err))
}

func TestAcquireSegment_MisplacedInstrument(t *testing.T) {
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: liveQuote("kis")}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	mixed := []contracts.Instrument{instrument("AAPL", contracts.SegmentInternational, 230)}
	_, err := newStrategy(dom, intl, nil).AcquireSegment(context.Background(), contracts.SegmentDomestic, mixed, runAt)
	assert.True(t, contracts.IsConfigurationError(err))
}

func TestAcquireSegment_WorkerLimit(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	dom := &fakeSource{
		provider: "kis",
		segment:  contracts.SegmentDomestic,
		fn: func(ctx context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return liveQuote("kis")(ctx, inst)
		},
	}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	var many []contracts.Instrument
	for _, sym := range []string{"A1", "A2", "A3", "A4", "A5", "A6"} {
		many = append(many, instrument(sym, contracts.SegmentDomestic, 1000))
	}

	part, err := newStrategy(dom, intl, nil).AcquireSegment(context.Background(), contracts.SegmentDomestic, many, runAt)
	require.NoError(t, err)

	assert.Equal(t, 6, part.Segments[contracts.SegmentDomestic].Live)
	assert.LessOrEqual(t, peak, 2)
}

func TestAcquire_Incomplete(t *testing.T) {
	dom := &fakeSource{provider: "kis", segment: contracts.SegmentDomestic, fn: liveQuote("kis")}
	intl := &fakeSource{provider: "yahoo", segment: contracts.SegmentInternational, fn: liveQuote("yahoo")}

	universe := fixtureUniverse()
	universe[contracts.SegmentInternational] = universe[contracts.SegmentInternational][:1]

	snap, err := newStrategy(dom, intl, nil).Acquire(context.Background(), universe, runAt)
	require.NoError(t, err)

	assert.False(t, snap.Complete)
	assert.False(t, snap.Segments[contracts.SegmentInternational].Complete)
	assert.True(t, snap.Segments[contracts.SegmentDomestic].Complete)
}
