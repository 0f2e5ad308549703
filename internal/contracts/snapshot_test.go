package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstrument(symbol string, seg Segment) Instrument {
	return Instrument{Symbol: symbol, Name: symbol, Segment: seg, Kind: KindIndex, MinPrice: 1, MaxPrice: 100000, MaxChangePct: 15}
}

func TestMarketSnapshot_AcceptAndEvaluate(t *testing.T) {
	at := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	snap := NewSnapshot("run-1", at)

	snap.Accept(testInstrument("KOSPI", SegmentDomestic),
		RawQuote{Symbol: "KOSPI", Price: 2650.12, Source: LiveSource("kis")},
		Acceptance{Symbol: "KOSPI", Segment: SegmentDomestic, Origin: OriginLive, Source: LiveSource("kis")})
	snap.Accept(testInstrument("KOSDAQ", SegmentDomestic),
		RawQuote{Symbol: "KOSDAQ", Price: 850, Source: SourceBackup},
		Acceptance{Symbol: "KOSDAQ", Segment: SegmentDomestic, Origin: OriginBackup, Source: SourceBackup, FailureClass: FailureNetwork})
	snap.Accept(testInstrument("SPX", SegmentInternational),
		RawQuote{Symbol: "SPX", Price: 5800, Source: LiveSource("yahoo")},
		Acceptance{Symbol: "SPX", Segment: SegmentInternational, Origin: OriginLive, Source: LiveSource("yahoo")})

	assert.Equal(t, 2, snap.LiveCount)
	assert.Equal(t, 1, snap.BackupCount)
	assert.Equal(t, 1, snap.Segments[SegmentDomestic].Live)
	assert.Equal(t, 1, snap.Segments[SegmentDomestic].Backup)
	assert.InDelta(t, 2.0/3.0, snap.LiveRatio(), 1e-9)

	assert.True(t, snap.Evaluate(map[Segment]int{SegmentDomestic: 2, SegmentInternational: 1}))
	assert.True(t, snap.Segments[SegmentInternational].Complete)

	assert.False(t, snap.Evaluate(map[Segment]int{SegmentDomestic: 2, SegmentInternational: 2}))
	assert.False(t, snap.Segments[SegmentInternational].Complete)
	assert.Equal(t, 2, snap.Segments[SegmentInternational].Required)
}

func TestMarketSnapshot_EvaluateEmptySegment(t *testing.T) {
	snap := NewSnapshot("run-2", time.Now())
	snap.Accept(testInstrument("KOSPI", SegmentDomestic),
		RawQuote{Symbol: "KOSPI", Price: 2650, Source: SourceBackup},
		Acceptance{Symbol: "KOSPI", Segment: SegmentDomestic, Origin: OriginBackup, Source: SourceBackup})

	// 빈 세그먼트는 최소치가 0 이어도 불완전
	assert.False(t, snap.Evaluate(map[Segment]int{SegmentDomestic: 1}))
}

func TestMarketSnapshot_Merge(t *testing.T) {
	at := time.Now()
	dom := NewSnapshot("run", at)
	dom.Accept(testInstrument("KOSPI", SegmentDomestic),
		RawQuote{Symbol: "KOSPI", Price: 2650, Source: LiveSource("kis")},
		Acceptance{Symbol: "KOSPI", Segment: SegmentDomestic, Origin: OriginLive, Source: LiveSource("kis")})
	intl := NewSnapshot("run", at)
	intl.Accept(testInstrument("DOW", SegmentInternational),
		RawQuote{Symbol: "DOW", Price: 42000, Source: SourceBackup},
		Acceptance{Symbol: "DOW", Segment: SegmentInternational, Origin: OriginBackup, Source: SourceBackup})

	all := NewSnapshot("run", at)
	all.Merge(dom)
	all.Merge(intl)

	assert.Equal(t, []string{"DOW", "KOSPI"}, all.Symbols())
	assert.Equal(t, 1, all.LiveCount)
	assert.Equal(t, 1, all.BackupCount)
	assert.Len(t, all.BySegment(SegmentInternational), 1)
}

func TestMarketSnapshot_JSONPreservesSourcesAndPrecision(t *testing.T) {
	snap := NewSnapshot("run-3", time.Date(2025, 3, 4, 6, 40, 0, 123, time.UTC))
	snap.BriefingType = BriefingKRClose
	price := 2651.123456789012
	snap.Accept(testInstrument("KOSPI", SegmentDomestic),
		RawQuote{Symbol: "KOSPI", Price: price, ChangePct: -0.1 + 0.2, Source: LiveSource("kis")},
		Acceptance{Symbol: "KOSPI", Segment: SegmentDomestic, Origin: OriginLive, Source: LiveSource("kis")})
	snap.Evaluate(map[Segment]int{SegmentDomestic: 1})

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded MarketSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	q, ok := decoded.Quote("KOSPI")
	require.True(t, ok)
	assert.Equal(t, price, q.Price)
	assert.Equal(t, -0.1+0.2, q.ChangePct)
	assert.Equal(t, "live:kis", q.Source)
	assert.Equal(t, snap.Segments, decoded.Segments)
	assert.True(t, decoded.CollectedAt.Equal(snap.CollectedAt))
}
