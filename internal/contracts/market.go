package contracts

import (
	"strings"
	"time"
)

// Segment groups instruments served by one quote source
type Segment string

const (
	SegmentDomestic      Segment = "domestic"
	SegmentInternational Segment = "international"
)

// RequiredSegments are fetched on every run regardless of briefing type
var RequiredSegments = []Segment{SegmentDomestic, SegmentInternational}

// Valid reports whether s is a known segment
func (s Segment) Valid() bool {
	return s == SegmentDomestic || s == SegmentInternational
}

// InstrumentKind distinguishes indices from single equities
type InstrumentKind string

const (
	KindIndex  InstrumentKind = "index"
	KindEquity InstrumentKind = "equity"
)

// Instrument identifies one tradable index or equity
// ⭐ SSOT: 종목 정의는 유니버스 설정에서만 생성, 이후 불변
type Instrument struct {
	Symbol       string         `json:"symbol"`
	Name         string         `json:"name"`
	Segment      Segment        `json:"segment"`
	Kind         InstrumentKind `json:"kind"`
	Code         string         `json:"code"`     // 제공자 코드 (KIS 업종코드/종목코드, Yahoo 티커)
	Baseline     float64        `json:"baseline"` // 2025 기준값 (백업 생성용)
	MinPrice     float64        `json:"min_price"`
	MaxPrice     float64        `json:"max_price"`
	MaxChangePct float64        `json:"max_change_pct"`
}

// InRange reports whether price lies inside the inclusive plausible range
func (i Instrument) InRange(price float64) bool {
	return price >= i.MinPrice && price <= i.MaxPrice
}

// Source tags carried by every quote
const (
	SourceBackup     = "backup"
	liveSourcePrefix = "live:"
)

// LiveSource builds the source tag for a live provider
func LiveSource(provider string) string {
	return liveSourcePrefix + provider
}

// RawQuote is the result of one fetch attempt, never mutated after creation.
// 응답에 없는 숫자 필드는 NaN 으로 채워 검증 단계에서 거부됨
type RawQuote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source"`
}

// IsLive reports whether the quote came from a live provider
func (q RawQuote) IsLive() bool {
	return strings.HasPrefix(q.Source, liveSourcePrefix) && len(q.Source) > len(liveSourcePrefix)
}

// IsBackup reports whether the quote was synthesized
func (q RawQuote) IsBackup() bool {
	return q.Source == SourceBackup
}

// Provider returns the provider name of a live quote ("" otherwise)
func (q RawQuote) Provider() string {
	if !q.IsLive() {
		return ""
	}
	return strings.TrimPrefix(q.Source, liveSourcePrefix)
}

// Verdict is the pass/fail result of validating one quote
type Verdict struct {
	Passed bool
	Reason string
}

// Pass returns a passing verdict
func Pass() Verdict {
	return Verdict{Passed: true, Reason: "ok"}
}

// Fail returns a failing verdict with reason
func Fail(reason string) Verdict {
	return Verdict{Passed: false, Reason: reason}
}
