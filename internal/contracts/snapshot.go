package contracts

import (
	"sort"
	"time"
)

// Origin tells whether an accepted quote is live or synthesized
type Origin string

const (
	OriginLive   Origin = "live"
	OriginBackup Origin = "backup"
)

// Acceptance records how one instrument's quote was accepted
type Acceptance struct {
	Symbol         string       `json:"symbol"`
	Segment        Segment      `json:"segment"`
	Origin         Origin       `json:"origin"`
	Source         string       `json:"source"`
	FailureClass   FailureClass `json:"failure_class,omitempty"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
}

// SegmentSummary holds per-segment counts
type SegmentSummary struct {
	Instruments int  `json:"instruments"`
	Live        int  `json:"live"`
	Backup      int  `json:"backup"`
	Required    int  `json:"required"`
	Complete    bool `json:"complete"`
}

// MarketSnapshot is the unit handed to the briefing generator
// ⭐ SSOT: acquisition 이 조립, pipeline 이 식별자 부여 후에는 읽기 전용
type MarketSnapshot struct {
	RunID        string                     `json:"run_id"`
	BriefingType BriefingType               `json:"briefing_type,omitempty"`
	CollectedAt  time.Time                  `json:"collected_at"`
	Instruments  map[string]Instrument      `json:"instruments"`
	Quotes       map[string]RawQuote        `json:"quotes"`
	Acceptances  map[string]Acceptance      `json:"acceptances"`
	Segments     map[Segment]SegmentSummary `json:"segments"`
	LiveCount    int                        `json:"live_count"`
	BackupCount  int                        `json:"backup_count"`
	Complete     bool                       `json:"complete"`
}

// NewSnapshot creates an empty snapshot for one run
func NewSnapshot(runID string, at time.Time) *MarketSnapshot {
	return &MarketSnapshot{
		RunID:       runID,
		CollectedAt: at,
		Instruments: make(map[string]Instrument),
		Quotes:      make(map[string]RawQuote),
		Acceptances: make(map[string]Acceptance),
		Segments:    make(map[Segment]SegmentSummary),
	}
}

// Accept folds one accepted quote into the snapshot.
// 단일 작성자(acquisition 병합 단계)만 호출
func (s *MarketSnapshot) Accept(inst Instrument, quote RawQuote, acc Acceptance) {
	s.Instruments[inst.Symbol] = inst
	s.Quotes[inst.Symbol] = quote
	s.Acceptances[inst.Symbol] = acc

	sum := s.Segments[inst.Segment]
	sum.Instruments++
	if acc.Origin == OriginLive {
		sum.Live++
		s.LiveCount++
	} else {
		sum.Backup++
		s.BackupCount++
	}
	s.Segments[inst.Segment] = sum
}

// Merge folds another partial snapshot into s
func (s *MarketSnapshot) Merge(part *MarketSnapshot) {
	for _, symbol := range part.Symbols() {
		s.Accept(part.Instruments[symbol], part.Quotes[symbol], part.Acceptances[symbol])
	}
}

// Evaluate computes completeness against per-segment minimums
func (s *MarketSnapshot) Evaluate(minimums map[Segment]int) bool {
	complete := true
	for _, seg := range RequiredSegments {
		sum := s.Segments[seg]
		sum.Required = minimums[seg]
		sum.Complete = sum.Instruments > 0 && sum.Instruments >= sum.Required
		s.Segments[seg] = sum
		if !sum.Complete {
			complete = false
		}
	}
	s.Complete = complete
	return complete
}

// Quote returns the accepted quote for symbol
func (s *MarketSnapshot) Quote(symbol string) (RawQuote, bool) {
	q, ok := s.Quotes[symbol]
	return q, ok
}

// Symbols returns accepted symbols in stable order
func (s *MarketSnapshot) Symbols() []string {
	out := make([]string, 0, len(s.Quotes))
	for sym := range s.Quotes {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// BySegment returns instruments of one segment in universe order (by symbol)
func (s *MarketSnapshot) BySegment(seg Segment) []Instrument {
	var out []Instrument
	for _, sym := range s.Symbols() {
		if inst := s.Instruments[sym]; inst.Segment == seg {
			out = append(out, inst)
		}
	}
	return out
}

// LiveRatio returns the share of live quotes (0.0 ~ 1.0)
func (s *MarketSnapshot) LiveRatio() float64 {
	total := s.LiveCount + s.BackupCount
	if total == 0 {
		return 0.0
	}
	return float64(s.LiveCount) / float64(total)
}
