package backup

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/selector"
)

// 변동 폭: 해당 시장 정규장 중 ±1.5%, 그 외 ±0.5%
const (
	sessionAmplitude  = 0.015
	offHoursAmplitude = 0.005
)

// Generator produces deterministic synthetic quotes around 2025 baselines
// ⭐ SSOT: 백업 시세 생성 (외부 의존 없음, 항상 성공)
type Generator struct {
	loc *time.Location
}

// NewGenerator creates a generator that reads time-of-day in loc
func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = selector.KST
	}
	return &Generator{loc: loc}
}

// Generate never fails and never consults randomness.
// price = baseline * (1 + A * sin(2π·m/1440 + φ(symbol)))
func (g *Generator) Generate(inst contracts.Instrument, at time.Time) contracts.RawQuote {
	m := selector.MinuteOfDay(at, g.loc)

	amp := amplitude(inst.Segment, m)
	if limit := inst.MaxChangePct / 100; limit > 0 && amp > limit {
		amp = limit
	}

	angle := 2*math.Pi*float64(m)/1440 + phase(inst.Symbol)
	price := round2(inst.Baseline * (1 + amp*math.Sin(angle)))
	price = clamp(price, inst.MinPrice, inst.MaxPrice)

	change := round2(price - inst.Baseline)
	changePct := 0.0
	if inst.Baseline > 0 {
		changePct = round2(change / inst.Baseline * 100)
	}

	return contracts.RawQuote{
		Symbol:    inst.Symbol,
		Price:     price,
		Change:    change,
		ChangePct: changePct,
		FetchedAt: at,
		Source:    contracts.SourceBackup,
	}
}

func amplitude(seg contracts.Segment, minute int) float64 {
	switch seg {
	case contracts.SegmentDomestic:
		if selector.InKoreaSession(minute) {
			return sessionAmplitude
		}
	case contracts.SegmentInternational:
		if selector.InUSSession(minute) {
			return sessionAmplitude
		}
	}
	return offHoursAmplitude
}

// phase spreads instruments so they do not move in lockstep
func phase(symbol string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return 2 * math.Pi * float64(h.Sum32()) / float64(math.MaxUint32)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
