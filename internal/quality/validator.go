package quality

import (
	"fmt"
	"math"
	"strings"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
)

// Config maps each segment to the providers allowed to serve it
type Config struct {
	SegmentProviders map[contracts.Segment][]string `yaml:"segment_providers"`
}

// Validator judges live quotes against configured bounds
// ⭐ SSOT: 시세 검증은 여기서만 (순수 함수, 부작용 없음)
type Validator struct {
	config Config
}

// NewValidator creates a new Validator instance
func NewValidator(config Config) *Validator {
	return &Validator{config: config}
}

// Validate never panics and always returns a verdict.
// 누락 필드(NaN, 빈 심볼, 0 시각)는 예외가 아닌 실패 판정
func (v *Validator) Validate(q contracts.RawQuote, inst contracts.Instrument) contracts.Verdict {
	// 1. 식별/출처
	if q.Symbol == "" {
		return contracts.Fail("missing symbol")
	}
	if q.Symbol != inst.Symbol {
		return contracts.Fail(fmt.Sprintf("symbol mismatch: quote %s for instrument %s", q.Symbol, inst.Symbol))
	}
	if q.FetchedAt.IsZero() {
		return contracts.Fail("missing fetch timestamp")
	}
	if verdict := v.checkSource(q, inst); !verdict.Passed {
		return verdict
	}

	return CheckBounds(q, inst)
}

// CheckBounds applies the numeric checks only (finite values, price range, change cap).
// 출처와 무관하게 백업 시세도 같은 범위를 만족해야 함
func CheckBounds(q contracts.RawQuote, inst contracts.Instrument) contracts.Verdict {
	// 2. 유한성
	if !finite(q.Price) {
		return contracts.Fail(fmt.Sprintf("price is not a finite number: %v", q.Price))
	}
	if !finite(q.ChangePct) {
		return contracts.Fail(fmt.Sprintf("change_pct is not a finite number: %v", q.ChangePct))
	}

	// 3. 범위 (경계 포함)
	if !inst.InRange(q.Price) {
		return contracts.Fail(fmt.Sprintf("price %.4f outside [%.2f, %.2f]", q.Price, inst.MinPrice, inst.MaxPrice))
	}

	// 4. 등락률 (서킷브레이커 유사 상한)
	if math.Abs(q.ChangePct) > inst.MaxChangePct {
		return contracts.Fail(fmt.Sprintf("change %.2f%% exceeds ±%.2f%%", q.ChangePct, inst.MaxChangePct))
	}

	return contracts.Pass()
}

func (v *Validator) checkSource(q contracts.RawQuote, inst contracts.Instrument) contracts.Verdict {
	// 검증 대상은 어댑터 출력뿐: backup 태그는 실시간 경로에서 허용하지 않음
	if q.IsBackup() {
		return contracts.Fail("backup-tagged quote on the live path")
	}
	if !q.IsLive() {
		return contracts.Fail(fmt.Sprintf("unknown source tag %q", q.Source))
	}

	allowed := v.config.SegmentProviders[inst.Segment]
	for _, p := range allowed {
		if p == q.Provider() {
			return contracts.Pass()
		}
	}
	return contracts.Fail(fmt.Sprintf("source %s not allowed for %s segment (allowed: %s)",
		q.Source, inst.Segment, strings.Join(allowed, ",")))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
