package selector

import (
	"strings"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
)

// KST is the fallback reference zone when tzdata is unavailable
var KST = time.FixedZone("KST", 9*60*60)

// Selector maps an instant to a briefing type in a fixed reference zone.
// 호스트 시간대와 무관하게 항상 loc 으로 변환 후 판정
type Selector struct {
	loc *time.Location
}

// New creates a Selector bound to loc (nil selects KST)
func New(loc *time.Location) *Selector {
	if loc == nil {
		loc = KST
	}
	return &Selector{loc: loc}
}

// Location returns the reference zone
func (s *Selector) Location() *time.Location {
	return s.loc
}

// Select classifies now into one of the five briefing types
func (s *Selector) Select(now time.Time) contracts.BriefingType {
	return Classify(now, s.loc)
}

// Classify is the pure, total time-of-day classifier (half-open bands).
//
//	[00:00, 05:00) us_close    미국장 마감 직후
//	[05:00, 09:00) kr_preview  개장 전
//	[09:00, 15:30) kr_midday   정규장
//	[15:30, 22:00) kr_close    장 마감 후
//	[22:00, 24:00) us_preview  미국장 개장 전후
func Classify(now time.Time, loc *time.Location) contracts.BriefingType {
	m := MinuteOfDay(now, loc)

	switch {
	case m < 5*60:
		return contracts.BriefingUSClose
	case m < 9*60:
		return contracts.BriefingKRPreview
	case m < 15*60+30:
		return contracts.BriefingKRMidday
	case m < 22*60:
		return contracts.BriefingKRClose
	default:
		return contracts.BriefingUSPreview
	}
}

// MinuteOfDay returns minutes since midnight of t in loc
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// Slot is a requested time slot: a fixed schedule token or the dynamic "now"
type Slot struct {
	Token   string
	Dynamic bool
	Fixed   contracts.BriefingType
}

const (
	TokenNow     = "now"
	TokenCurrent = "current"
)

// ParseSlot resolves a requested slot token.
// 알 수 없는 토큰은 ConfigurationError
func ParseSlot(token string) (Slot, error) {
	t := strings.TrimSpace(strings.ToLower(token))

	switch t {
	case TokenNow, TokenCurrent:
		return Slot{Token: TokenNow, Dynamic: true}, nil
	}

	for _, bt := range contracts.AllBriefingTypes() {
		if t == bt.Slot() || t == string(bt) {
			return Slot{Token: bt.Slot(), Fixed: bt}, nil
		}
	}

	return Slot{}, contracts.NewConfigurationError(
		"unknown time slot %q (expected one of 07:00, 08:00, 12:00, 15:40, 19:00, now)", token)
}

// Resolve returns the briefing type for slot; explicit slots bypass the clock
func (s *Selector) Resolve(slot Slot, now time.Time) contracts.BriefingType {
	if !slot.Dynamic {
		return slot.Fixed
	}
	return s.Select(now)
}

// SlotTokens returns the fixed schedule tokens in order
func SlotTokens() []string {
	types := contracts.AllBriefingTypes()
	out := make([]string, 0, len(types))
	for _, bt := range types {
		out = append(out, bt.Slot())
	}
	return out
}
