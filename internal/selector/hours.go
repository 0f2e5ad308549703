package selector

import "time"

// 한국 정규장 09:00-15:30, 미국 정규장 22:30-05:00 (KST, 서머타임 미반영)
const (
	krOpen  = 9 * 60
	krClose = 15*60 + 30
	usOpen  = 22*60 + 30
	usClose = 5 * 60
)

// InKoreaSession reports whether minute-of-day m (KST) is inside the KRX session
func InKoreaSession(m int) bool {
	return m >= krOpen && m < krClose
}

// InUSSession reports whether minute-of-day m (KST) is inside the US session window
func InUSSession(m int) bool {
	return m >= usOpen || m < usClose
}

// KoreaMarketOpen reports whether KRX is trading at t
func KoreaMarketOpen(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	if isWeekend(local.Weekday()) {
		return false
	}
	return InKoreaSession(MinuteOfDay(t, loc))
}

// USMarketOpen reports whether US exchanges are trading at t.
// 22:30 이후는 당일(월-금) 세션, 05:00 이전은 전일(월-금) 세션의 연장
func USMarketOpen(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	m := MinuteOfDay(t, loc)

	switch {
	case m >= usOpen:
		return !isWeekend(local.Weekday())
	case m < usClose:
		return !isWeekend(local.AddDate(0, 0, -1).Weekday())
	default:
		return false
	}
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
