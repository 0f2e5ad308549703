package briefing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
)

// Content is one rendered briefing
type Content struct {
	BriefingType contracts.BriefingType `json:"briefing_type"`
	Title        string                 `json:"title"`
	Main         string                 `json:"main"`
	Comments     []string               `json:"comments"`
	Hashtags     []string               `json:"hashtags"`
}

// layout describes the per-type rendering
type layout struct {
	emoji    string
	indices  []indexLine
	movers   contracts.Segment
	topN     int
	usImpact bool   // 미국장 영향 라인 (KR 프리뷰)
	issue    string // 첫 번째 이슈 라인 접두어 ("" = 생략)
	comments []string
	hashtags []string
}

type indexLine struct {
	symbol string
	label  string
}

var layouts = map[contracts.BriefingType]layout{
	contracts.BriefingUSClose: {
		emoji:    "🌅",
		indices:  []indexLine{{"SPX", "S&P500"}, {"NASDAQ", "나스닥"}, {"DOW", "다우"}},
		movers:   contracts.SegmentInternational,
		topN:     3,
		comments: []string{"💡 오늘의 관전포인트", "- %s 후 변동성 확대", "- 주요 섹터 성과 분화", "- 주요 기업 실적 발표 대기"},
		hashtags: []string{"#미국증시", "#S&P500", "#나스닥", "#글로벌마켓"},
	},
	contracts.BriefingKRPreview: {
		emoji:    "🌞",
		indices:  []indexLine{{"KOSPI", "전일 코스피"}, {"KOSDAQ", "전일 코스닥"}},
		usImpact: true,
		issue:    "주요 이슈",
		comments: []string{"📋 개장 전 체크리스트", "- 글로벌 증시 동향 체크", "- 주요 경제지표 발표 일정", "- 섹터별 투자 포인트"},
		hashtags: []string{"#한국증시", "#코스피", "#코스닥", "#오늘의시장"},
	},
	contracts.BriefingKRMidday: {
		emoji:    "☀️",
		indices:  []indexLine{{"KOSPI", "코스피"}, {"KOSDAQ", "코스닥"}},
		movers:   contracts.SegmentDomestic,
		topN:     2,
		comments: []string{"🔍 오후장 관전포인트", "- 변동성 확대 원인 분석", "- 외국인/기관 수급 동향", "- 섹터별 성과 전망"},
		hashtags: []string{"#한국증시", "#오전장", "#시황", "#투자자동향"},
	},
	contracts.BriefingKRClose: {
		emoji:    "🌆",
		indices:  []indexLine{{"KOSPI", "코스피"}, {"KOSDAQ", "코스닥"}},
		movers:   contracts.SegmentDomestic,
		topN:     2,
		comments: []string{"📈 내일장 관전포인트", "- 실적발표 예정 기업 체크", "- 정책/이벤트 영향 분석", "- 투자 전략 점검"},
		hashtags: []string{"#한국증시", "#마감", "#일일시황", "#투자전략"},
	},
	contracts.BriefingUSPreview: {
		emoji:    "🌙",
		indices:  []indexLine{{"SPX", "S&P500"}, {"NASDAQ", "나스닥"}},
		issue:    "글로벌 이슈",
		comments: []string{"🌃 오늘밤 주목 포인트", "- 주요 경제지표 발표", "- 기업 실적 발표 일정", "- 글로벌 이벤트 영향"},
		hashtags: []string{"#미국증시", "#프리마켓", "#글로벌이슈", "#실적발표"},
	},
}

// DefaultIssue is used when no headline is available
const DefaultIssue = "FOMC 결과 발표"

// Generator renders Korean briefing text from a snapshot
// ⭐ SSOT: 브리핑 문구 템플릿은 여기서만
type Generator struct{}

// NewGenerator creates a new Generator instance
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders a briefing for bt; topic "" uses the type's default topic
func (g *Generator) Generate(bt contracts.BriefingType, topic string, snap *contracts.MarketSnapshot, issues []contracts.Headline) (*Content, error) {
	l, ok := layouts[bt]
	if !ok {
		return nil, contracts.NewConfigurationError("no briefing layout for type %q", bt)
	}
	if snap == nil {
		return nil, contracts.NewConfigurationError("briefing %s requires a snapshot", bt)
	}
	if topic == "" {
		topic = bt.Topic()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", l.emoji, topic)

	// 1. 지수
	for _, idx := range l.indices {
		q, ok := snap.Quote(idx.symbol)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "• %s %spt (%+.1f%%)\n", idx.label, humanize.FormatFloat("#,###.##", q.Price), q.ChangePct)
	}

	// 2. 미국장 영향
	if l.usImpact {
		if q, ok := snap.Quote("SPX"); ok {
			fmt.Fprintf(&b, "• 미국장 영향: S&P500 %+.1f%%\n", q.ChangePct)
		}
	}

	// 3. 변동률 상위 종목
	if l.topN > 0 {
		for _, m := range topMovers(snap, l.movers, l.topN) {
			fmt.Fprintf(&b, "• %s %+.1f%%\n", m.name, m.pct)
		}
	}

	// 4. 이슈
	if l.issue != "" && len(issues) > 0 {
		fmt.Fprintf(&b, "• %s: %s\n", l.issue, issues[0].Title)
	}

	// 5. 출처 표기
	fmt.Fprintf(&b, "데이터: 실시간 %d · 백업 %d", snap.LiveCount, snap.BackupCount)

	return &Content{
		BriefingType: bt,
		Title:        bt.Title(),
		Main:         b.String(),
		Comments:     renderComments(l.comments, issues),
		Hashtags:     append([]string(nil), l.hashtags...),
	}, nil
}

func renderComments(templates []string, issues []contracts.Headline) []string {
	issue := DefaultIssue
	if len(issues) > 0 {
		issue = issues[0].Title
	}
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		if strings.Contains(t, "%s") {
			t = fmt.Sprintf(t, issue)
		}
		out = append(out, t)
	}
	return out
}

type mover struct {
	name string
	pct  float64
}

// topMovers ranks equities of seg by absolute change (symbol breaks ties)
func topMovers(snap *contracts.MarketSnapshot, seg contracts.Segment, n int) []mover {
	var movers []mover
	for _, inst := range snap.BySegment(seg) {
		if inst.Kind != contracts.KindEquity {
			continue
		}
		q, _ := snap.Quote(inst.Symbol)
		movers = append(movers, mover{name: inst.Name, pct: q.ChangePct})
	}
	sort.SliceStable(movers, func(i, j int) bool {
		return math.Abs(movers[i].pct) > math.Abs(movers[j].pct)
	})
	if len(movers) > n {
		movers = movers[:n]
	}
	return movers
}

// FormatForThreads joins body, comments and hashtags into one post
func FormatForThreads(c *Content) string {
	var b strings.Builder
	b.WriteString(c.Main)
	b.WriteString("\n\n")
	for _, comment := range c.Comments {
		b.WriteString(comment)
		b.WriteString("\n")
	}
	if len(c.Hashtags) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(c.Hashtags, " "))
	}
	return b.String()
}
