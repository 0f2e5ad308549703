package contracts

// BriefingType is the enumerated variant of summary content
type BriefingType string

const (
	BriefingUSClose   BriefingType = "us_close"
	BriefingKRPreview BriefingType = "kr_preview"
	BriefingKRMidday  BriefingType = "kr_midday"
	BriefingKRClose   BriefingType = "kr_close"
	BriefingUSPreview BriefingType = "us_preview"
)

type briefingMeta struct {
	slot  string
	title string
	topic string
}

var briefingTypes = map[BriefingType]briefingMeta{
	BriefingUSClose:   {slot: "07:00", title: "미국 마켓 마감 브리핑", topic: "미국 증시 마감 요약"},
	BriefingKRPreview: {slot: "08:00", title: "오늘의 한국시장 프리뷰", topic: "오늘의 한국시장 전망"},
	BriefingKRMidday:  {slot: "12:00", title: "한국시장 시황 중간 브리핑", topic: "오전장 시황 요약"},
	BriefingKRClose:   {slot: "15:40", title: "한국시장 마감 브리핑", topic: "한국시장 마감 요약"},
	BriefingUSPreview: {slot: "19:00", title: "미국 마켓 프리뷰", topic: "미국장 개장 전 체크"},
}

// AllBriefingTypes returns the five variants in schedule order
func AllBriefingTypes() []BriefingType {
	return []BriefingType{
		BriefingUSClose,
		BriefingKRPreview,
		BriefingKRMidday,
		BriefingKRClose,
		BriefingUSPreview,
	}
}

// Valid reports whether b is a known variant
func (b BriefingType) Valid() bool {
	_, ok := briefingTypes[b]
	return ok
}

// Slot returns the fixed schedule token (KST) of the variant
func (b BriefingType) Slot() string {
	return briefingTypes[b].slot
}

// Title returns the display title
func (b BriefingType) Title() string {
	return briefingTypes[b].title
}

// Topic returns the default topic line
func (b BriefingType) Topic() string {
	return briefingTypes[b].topic
}

// Emphasis returns the segment the variant focuses on
func (b BriefingType) Emphasis() Segment {
	switch b {
	case BriefingUSClose, BriefingUSPreview:
		return SegmentInternational
	default:
		return SegmentDomestic
	}
}
