package contracts

import (
	"context"
	"time"
)

// QuoteSource fetches one live quote per call
// ⭐ SSOT: 세그먼트별 시세 어댑터 인터페이스 (국내/해외 두 구현)
type QuoteSource interface {
	Provider() string
	Segment() Segment
	Fetch(ctx context.Context, inst Instrument) (RawQuote, error)
}

// QuoteValidator judges a live quote against its instrument
type QuoteValidator interface {
	Validate(quote RawQuote, inst Instrument) Verdict
}

// BackupGenerator synthesizes a quote that always satisfies range constraints
type BackupGenerator interface {
	Generate(inst Instrument, at time.Time) RawQuote
}

// SnapshotArchive persists snapshots losslessly (source tags, float64 values)
type SnapshotArchive interface {
	Save(ctx context.Context, snap *MarketSnapshot) error
	Load(ctx context.Context, date time.Time, bt BriefingType) (*MarketSnapshot, error)
	Latest(ctx context.Context, bt BriefingType) (*MarketSnapshot, error)
	List(ctx context.Context) ([]ArchiveEntry, error)
	Cleanup(ctx context.Context, retentionDays int, now time.Time) (int, error)
}

// HeadlineSource supplies issue headlines for briefing text
type HeadlineSource interface {
	Name() string
	Headlines(ctx context.Context, limit int) ([]Headline, error)
}

// Publisher posts formatted briefing text
type Publisher interface {
	Publish(ctx context.Context, post Post) (*PublishResult, error)
}
