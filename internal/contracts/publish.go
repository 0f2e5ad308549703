package contracts

import (
	"errors"
	"time"
)

// ErrSnapshotNotFound is returned by archives when nothing is stored
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ArchiveEntry describes one stored snapshot
type ArchiveEntry struct {
	Date         string       `json:"date"` // YYYY-MM-DD (KST)
	BriefingType BriefingType `json:"briefing_type"`
	CollectedAt  time.Time    `json:"collected_at"`
	LiveCount    int          `json:"live_count"`
	BackupCount  int          `json:"backup_count"`
	Location     string       `json:"location"` // 파일 경로 또는 테이블 키
}

// Headline is one news item used as a briefing issue
type Headline struct {
	Title     string    `json:"title"`
	Link      string    `json:"link,omitempty"`
	Source    string    `json:"source"`
	Segment   Segment   `json:"segment"`
	Published time.Time `json:"published,omitempty"`
}

// Post is the formatted text handed to a publisher
type Post struct {
	BriefingType BriefingType `json:"briefing_type"`
	Topic        string       `json:"topic"`
	Text         string       `json:"text"`
}

// PublishResult describes a (possibly simulated) post
type PublishResult struct {
	PostID       string       `json:"post_id"`
	BriefingType BriefingType `json:"briefing_type"`
	Simulated    bool         `json:"simulated"`
	PublishedAt  time.Time    `json:"published_at"`
	Characters   int          `json:"characters"`
}
