package threads

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

const historyLimit = 100

// Record is one entry of the publish history
type Record struct {
	BriefingType contracts.BriefingType   `json:"briefing_type"`
	Topic        string                   `json:"topic"`
	Result       *contracts.PublishResult `json:"result,omitempty"`
	Error        string                   `json:"error,omitempty"`
	At           time.Time                `json:"at"`
}

// Stats summarises the publish history
type Stats struct {
	Total     int                            `json:"total"`
	Posted    int                            `json:"posted"`
	Simulated int                            `json:"simulated"`
	Failed    int                            `json:"failed"`
	ByType    map[contracts.BriefingType]int `json:"by_type"`
}

// Publisher posts briefings to Threads, or simulates when not configured
type Publisher struct {
	client  *Client
	dryRun  bool
	logger  *logger.Logger
	now     func() time.Time
	mu      sync.Mutex
	history []Record
}

// NewPublisher creates a new Publisher instance
func NewPublisher(client *Client, dryRun bool, log *logger.Logger) *Publisher {
	return &Publisher{
		client: client,
		dryRun: dryRun,
		logger: log.WithField("module", "threads"),
		now:    time.Now,
	}
}

// Simulated reports whether posts are only logged
func (p *Publisher) Simulated() bool {
	return p.dryRun || p.client == nil || !p.client.Configured()
}

// Publish posts text in two steps (container, publish).
// 토큰이 없거나 dry-run 이면 시뮬레이션 ID 반환
func (p *Publisher) Publish(ctx context.Context, post contracts.Post) (*contracts.PublishResult, error) {
	text := truncate(post.Text, MaxTextLength)
	now := p.now()

	result := &contracts.PublishResult{
		BriefingType: post.BriefingType,
		PublishedAt:  now,
		Characters:   utf8.RuneCountInString(text),
	}

	if p.Simulated() {
		result.Simulated = true
		result.PostID = fmt.Sprintf("simulated-%s-%d", post.BriefingType, now.Unix())
		p.logger.WithFields(map[string]interface{}{
			"briefing_type": post.BriefingType,
			"characters":    result.Characters,
		}).Info("Simulated post")
		p.logger.Debug(text)
		p.record(post, result, nil)
		return result, nil
	}

	creationID, err := p.client.CreateTextContainer(ctx, text)
	if err != nil {
		err = fmt.Errorf("create container: %w", err)
		p.record(post, nil, err)
		return nil, err
	}

	postID, err := p.client.PublishContainer(ctx, creationID)
	if err != nil {
		err = fmt.Errorf("publish container %s: %w", creationID, err)
		p.record(post, nil, err)
		return nil, err
	}

	result.PostID = postID
	p.logger.WithFields(map[string]interface{}{
		"briefing_type": post.BriefingType,
		"post_id":       postID,
	}).Info("Published post")
	p.record(post, result, nil)
	return result, nil
}

func (p *Publisher) record(post contracts.Post, result *contracts.PublishResult, err error) {
	rec := Record{
		BriefingType: post.BriefingType,
		Topic:        post.Topic,
		Result:       result,
		At:           p.now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, rec)
	if len(p.history) > historyLimit {
		p.history = p.history[len(p.history)-historyLimit:]
	}
}

// History returns a copy of the publish history (oldest first)
func (p *Publisher) History() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Record(nil), p.history...)
}

// Stats summarises the publish history
func (p *Publisher) Stats() Stats {
	stats := Stats{ByType: make(map[contracts.BriefingType]int)}
	for _, rec := range p.History() {
		stats.Total++
		stats.ByType[rec.BriefingType]++
		switch {
		case rec.Error != "":
			stats.Failed++
		case rec.Result != nil && rec.Result.Simulated:
			stats.Simulated++
		default:
			stats.Posted++
		}
	}
	return stats
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
