package pipeline

import (
	"context"

	"github.com/ark-poiop/dkwjawj-renew/internal/briefing"
	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/headlines"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
	"github.com/ark-poiop/dkwjawj-renew/pkg/metrics"
)

const issueLimit = 5

// Options selects the side effects of one briefing
type Options struct {
	Topic   string // "" = 유형 기본 주제
	Save    bool
	Publish bool
}

// Report is the outcome of one briefing run
type Report struct {
	RunID        string                    `json:"run_id"`
	BriefingType contracts.BriefingType    `json:"briefing_type"`
	Snapshot     *contracts.MarketSnapshot `json:"snapshot"`
	Content      *briefing.Content         `json:"content"`
	Text         string                    `json:"text"`
	Issues       []contracts.Headline      `json:"issues,omitempty"`
	Saved        bool                      `json:"saved"`
	Publish      *contracts.PublishResult  `json:"publish,omitempty"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

// Briefer runs the pipeline, renders text, archives and publishes.
// 저장/게시 실패는 경고로만 기록 (브리핑 자체는 성공)
type Briefer struct {
	pipeline  *Pipeline
	generator *briefing.Generator
	headlines *headlines.Collector
	archive   contracts.SnapshotArchive
	publisher contracts.Publisher
	metrics   *metrics.Recorder
	logger    *logger.Logger
}

// NewBriefer creates a new Briefer; headlines, archive and publisher may be nil
func NewBriefer(
	p *Pipeline,
	gen *briefing.Generator,
	hc *headlines.Collector,
	archive contracts.SnapshotArchive,
	publisher contracts.Publisher,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Briefer {
	return &Briefer{
		pipeline:  p,
		generator: gen,
		headlines: hc,
		archive:   archive,
		publisher: publisher,
		metrics:   rec,
		logger:    log.WithField("module", "briefer"),
	}
}

// Brief runs one slot end to end
func (b *Briefer) Brief(ctx context.Context, slotToken string, opts Options) (*Report, error) {
	bt, snap, err := b.pipeline.Run(ctx, slotToken)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:        snap.RunID,
		BriefingType: bt,
		Snapshot:     snap,
	}

	// 1. 이슈 (실패 시 기본 이슈)
	if b.headlines != nil {
		report.Issues = b.headlines.Collect(ctx, bt, issueLimit)
	}

	// 2. 본문
	content, err := b.generator.Generate(bt, opts.Topic, snap, report.Issues)
	if err != nil {
		return nil, err
	}
	report.Content = content
	report.Text = briefing.FormatForThreads(content)

	log := b.logger.WithFields(map[string]interface{}{
		"run_id":        snap.RunID,
		"briefing_type": bt,
	})

	// 3. 보관
	if opts.Save {
		if b.archive == nil {
			report.Warnings = append(report.Warnings, "archive not configured")
		} else if err := b.archive.Save(ctx, snap); err != nil {
			log.WithError(err).Warn("Failed to archive snapshot")
			report.Warnings = append(report.Warnings, "archive: "+err.Error())
		} else {
			report.Saved = true
		}
	}

	// 4. 게시
	if opts.Publish {
		if b.publisher == nil {
			report.Warnings = append(report.Warnings, "publisher not configured")
		} else {
			topic := opts.Topic
			if topic == "" {
				topic = bt.Topic()
			}
			res, err := b.publisher.Publish(ctx, contracts.Post{BriefingType: bt, Topic: topic, Text: report.Text})
			switch {
			case err != nil:
				b.metrics.RecordPublish("failed")
				log.WithError(err).Warn("Failed to publish briefing")
				report.Warnings = append(report.Warnings, "publish: "+err.Error())
			case res.Simulated:
				b.metrics.RecordPublish("simulated")
				report.Publish = res
			default:
				b.metrics.RecordPublish("posted")
				report.Publish = res
			}
		}
	}

	return report, nil
}

// Pipeline exposes the underlying pipeline
func (b *Briefer) Pipeline() *Pipeline {
	return b.pipeline
}
