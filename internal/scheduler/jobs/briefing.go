package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/pipeline"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// Briefer is the part of pipeline.Briefer a slot job needs
type Briefer interface {
	Brief(ctx context.Context, slotToken string, opts pipeline.Options) (*pipeline.Report, error)
}

// BriefingJob runs one fixed slot every day
// ⭐ SSOT: 슬롯별 브리핑 스케줄은 이 Job에서만
type BriefingJob struct {
	briefingType contracts.BriefingType
	briefer      Briefer
	opts         pipeline.Options
	logger       *logger.Logger
}

// NewBriefingJob creates a job for bt
func NewBriefingJob(bt contracts.BriefingType, briefer Briefer, opts pipeline.Options, log *logger.Logger) *BriefingJob {
	return &BriefingJob{
		briefingType: bt,
		briefer:      briefer,
		opts:         opts,
		logger:       log,
	}
}

// NewBriefingJobs creates the five daily slot jobs in schedule order
func NewBriefingJobs(briefer Briefer, opts pipeline.Options, log *logger.Logger) []*BriefingJob {
	types := contracts.AllBriefingTypes()
	out := make([]*BriefingJob, 0, len(types))
	for _, bt := range types {
		out = append(out, NewBriefingJob(bt, briefer, opts, log))
	}
	return out
}

// Name returns the job name
func (j *BriefingJob) Name() string {
	return "briefing_" + string(j.briefingType)
}

// Schedule returns the cron schedule derived from the slot token ("15:40" → "0 40 15 * * *")
func (j *BriefingJob) Schedule() string {
	return slotCron(j.briefingType.Slot())
}

// Run executes the briefing for the fixed slot
func (j *BriefingJob) Run(ctx context.Context) error {
	report, err := j.briefer.Brief(ctx, j.briefingType.Slot(), j.opts)
	if err != nil {
		return fmt.Errorf("briefing %s: %w", j.briefingType, err)
	}

	fields := map[string]interface{}{
		"job":      j.Name(),
		"run_id":   report.RunID,
		"live":     report.Snapshot.LiveCount,
		"backup":   report.Snapshot.BackupCount,
		"saved":    report.Saved,
		"warnings": len(report.Warnings),
	}
	if report.Publish != nil {
		fields["post_id"] = report.Publish.PostID
	}
	j.logger.WithFields(fields).Info("Scheduled briefing completed")
	return nil
}

func slotCron(slot string) string {
	parts := strings.SplitN(slot, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return ""
	}
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}
