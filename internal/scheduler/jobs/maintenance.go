package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// ArchiveCleanupJob removes snapshots past the retention window
type ArchiveCleanupJob struct {
	archive       contracts.SnapshotArchive
	retentionDays int
	now           func() time.Time
	logger        *logger.Logger
}

// NewArchiveCleanupJob creates a new archive cleanup job
func NewArchiveCleanupJob(archive contracts.SnapshotArchive, retentionDays int, log *logger.Logger) *ArchiveCleanupJob {
	return &ArchiveCleanupJob{
		archive:       archive,
		retentionDays: retentionDays,
		now:           time.Now,
		logger:        log,
	}
}

// Name returns the job name
func (j *ArchiveCleanupJob) Name() string {
	return "archive_cleanup"
}

// Schedule returns the cron schedule (every day at 03:00 KST)
func (j *ArchiveCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the archive cleanup
func (j *ArchiveCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled archive cleanup")

	removed, err := j.archive.Cleanup(ctx, j.retentionDays, j.now())
	if err != nil {
		return fmt.Errorf("archive cleanup: %w", err)
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Archive cleanup completed")
	}

	return nil
}
