package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/pipeline"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

type recordingBriefer struct {
	tokens []string
	err    error
}

func (b *recordingBriefer) Brief(ctx context.Context, slotToken string, opts pipeline.Options) (*pipeline.Report, error) {
	b.tokens = append(b.tokens, slotToken)
	if b.err != nil {
		return nil, b.err
	}
	snap := contracts.NewSnapshot("run-1", time.Now())
	return &pipeline.Report{RunID: "run-1", Snapshot: snap}, nil
}

func TestBriefingJobs(t *testing.T) {
	b := &recordingBriefer{}
	jobs := NewBriefingJobs(b, pipeline.Options{Save: true}, logger.Nop())
	require.Len(t, jobs, 5)

	want := map[string]string{
		"briefing_us_close":   "0 0 7 * * *",
		"briefing_kr_preview": "0 0 8 * * *",
		"briefing_kr_midday":  "0 0 12 * * *",
		"briefing_kr_close":   "0 40 15 * * *",
		"briefing_us_preview": "0 0 19 * * *",
	}
	for _, j := range jobs {
		assert.Equal(t, want[j.Name()], j.Schedule(), j.Name())
		require.NoError(t, j.Run(context.Background()))
	}
	assert.Equal(t, []string{"07:00", "08:00", "12:00", "15:40", "19:00"}, b.tokens)
}

func TestBriefingJob_PropagatesConfigurationError(t *testing.T) {
	b := &recordingBriefer{err: contracts.NewConfigurationError("empty universe")}
	err := NewBriefingJob(contracts.BriefingKRClose, b, pipeline.Options{}, logger.Nop()).Run(context.Background())
	assert.True(t, contracts.IsConfigurationError(err))
}

type stubArchive struct {
	contracts.SnapshotArchive
	retention int
	removed   int
}

func (a *stubArchive) Cleanup(ctx context.Context, retentionDays int, now time.Time) (int, error) {
	a.retention = retentionDays
	return a.removed, nil
}

func TestArchiveCleanupJob(t *testing.T) {
	a := &stubArchive{removed: 3}
	j := NewArchiveCleanupJob(a, 30, logger.Nop())

	assert.Equal(t, "archive_cleanup", j.Name())
	assert.Equal(t, "0 0 3 * * *", j.Schedule())
	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, 30, a.retention)
}

func TestSlotCron(t *testing.T) {
	assert.Equal(t, "0 40 15 * * *", slotCron("15:40"))
	assert.Equal(t, "", slotCron("now"))
	assert.Equal(t, "", slotCron("ab:cd"))
}
