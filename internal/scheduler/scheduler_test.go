package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	errs     []error
	calls    int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if int(n) <= len(j.errs) {
		return j.errs[n-1]
	}
	return nil
}

var kst = time.FixedZone("KST", 9*60*60)

func newScheduler() *Scheduler {
	return New(kst, logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 0 7 * * *"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "0 0 8 * * *"}))
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "every morning"}))
	assert.Equal(t, []string{"a"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJobSync_RetriesTransientFailure(t *testing.T) {
	s := newScheduler()
	job := &countingJob{name: "flaky", schedule: "0 0 7 * * *", errs: []error{errors.New("timeout")}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestRunJobSync_ConfigurationErrorNotRetried(t *testing.T) {
	s := newScheduler()
	job := &countingJob{
		name:     "misconfigured",
		schedule: "0 0 7 * * *",
		errs:     []error{contracts.NewConfigurationError("no instruments configured for segment international")},
	}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("misconfigured")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))
	assert.Contains(t, result.Error, "no instruments")

	stats := s.GetJobStats()["misconfigured"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
}

func TestRunJobSync_GivesUpAfterRetries(t *testing.T) {
	s := newScheduler()
	boom := errors.New("boom")
	job := &countingJob{name: "down", schedule: "0 0 7 * * *", errs: []error{boom, boom, boom, boom}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("down")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
}

func TestRunJobSync_Unknown(t *testing.T) {
	_, err := newScheduler().RunJobSync("nope")
	assert.Error(t, err)
}

func TestNextRunInKST(t *testing.T) {
	s := newScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "close", schedule: "0 40 15 * * *"}))

	s.Start()
	defer s.Stop()

	next := s.NextRun("close").In(kst)
	assert.Equal(t, 15, next.Hour())
	assert.Equal(t, 40, next.Minute())
}

func TestNextRun_BeforeStart(t *testing.T) {
	s := newScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "preview", schedule: "0 0 8 * * *"}))

	next := s.NextRun("preview")
	require.False(t, next.IsZero())
	assert.Equal(t, 8, next.In(kst).Hour())
	assert.True(t, s.NextRun("missing").IsZero())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(10), 10)
	assert.Len(t, h.GetFailedResults(), 50)
	assert.Equal(t, 0.5, h.GetSuccessRate())
}
