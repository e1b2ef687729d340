package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	err      error
	runs     int
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func newScheduler() *Scheduler {
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
	s := New(log)
	s.maxRetries = 0
	s.retryDelay = time.Millisecond
	return s
}

func TestScheduler_AddJob(t *testing.T) {
	s := newScheduler()

	job := &fakeJob{name: "price_sync", schedule: "0 30 17 * * 1-5"}
	require.NoError(t, s.AddJob(job))

	assert.Error(t, s.AddJob(job), "duplicate name rejected")
	assert.Equal(t, []string{"price_sync"}, s.GetAllJobs())
}

func TestScheduler_AddJobBadSchedule(t *testing.T) {
	s := newScheduler()

	err := s.AddJob(&fakeJob{name: "bad", schedule: "not a cron"})
	assert.Error(t, err)
}

func TestScheduler_RunJobRecordsHistory(t *testing.T) {
	s := newScheduler()

	job := &fakeJob{name: "price_sync", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)
	s.runJob(job)

	history, err := s.GetJobHistory("price_sync")
	require.NoError(t, err)
	assert.Len(t, history.Results, 2)
	assert.Equal(t, 1.0, history.GetSuccessRate())
	assert.Equal(t, 2, job.runs)

	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestScheduler_RunJobFailure(t *testing.T) {
	s := newScheduler()

	job := &fakeJob{name: "flaky", schedule: "@daily", err: assert.AnError}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.NotEmpty(t, history.Results[0].Error)
}

func TestJobHistory_Truncation(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "j", Success: true})
	}
	assert.Len(t, h.Results, 100)

	latest := h.GetLatestResults(5)
	assert.Len(t, latest, 5)
}
