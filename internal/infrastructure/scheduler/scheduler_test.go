package scheduler

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExecutor struct {
	mu      stdsync.Mutex
	runs    []JobType
	failFor map[JobType]error
	done    chan struct{}
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{
		failFor: make(map[JobType]error),
		done:    make(chan struct{}, 100),
	}
}

func (e *recordingExecutor) Execute(ctx context.Context, job *Job) error {
	e.mu.Lock()
	e.runs = append(e.runs, job.Type)
	err := e.failFor[job.Type]
	e.mu.Unlock()
	e.done <- struct{}{}
	return err
}

func (e *recordingExecutor) runCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.runs)
}

func testConfig() Config {
	return Config{
		MaxConcurrentJobs: 2,
		JobTimeout:        time.Second,
		RetryAttempts:     1,
		RetryDelay:        time.Millisecond,
	}
}

func TestScheduler_RunsSubmittedJob(t *testing.T) {
	executor := newRecordingExecutor()
	s := NewScheduler(testConfig(), executor, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.Submit(JobTypeDriftCheck))

	select {
	case <-executor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}
	assert.Equal(t, 1, executor.runCount())
}

func TestScheduler_RejectsWhenStopped(t *testing.T) {
	s := NewScheduler(testConfig(), newRecordingExecutor(), zap.NewNop())

	err := s.Submit(JobTypeFullSync)

	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RejectsInvalidJobType(t *testing.T) {
	s := NewScheduler(testConfig(), newRecordingExecutor(), zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	err := s.SubmitJob(NewJob(JobType("BOGUS"), 0))

	assert.ErrorIs(t, err, ErrInvalidJobType)
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	executor := newRecordingExecutor()
	executor.failFor[JobTypePriceSync] = errors.New("boom")
	s := NewScheduler(testConfig(), executor, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.Submit(JobTypePriceSync))

	// Initial attempt plus one retry (RetryAttempts: 1)
	deadline := time.After(3 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-executor.done:
		case <-deadline:
			t.Fatalf("expected 2 executions, saw %d", executor.runCount())
		}
	}
	assert.GreaterOrEqual(t, executor.runCount(), 2)
}

func TestScheduler_RecordsFinishedJobs(t *testing.T) {
	executor := newRecordingExecutor()
	s := NewScheduler(testConfig(), executor, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.Submit(JobTypeLowStockScan))

	select {
	case <-executor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}

	// History is recorded just after the executor returns
	deadline := time.After(2 * time.Second)
	for len(s.Recent()) == 0 {
		select {
		case <-deadline:
			t.Fatal("job never landed in history")
		case <-time.After(10 * time.Millisecond):
		}
	}

	recent := s.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, JobTypeLowStockScan, recent[0].Type)
	assert.Equal(t, JobStatusSuccess, recent[0].Status)
}

func TestJob_RetryBookkeeping(t *testing.T) {
	job := NewJob(JobTypeInventorySync, 2)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)

	job.Fail("timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.NotNil(t, job.NextRetryAt)

	job.Fail("timeout")
	job.ScheduleRetry(time.Minute)
	job.Fail("timeout")
	assert.False(t, job.ShouldRetry())
}
