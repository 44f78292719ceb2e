package runner

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiandao/internal/automation"
	"qiandao/internal/progress"
)

// gatedJob blocks every run until release is closed.
type gatedJob struct {
	started chan string
	release chan struct{}
}

func newGatedJob() *gatedJob {
	return &gatedJob{started: make(chan string, 4), release: make(chan struct{})}
}

func (g *gatedJob) run(id string) automation.Result {
	g.started <- id
	<-g.release
	now := time.Now()
	return automation.Result{
		RunID:          id,
		Success:        true,
		Message:        "sign-in succeeded! screenshot saved to: /tmp/x.png",
		ScreenshotPath: "/tmp/x.png",
		Stage:          automation.StageDone,
		StartedAt:      now,
		FinishedAt:     now,
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

func TestRunner_SecondRunRejectedWhileBusy(t *testing.T) {
	job := newGatedJob()
	r := New(job.run)
	r.newID = sequentialIDs()
	defer r.Stop(time.Second)

	var mu sync.Mutex
	var finished []automation.Result
	r.OnResult(func(src Source, res automation.Result) {
		mu.Lock()
		defer mu.Unlock()
		finished = append(finished, res)
	})

	id, err := r.Submit(SourceScheduled)
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)
	assert.Equal(t, "run-1", <-job.started)

	_, err = r.Submit(SourceManual)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = r.RunSync(SourceHTTP)
	assert.ErrorIs(t, err, ErrBusy)

	st := r.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, SourceScheduled, st.Source)

	close(job.release)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(finished) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.True(t, finished[0].Success)
	assert.Equal(t, "run-1", finished[0].RunID)
	mu.Unlock()

	st = r.Status()
	assert.False(t, st.Running)
	require.NotNil(t, st.Last)
	assert.Equal(t, "run-1", st.Last.RunID)
	assert.Equal(t, SourceScheduled, st.LastSource)
}

func TestRunner_RunSyncReturnsResult(t *testing.T) {
	job := newGatedJob()
	close(job.release)
	r := New(job.run)
	defer r.Stop(time.Second)

	res, err := r.RunSync(SourceMCP)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RunID)

	// The runner is free again right after.
	res, err = r.RunSync(SourceManual)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRunner_PanickingJobFails(t *testing.T) {
	r := New(func(id string) automation.Result { panic("boom") })
	defer r.Stop(time.Second)

	res, err := r.RunSync(SourceManual)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "boom")
	assert.Empty(t, res.ScreenshotPath)
	assert.False(t, r.Busy())
}

func TestRunner_TracksStage(t *testing.T) {
	job := newGatedJob()
	r := New(job.run)
	r.newID = sequentialIDs()
	defer r.Stop(time.Second)

	_, err := r.Submit(SourceManual)
	require.NoError(t, err)
	<-job.started

	r.Handle(progress.Event{RunID: "run-1", Kind: progress.KindStage, Stage: "Navigating"})
	r.Handle(progress.Event{RunID: "other", Kind: progress.KindStage, Stage: "CapturingProof"})
	r.Handle(progress.Event{RunID: "run-1", Kind: progress.KindClick, Stage: "Bogus"})
	assert.Equal(t, "Navigating", r.Status().Stage)

	close(job.release)
}

func TestRunner_StopWaitsForGrace(t *testing.T) {
	job := newGatedJob()
	r := New(job.run)

	_, err := r.Submit(SourceManual)
	require.NoError(t, err)
	<-job.started

	err = r.Stop(20 * time.Millisecond)
	assert.Error(t, err)

	_, err = r.Submit(SourceManual)
	assert.ErrorIs(t, err, ErrStopped)

	close(job.release)
	assert.NoError(t, r.Stop(time.Second))
}
