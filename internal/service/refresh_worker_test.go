package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
	"github.com/noah-isme/shortcourse-api/pkg/jobs"
)

type fakeReloader struct {
	calls   int32
	release chan struct{}
	err     error
}

func (f *fakeReloader) Load(context.Context) (*models.LoadResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoadResult{Source: "sample", Count: 4}, nil
}

func TestRefreshWorkerRunsQueuedReload(t *testing.T) {
	reloader := &fakeReloader{}
	worker := NewRefreshWorker(reloader, RefreshWorkerConfig{}, nil)
	worker.Start(context.Background())
	defer worker.Stop()

	resp, err := worker.Trigger("manual")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.JobID)
	assert.False(t, resp.QueuedAt.IsZero())

	require.Eventually(t, func() bool { return atomic.LoadInt32(&reloader.calls) == 1 }, time.Second, 5*time.Millisecond)
}

func TestRefreshWorkerRejectsWhenBacklogged(t *testing.T) {
	reloader := &fakeReloader{release: make(chan struct{})}
	worker := NewRefreshWorker(reloader, RefreshWorkerConfig{Buffer: 1}, nil)
	worker.Start(context.Background())
	defer worker.Stop()

	_, err := worker.Trigger("first")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&reloader.calls) == 1 }, time.Second, 5*time.Millisecond)

	_, err = worker.Trigger("second")
	require.NoError(t, err)
	_, err = worker.Trigger("third")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	close(reloader.release)
}

func TestRefreshWorkerRequiresStart(t *testing.T) {
	worker := NewRefreshWorker(&fakeReloader{}, RefreshWorkerConfig{}, nil)

	_, err := worker.Trigger("manual")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestRefreshWorkerTreatsConcurrentLoadAsDone(t *testing.T) {
	worker := NewRefreshWorker(&fakeReloader{err: appErrors.Clone(appErrors.ErrConflict, "busy")}, RefreshWorkerConfig{}, nil)

	assert.NoError(t, worker.handle(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeRefresh}))
}
