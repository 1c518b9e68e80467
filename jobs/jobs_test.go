package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSyncer struct {
	calls   int64
	rows    int64
	err     error
	release chan struct{}
	started chan struct{}
}

func (s *stubSyncer) SyncSellerCoordinates(_ context.Context, accountNumber string) (models.SyncResult, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return models.SyncResult{}, s.err
	}
	return models.SyncResult{RunID: uuid.New(), AccountNumber: accountNumber, RowsAffected: s.rows}, nil
}

func TestCoordinateSyncJob_RunTracksStatus(t *testing.T) {
	syncer := &stubSyncer{rows: 4}
	job := NewCoordinateSyncJob(syncer, time.Hour)

	status := job.Status()
	assert.Nil(t, status.LastAttempt)
	assert.Equal(t, "1h0m0s", status.Interval)

	result, err := job.Run(context.Background(), "D-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.RowsAffected)

	status = job.Status()
	require.NotNil(t, status.LastAttempt)
	require.NotNil(t, status.LastSuccess)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, "D-1", status.LastResult.AccountNumber)
	assert.Empty(t, status.LastError)
	assert.False(t, status.Running)

	syncer.err = errors.New("database unavailable")
	_, err = job.Run(context.Background(), "")
	require.Error(t, err)

	status = job.Status()
	assert.Equal(t, "database unavailable", status.LastError)
	assert.Equal(t, int64(4), status.LastResult.RowsAffected, "the last successful result is kept")
}

func TestCoordinateSyncJob_RejectsOverlappingRuns(t *testing.T) {
	syncer := &stubSyncer{release: make(chan struct{}), started: make(chan struct{}, 1)}
	job := NewCoordinateSyncJob(syncer, time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := job.Run(context.Background(), "")
		assert.NoError(t, err)
	}()

	<-syncer.started
	assert.True(t, job.IsRunning())
	assert.True(t, job.Status().Running)

	_, err := job.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(syncer.release)
	wg.Wait()
	assert.False(t, job.IsRunning())
	assert.Equal(t, int64(1), atomic.LoadInt64(&syncer.calls))
}

func TestCoordinateSyncJob_StartRunsImmediatelyAndStops(t *testing.T) {
	syncer := &stubSyncer{}
	job := NewCoordinateSyncJob(syncer, 20*time.Millisecond)

	job.Start()
	job.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt64(&syncer.calls) >= 2 }, time.Second, 5*time.Millisecond)
	job.Stop()

	calls := atomic.LoadInt64(&syncer.calls)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt64(&syncer.calls), "no runs after Stop")
	job.Stop()
}

type stubCache struct {
	purges int64
}

func (c *stubCache) PurgeExpired() int {
	atomic.AddInt64(&c.purges, 1)
	return 3
}

func (c *stubCache) Size() int { return 7 }

func TestGeocodeCacheCleanupJob(t *testing.T) {
	cache := &stubCache{}
	job := NewGeocodeCacheCleanupJob(cache, 10*time.Millisecond)

	assert.Equal(t, 3, job.Run())

	job.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt64(&cache.purges) >= 3 }, time.Second, 5*time.Millisecond)
	job.Stop()
	job.Stop()
}
