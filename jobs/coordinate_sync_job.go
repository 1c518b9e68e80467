package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/sirupsen/logrus"
)

// CoordinateSyncer is the operation the job schedules
type CoordinateSyncer interface {
	SyncSellerCoordinates(ctx context.Context, accountNumber string) (models.SyncResult, error)
}

// CoordinateSyncJob handles periodic full coordinate resyncs and on-demand runs
type CoordinateSyncJob struct {
	syncer   CoordinateSyncer
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Entry

	mu        sync.Mutex
	isRunning bool
	status    models.SyncStatus
	stop      chan struct{}
	done      chan struct{}
}

// NewCoordinateSyncJob creates a sync job that runs every interval once started
func NewCoordinateSyncJob(syncer CoordinateSyncer, interval time.Duration) *CoordinateSyncJob {
	return &CoordinateSyncJob{
		syncer:   syncer,
		interval: interval,
		timeout:  10 * time.Minute,
		logger:   logrus.WithField("component", "CoordinateSyncJob"),
		status:   models.SyncStatus{Interval: interval.String()},
	}
}

// Run executes one sync. A run already in progress makes it return ErrSyncInProgress.
func (j *CoordinateSyncJob) Run(ctx context.Context, accountNumber string) (models.SyncResult, error) {
	j.mu.Lock()
	if j.isRunning {
		j.mu.Unlock()
		j.logger.Warn("Coordinate sync already running, skipping")
		return models.SyncResult{}, ErrSyncInProgress
	}
	j.isRunning = true
	attempt := time.Now()
	j.status.LastAttempt = &attempt
	j.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	result, err := j.syncer.SyncSellerCoordinates(ctx, accountNumber)

	j.mu.Lock()
	j.isRunning = false
	if err != nil {
		j.status.LastError = err.Error()
	} else {
		success := time.Now()
		j.status.LastSuccess = &success
		j.status.LastError = ""
		j.status.LastResult = &result
	}
	j.mu.Unlock()

	if err != nil {
		j.logger.WithError(err).WithField("retryable", shared.IsRetryableError(err)).Error("Coordinate sync job failed")
		return result, err
	}

	j.logger.WithFields(logrus.Fields{
		"run_id":          result.RunID,
		"rows_affected":   result.RowsAffected,
		"processing_time": result.Duration,
	}).Info("Successfully completed coordinate sync job")

	return result, nil
}

// Start runs a full sync immediately and then on every tick until Stop
func (j *CoordinateSyncJob) Start() {
	j.mu.Lock()
	if j.stop != nil {
		j.mu.Unlock()
		return
	}
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	stop, done := j.stop, j.done
	j.mu.Unlock()

	j.logger.WithField("interval", j.interval).Info("Starting periodic coordinate sync")

	go func() {
		defer close(done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.Run(context.Background(), "")
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				j.Run(context.Background(), "")
			}
		}
	}()
}

// Stop halts the ticker and waits for an in-flight run to finish
func (j *CoordinateSyncJob) Stop() {
	j.mu.Lock()
	stop, done := j.stop, j.done
	j.stop, j.done = nil, nil
	j.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	j.logger.Info("Stopped periodic coordinate sync")
}

// IsRunning returns whether a sync is currently executing
func (j *CoordinateSyncJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.isRunning
}

// Status returns a copy of the last attempt, success and error
func (j *CoordinateSyncJob) Status() models.SyncStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := j.status
	status.Running = j.isRunning
	return status
}
