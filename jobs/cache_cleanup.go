package jobs

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ExpiringCache is a cache whose dead entries can be swept
type ExpiringCache interface {
	PurgeExpired() int
	Size() int
}

// GeocodeCacheCleanupJob sweeps expired geocode entries that are never read again.
// Reads already evict lazily, so this only bounds memory.
type GeocodeCacheCleanupJob struct {
	cache    ExpiringCache
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewGeocodeCacheCleanupJob(cache ExpiringCache, interval time.Duration) *GeocodeCacheCleanupJob {
	return &GeocodeCacheCleanupJob{cache: cache, interval: interval}
}

// Run purges once and returns the number of removed entries
func (j *GeocodeCacheCleanupJob) Run() int {
	removed := j.cache.PurgeExpired()
	logrus.WithFields(logrus.Fields{
		"component": "GeocodeCacheCleanupJob",
		"removed":   removed,
		"remaining": j.cache.Size(),
	}).Info("Geocode cache cleanup completed")
	return removed
}

func (j *GeocodeCacheCleanupJob) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stop != nil {
		return
	}
	j.stop = make(chan struct{})
	j.done = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				j.Run()
			}
		}
	}(j.stop, j.done)
}

func (j *GeocodeCacheCleanupJob) Stop() {
	j.mu.Lock()
	stop, done := j.stop, j.done
	j.stop, j.done = nil, nil
	j.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
