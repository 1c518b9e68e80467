package shared

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks performance and success metrics for services
type ServiceMetrics struct {
	ServiceName           string
	TotalRequests         int64
	SuccessfulRequests    int64
	FailedRequests        int64
	TotalProcessingTime   time.Duration
	AverageProcessingTime time.Duration
	LastUpdated           time.Time
	CustomCounters        map[string]int64
	PerformanceMetrics    *PerformanceMetrics
	mutex                 sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of ServiceMetrics, safe to serialize
type MetricsSnapshot struct {
	ServiceName           string           `json:"service_name"`
	TotalRequests         int64            `json:"total_requests"`
	SuccessfulRequests    int64            `json:"successful_requests"`
	FailedRequests        int64            `json:"failed_requests"`
	SuccessRate           float64          `json:"success_rate"`
	AverageProcessingTime time.Duration    `json:"average_processing_time"`
	P95ProcessingTime     time.Duration    `json:"p95_processing_time"`
	LastUpdated           time.Time        `json:"last_updated"`
	CustomCounters        map[string]int64 `json:"custom_counters"`
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		ServiceName:        serviceName,
		LastUpdated:        time.Now(),
		CustomCounters:     make(map[string]int64),
		PerformanceMetrics: NewPerformanceMetrics(),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests++
	m.TotalProcessingTime += processingTime
	m.AverageProcessingTime = time.Duration(int64(m.TotalProcessingTime) / m.TotalRequests)

	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}

	m.LastUpdated = time.Now()

	if m.PerformanceMetrics != nil {
		m.PerformanceMetrics.RecordProcessingTime(processingTime)
	}
}

func (m *ServiceMetrics) successRateLocked() float64 {
	if m.TotalRequests == 0 {
		return 0.0
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests) * 100.0
}

// IncrementCustomCounter increments a named counter
func (m *ServiceMetrics) IncrementCustomCounter(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.CustomCounters[key]++
	m.LastUpdated = time.Now()
}

// GetSnapshot returns a thread-safe snapshot of current metrics
func (m *ServiceMetrics) GetSnapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counters := make(map[string]int64, len(m.CustomCounters))
	for k, v := range m.CustomCounters {
		counters[k] = v
	}

	snapshot := MetricsSnapshot{
		ServiceName:           m.ServiceName,
		TotalRequests:         m.TotalRequests,
		SuccessfulRequests:    m.SuccessfulRequests,
		FailedRequests:        m.FailedRequests,
		SuccessRate:           m.successRateLocked(),
		AverageProcessingTime: m.AverageProcessingTime,
		LastUpdated:           m.LastUpdated,
		CustomCounters:        counters,
	}
	if m.PerformanceMetrics != nil {
		snapshot.P95ProcessingTime = m.PerformanceMetrics.GetPerformanceSnapshot().P95ProcessingTime
	}
	return snapshot
}

// LogSummary logs a comprehensive metrics summary
func (m *ServiceMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":            snapshot.ServiceName,
		"total_requests":          snapshot.TotalRequests,
		"successful_requests":     snapshot.SuccessfulRequests,
		"failed_requests":         snapshot.FailedRequests,
		"success_rate":            snapshot.SuccessRate,
		"average_processing_time": snapshot.AverageProcessingTime,
		"p95_processing_time":     snapshot.P95ProcessingTime,
		"last_updated":            snapshot.LastUpdated,
		"custom_counters":         snapshot.CustomCounters,
	}).Info("Service metrics summary")
}

// DatabaseMetrics tracks database operation performance and success rates
type DatabaseMetrics struct {
	TotalQueries      int64         `json:"total_queries"`
	SuccessfulQueries int64         `json:"successful_queries"`
	FailedQueries     int64         `json:"failed_queries"`
	SlowQueries       int64         `json:"slow_queries"`
	TotalQueryTime    time.Duration `json:"total_query_time"`
	AverageQueryTime  time.Duration `json:"average_query_time"`
	slowThreshold     time.Duration
	mutex             sync.RWMutex
}

// NewDatabaseMetrics creates a new database metrics tracker
func NewDatabaseMetrics(slowThreshold time.Duration) *DatabaseMetrics {
	return &DatabaseMetrics{slowThreshold: slowThreshold}
}

// RecordQuery records a database query with its success status and execution time.
// It returns true when the query crossed the slow threshold.
func (dm *DatabaseMetrics) RecordQuery(success bool, queryTime time.Duration) bool {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.TotalQueries++
	dm.TotalQueryTime += queryTime
	dm.AverageQueryTime = time.Duration(int64(dm.TotalQueryTime) / dm.TotalQueries)

	if success {
		dm.SuccessfulQueries++
	} else {
		dm.FailedQueries++
	}

	slow := dm.slowThreshold > 0 && queryTime >= dm.slowThreshold
	if slow {
		dm.SlowQueries++
	}
	return slow
}

// GetQuerySuccessRate returns the query success rate as a percentage
func (dm *DatabaseMetrics) GetQuerySuccessRate() float64 {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	if dm.TotalQueries == 0 {
		return 0.0
	}

	return float64(dm.SuccessfulQueries) / float64(dm.TotalQueries) * 100.0
}

// DatabaseSnapshot is a point-in-time copy of DatabaseMetrics
type DatabaseSnapshot struct {
	TotalQueries     int64         `json:"total_queries"`
	FailedQueries    int64         `json:"failed_queries"`
	SlowQueries      int64         `json:"slow_queries"`
	SuccessRate      float64       `json:"success_rate"`
	AverageQueryTime time.Duration `json:"average_query_time"`
}

// GetDatabaseSnapshot returns a thread-safe copy of the counters
func (dm *DatabaseMetrics) GetDatabaseSnapshot() DatabaseSnapshot {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	snapshot := DatabaseSnapshot{
		TotalQueries:     dm.TotalQueries,
		FailedQueries:    dm.FailedQueries,
		SlowQueries:      dm.SlowQueries,
		AverageQueryTime: dm.AverageQueryTime,
	}
	if dm.TotalQueries > 0 {
		snapshot.SuccessRate = float64(dm.SuccessfulQueries) / float64(dm.TotalQueries) * 100.0
	}
	return snapshot
}

// LogDatabaseSummary logs comprehensive database metrics
func (dm *DatabaseMetrics) LogDatabaseSummary() {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	successRate := 0.0
	if dm.TotalQueries > 0 {
		successRate = float64(dm.SuccessfulQueries) / float64(dm.TotalQueries) * 100.0
	}

	logrus.WithFields(logrus.Fields{
		"total_queries":      dm.TotalQueries,
		"successful_queries": dm.SuccessfulQueries,
		"failed_queries":     dm.FailedQueries,
		"slow_queries":       dm.SlowQueries,
		"query_success_rate": successRate,
		"average_query_time": dm.AverageQueryTime,
		"total_query_time":   dm.TotalQueryTime,
	}).Info("Database metrics summary")
}

// PerformanceMetrics tracks latency percentiles over a sliding window of samples
type PerformanceMetrics struct {
	MinProcessingTime time.Duration `json:"min_processing_time"`
	MaxProcessingTime time.Duration `json:"max_processing_time"`
	P95ProcessingTime time.Duration `json:"p95_processing_time"`
	P99ProcessingTime time.Duration `json:"p99_processing_time"`
	mutex             sync.RWMutex
	processingTimes   []time.Duration
}

const maxPerformanceSamples = 1000

// NewPerformanceMetrics creates a new performance metrics tracker
func NewPerformanceMetrics() *PerformanceMetrics {
	return &PerformanceMetrics{
		processingTimes: make([]time.Duration, 0, maxPerformanceSamples),
	}
}

// RecordProcessingTime records a processing time and updates performance metrics
func (pm *PerformanceMetrics) RecordProcessingTime(duration time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if pm.MinProcessingTime == 0 || duration < pm.MinProcessingTime {
		pm.MinProcessingTime = duration
	}
	if duration > pm.MaxProcessingTime {
		pm.MaxProcessingTime = duration
	}

	if len(pm.processingTimes) >= maxPerformanceSamples {
		pm.processingTimes = pm.processingTimes[1:]
	}
	pm.processingTimes = append(pm.processingTimes, duration)

	pm.calculatePercentiles()
}

func (pm *PerformanceMetrics) calculatePercentiles() {
	if len(pm.processingTimes) == 0 {
		return
	}

	times := make([]time.Duration, len(pm.processingTimes))
	copy(times, pm.processingTimes)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	p95Index := int(float64(len(times)) * 0.95)
	p99Index := int(float64(len(times)) * 0.99)

	if p95Index < len(times) {
		pm.P95ProcessingTime = times[p95Index]
	}
	if p99Index < len(times) {
		pm.P99ProcessingTime = times[p99Index]
	}
}

// PerformanceSnapshot is a copy of the current percentile values
type PerformanceSnapshot struct {
	MinProcessingTime time.Duration `json:"min_processing_time"`
	MaxProcessingTime time.Duration `json:"max_processing_time"`
	P95ProcessingTime time.Duration `json:"p95_processing_time"`
	P99ProcessingTime time.Duration `json:"p99_processing_time"`
}

// GetPerformanceSnapshot returns a thread-safe snapshot of performance metrics
func (pm *PerformanceMetrics) GetPerformanceSnapshot() PerformanceSnapshot {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	return PerformanceSnapshot{
		MinProcessingTime: pm.MinProcessingTime,
		MaxProcessingTime: pm.MaxProcessingTime,
		P95ProcessingTime: pm.P95ProcessingTime,
		P99ProcessingTime: pm.P99ProcessingTime,
	}
}
