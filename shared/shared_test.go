package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceError_IsMatchesSentinelByCode(t *testing.T) {
	err := FromSentinel(ErrNotFound, "Location not found for ZIP code 99999", "GeocodeResolver", "Resolve", nil)
	wrapped := fmt.Errorf("resolve failed: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrInvalidFormat))
	assert.Equal(t, "Location not found for ZIP code 99999", err.Message)
}

func TestFromSentinel_DoesNotMutateSentinel(t *testing.T) {
	err := FromSentinel(ErrInvalidFormat, "", "GeocodeResolver", "Resolve", nil)
	WrapError(err, ErrorCategoryValidation, CodeInvalidFormat, "Other", "Other", false)

	assert.Equal(t, "", ErrInvalidFormat.ServiceName)
	assert.Equal(t, ErrInvalidFormat.Message, err.Message)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid format", FromSentinel(ErrInvalidFormat, "", "svc", "op", nil), http.StatusBadRequest},
		{"batch too large", FromSentinel(ErrBatchTooLarge, "", "svc", "op", nil), http.StatusBadRequest},
		{"invalid radius query", FromSentinel(ErrInvalidRadiusQuery, "", "svc", "op", nil), http.StatusBadRequest},
		{"not found", FromSentinel(ErrNotFound, "", "svc", "op", nil), http.StatusNotFound},
		{"cancelled", FromSentinel(ErrRequestCancelled, "", "svc", "op", context.Canceled), http.StatusRequestTimeout},
		{"database", FromSentinel(ErrDatabase, "", "svc", "op", errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("ctx: %w", FromSentinel(ErrInvalidFormat, "", "svc", "op", nil)), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_HidesDatabaseDetails(t *testing.T) {
	err := NewServiceError(ErrorCategoryDatabase, CodeDatabaseError, "pq: relation \"vehicles\" does not exist", "store", "FindInBoundingBox", false, nil)
	assert.Equal(t, "Internal server error", PublicMessage(err))

	notFound := FromSentinel(ErrNotFound, "", "svc", "op", nil)
	assert.Equal(t, ErrNotFound.Message, PublicMessage(notFound))
}

func TestClassifyTransportError(t *testing.T) {
	assert.Equal(t, ErrorCategoryTimeout, ClassifyTransportError(context.DeadlineExceeded))
	assert.Equal(t, ErrorCategoryTimeout, ClassifyTransportError(fmt.Errorf("get: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrorCategoryNetwork, ClassifyTransportError(errors.New("connection refused")))
	assert.Equal(t, ErrorCategoryCancelled, ClassifyTransportError(context.Canceled))
	assert.Equal(t, ErrorCategoryCancelled, ClassifyTransportError(fmt.Errorf("get: %w", context.Canceled)))
}

func TestIsNetworkClass(t *testing.T) {
	assert.True(t, IsNetworkClass(NewServiceError(ErrorCategoryTimeout, CodeProviderUnavailable, "timeout", "p", "op", true, nil)))
	assert.True(t, IsNetworkClass(NewServiceError(ErrorCategoryNetwork, CodeProviderUnavailable, "refused", "p", "op", true, nil)))
	assert.False(t, IsNetworkClass(NewServiceError(ErrorCategoryConfiguration, CodeProviderUnavailable, "no key", "p", "op", false, nil)))
	assert.False(t, IsNetworkClass(NewServiceError(ErrorCategoryCancelled, CodeProviderUnavailable, "cancelled", "p", "op", false, context.Canceled)))
	assert.False(t, IsNetworkClass(errors.New("plain")))
}

func TestHTTPClientFactory_ReusesClientsPerTimeout(t *testing.T) {
	factory := NewHTTPClientFactory(12 * time.Second)
	defer factory.CleanupAllClients()

	a := factory.CreateOptimizedHTTPClient(0)
	b := factory.CreateOptimizedHTTPClient(12 * time.Second)
	c := factory.CreateOptimizedHTTPClient(time.Second)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 12*time.Second, a.Timeout)
}

func TestRateLimiter_EnforcesSpacingAfterMark(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, limiter.EnforceRateLimit(context.Background()))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "first call should not wait")

	limiter.MarkRequest()
	start = time.Now()
	require.NoError(t, limiter.EnforceRateLimit(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, int64(1), limiter.GetRequestCount())
}

func TestRateLimiter_HonorsContextCancellation(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(time.Hour)
	limiter.MarkRequest()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, limiter.EnforceRateLimit(ctx), context.Canceled)
}

func TestServiceMetrics_Snapshot(t *testing.T) {
	metrics := NewServiceMetrics("GoogleGeocodingProvider")
	metrics.RecordRequest(true, 100*time.Millisecond)
	metrics.RecordRequest(false, 300*time.Millisecond)
	metrics.IncrementCustomCounter("timeout")

	snapshot := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.InDelta(t, 50.0, snapshot.SuccessRate, 0.001)
	assert.Equal(t, 200*time.Millisecond, snapshot.AverageProcessingTime)
	assert.Equal(t, int64(1), snapshot.CustomCounters["timeout"])
}

func TestDatabaseMetrics_SlowQueries(t *testing.T) {
	metrics := NewDatabaseMetrics(time.Second)

	assert.False(t, metrics.RecordQuery(true, 10*time.Millisecond))
	assert.True(t, metrics.RecordQuery(true, 2*time.Second))
	metrics.RecordQuery(false, time.Millisecond)

	assert.Equal(t, int64(1), metrics.SlowQueries)
	assert.InDelta(t, 66.67, metrics.GetQuerySuccessRate(), 0.01)
}

func TestUnifiedConfiguration_ValidateAndApplyDefaults(t *testing.T) {
	cfg := &UnifiedConfiguration{}
	cfg.Geocode.BatchDelay = 0
	cfg.ValidateAndApplyDefaults()

	assert.Equal(t, DefaultProviderTimeout, cfg.Geocode.ProviderTimeout)
	assert.Equal(t, DefaultGeocodeCacheTTL, cfg.Geocode.CacheTTL)
	assert.Equal(t, DefaultFallbackTTLFraction, cfg.Geocode.FallbackTTLFraction)
	assert.Equal(t, time.Duration(0), cfg.Geocode.BatchDelay, "zero batch delay is kept")
	assert.Equal(t, DefaultMaxBatchSize, cfg.Geocode.MaxBatchSize)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestUnifiedConfiguration_ToJSONOmitsAPIKey(t *testing.T) {
	cfg := NewDefaultUnifiedConfiguration()
	cfg.Geocode.APIKey = "secret-key"

	data, err := cfg.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-key")

	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded["geocode"], "APIKey")
	assert.InDelta(t, float64(cfg.Geocode.ProviderTimeout), decoded["geocode"]["provider_timeout"], 0)
}
