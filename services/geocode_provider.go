package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fenilmodi00/vehicle-locator/models"
	"github.com/fenilmodi00/vehicle-locator/shared"
	"github.com/sirupsen/logrus"
)

const geocodeProviderName = "GoogleGeocodingProvider"

// GeocodeStrategy is one tier of the ZIP resolution chain.
//
// Lookup returns found=false with a nil error when the tier simply has no answer.
// prior is the error from the previous tier, if any.
type GeocodeStrategy interface {
	Name() string
	Lookup(ctx context.Context, zip string, prior error) (models.Location, models.LocationSource, bool, error)
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type googleAddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (r googleGeocodeResult) component(componentType string) (googleAddressComponent, bool) {
	for _, c := range r.AddressComponents {
		for _, t := range c.Types {
			if t == componentType {
				return c, true
			}
		}
	}
	return googleAddressComponent{}, false
}

// GoogleGeocodingProvider resolves ZIPs with the Google Geocoding HTTP API.
// Every call is a single attempt bounded by the client timeout.
type GoogleGeocodingProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	metrics    *shared.ServiceMetrics
	logger     *logrus.Entry
}

// NewGoogleGeocodingProvider creates a provider from the geocode configuration
func NewGoogleGeocodingProvider(cfg shared.GeocodeConfig, factory *shared.HTTPClientFactory) *GoogleGeocodingProvider {
	if factory == nil {
		factory = shared.NewHTTPClientFactory(cfg.ProviderTimeout)
	}
	baseURL := cfg.ProviderURL
	if baseURL == "" {
		baseURL = shared.DefaultGeocodeProviderURL
	}

	return &GoogleGeocodingProvider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: factory.CreateOptimizedHTTPClient(cfg.ProviderTimeout),
		metrics:    shared.NewServiceMetrics(geocodeProviderName),
		logger:     logrus.WithField("component", geocodeProviderName),
	}
}

func (p *GoogleGeocodingProvider) Name() string {
	return "google"
}

// Enabled reports whether a credential is configured
func (p *GoogleGeocodingProvider) Enabled() bool {
	return p.apiKey != ""
}

// Metrics exposes call success rate and latency
func (p *GoogleGeocodingProvider) Metrics() *shared.ServiceMetrics {
	return p.metrics
}

// Lookup calls the provider. Every failure is returned as a PROVIDER_UNAVAILABLE error whose
// category tells transport failures (network, timeout) apart from bad responses.
func (p *GoogleGeocodingProvider) Lookup(ctx context.Context, zip string, _ error) (models.Location, models.LocationSource, bool, error) {
	if !p.Enabled() {
		return models.Location{}, "", false, p.unavailable(shared.ErrorCategoryConfiguration, "Geocoding provider API key not configured", nil)
	}

	start := time.Now()
	location, err := p.fetch(ctx, zip)
	elapsed := time.Since(start)

	p.metrics.RecordRequest(err == nil, elapsed)
	shared.ObserveProviderCall(elapsed, err)

	if err != nil {
		if serviceErr, ok := err.(*shared.ServiceError); ok {
			p.metrics.IncrementCustomCounter(string(serviceErr.Category))
		}
		return models.Location{}, "", false, err
	}

	p.logger.WithFields(logrus.Fields{
		"zip":      zip,
		"city":     location.City,
		"state":    location.State,
		"duration": elapsed,
	}).Debug("Geocoded ZIP with provider")

	return location, models.LocationSourceProvider, true, nil
}

func (p *GoogleGeocodingProvider) fetch(ctx context.Context, zip string) (models.Location, error) {
	params := url.Values{}
	params.Set("address", zip)
	params.Set("key", p.apiKey)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.Location{}, p.unavailable(shared.ErrorCategoryConfiguration, "failed to build geocoding request", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := p.httpClient.Do(request)
	if err != nil {
		category := shared.ClassifyTransportError(err)
		return models.Location{}, p.unavailable(category, "geocoding request failed", redactKey(err, p.apiKey))
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return models.Location{}, p.unavailable(shared.ErrorCategoryProcessing,
			fmt.Sprintf("geocoding API returned HTTP %d", response.StatusCode), nil)
	}

	var payload googleGeocodeResponse
	if err := json.NewDecoder(io.LimitReader(response.Body, 1<<20)).Decode(&payload); err != nil {
		category := shared.ErrorCategoryProcessing
		// a body cut off by the client timeout surfaces here rather than from Do
		if errors.Is(ctx.Err(), context.Canceled) {
			category = shared.ErrorCategoryCancelled
		} else if ctx.Err() != nil || shared.ClassifyTransportError(err) == shared.ErrorCategoryTimeout {
			category = shared.ErrorCategoryTimeout
		}
		return models.Location{}, p.unavailable(category, "failed to parse geocoding response", err)
	}

	if payload.Status != "OK" || len(payload.Results) == 0 {
		message := fmt.Sprintf("geocoding API status %s", payload.Status)
		if payload.ErrorMessage != "" {
			message += ": " + payload.ErrorMessage
		}
		return models.Location{}, p.unavailable(shared.ErrorCategoryProcessing, message, nil)
	}

	result := payload.Results[0]
	city := ""
	if locality, ok := result.component("locality"); ok {
		city = locality.LongName
	}
	state := ""
	if region, ok := result.component("administrative_area_level_1"); ok {
		state = region.ShortName
	}

	return models.NewLocation(result.Geometry.Location.Lat, result.Geometry.Location.Lng, city, state), nil
}

func (p *GoogleGeocodingProvider) unavailable(category shared.ErrorCategory, message string, cause error) *shared.ServiceError {
	retryable := category == shared.ErrorCategoryNetwork || category == shared.ErrorCategoryTimeout
	return shared.NewServiceError(category, shared.CodeProviderUnavailable, message, geocodeProviderName, "Lookup", retryable, cause)
}

// redactKey keeps the API key out of logged URL errors
func redactKey(err error, apiKey string) error {
	urlErr, ok := err.(*url.Error)
	if !ok || apiKey == "" {
		return err
	}
	redacted := *urlErr
	if parsed, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		query := parsed.Query()
		query.Set("key", "REDACTED")
		parsed.RawQuery = query.Encode()
		redacted.URL = parsed.String()
	}
	return &redacted
}
