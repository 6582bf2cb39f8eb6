package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/JesuisMat/Flopmap-back-offi/app/observability/metrics"
	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

var ErrQuotaExceeded = errors.New("geocoding provider query limit reached")
var ErrAccessDenied = errors.New("geocoding provider denied the request")
var ErrNotFound = errors.New("address could not be geocoded")

var _ Repository = (*GoogleRepository)(nil)

// GeocodeResult is the provider-agnostic outcome of one geocode call.
type GeocodeResult struct {
	Coordinates      types.Coordinates
	FormattedAddress string
	Components       *types.AddressComponents
	ProviderPlaceID  string
}

// Repository abstracts the external geocoding provider.
type Repository interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
}

// GoogleRepository resolves addresses through the Google Geocoding API.
type GoogleRepository struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewGoogleRepository(cfg *config.Config, apiKey string, limiter *rate.Limiter, logger *slog.Logger) *GoogleRepository {
	return &GoogleRepository{
		baseURL: cfg.Provider.GeocodeURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: cfg.Provider.Timeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

type googleAddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		PlaceID          string `json:"place_id"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []googleAddressComponent `json:"address_components"`
	} `json:"results"`
}

func (r *GoogleRepository) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for provider rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("key", r.apiKey)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", r.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode request: %w", err)
	}

	r.logger.DebugContext(ctx, "Geocoding address", slog.String("address", address))

	resp, err := r.httpClient.Do(req)
	metrics.Get().ProviderCallDurationSeconds.Record(ctx, time.Since(start).Seconds())
	metrics.Get().ProviderCallsTotal.Add(ctx, 1)
	if err != nil {
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("geocode request returned HTTP %d", resp.StatusCode)
	}

	var payload googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	switch payload.Status {
	case "OVER_QUERY_LIMIT":
		return nil, ErrQuotaExceeded
	case "REQUEST_DENIED":
		r.logger.ErrorContext(ctx, "Geocoding request denied", slog.String("provider_message", payload.ErrorMessage))
		return nil, ErrAccessDenied
	}

	if payload.Status != "OK" || len(payload.Results) == 0 {
		return nil, fmt.Errorf("%w: provider status %s", ErrNotFound, payload.Status)
	}

	best := payload.Results[0]
	return &GeocodeResult{
		Coordinates: types.Coordinates{
			Lat: best.Geometry.Location.Lat,
			Lng: best.Geometry.Location.Lng,
		},
		FormattedAddress: best.FormattedAddress,
		Components:       extractAddressComponents(best.AddressComponents),
		ProviderPlaceID:  best.PlaceID,
	}, nil
}

// extractAddressComponents keeps the components the rest of the pipeline cares about.
func extractAddressComponents(components []googleAddressComponent) *types.AddressComponents {
	extracted := &types.AddressComponents{}
	for _, component := range components {
		for _, t := range component.Types {
			switch t {
			case "locality":
				extracted.City = component.LongName
			case "country":
				extracted.Country = component.LongName
				extracted.CountryCode = component.ShortName
			case "postal_code":
				extracted.PostalCode = component.LongName
			case "administrative_area_level_1":
				extracted.State = component.LongName
			case "administrative_area_level_2":
				extracted.Region = component.LongName
			}
		}
	}
	return extracted
}
