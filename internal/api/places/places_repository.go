package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/JesuisMat/Flopmap-back-offi/app/observability/metrics"
	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

var ErrQuotaExceeded = errors.New("places provider query limit reached")
var ErrDetailsUnavailable = errors.New("place details unavailable")

const maxPhotosPerPlace = 3

var _ Repository = (*GoogleRepository)(nil)

// Repository abstracts the external places provider.
type Repository interface {
	// SearchNearby returns raw candidates for one category around a coordinate.
	SearchNearby(ctx context.Context, location types.Coordinates, radiusMeters int, category string) ([]types.Candidate, error)
	// GetDetails fetches the full detail record for one candidate.
	GetDetails(ctx context.Context, placeID string) (*types.EnrichedPlace, error)
}

// GoogleRepository talks to the Google Places API. All calls go through a
// shared token-bucket limiter so concurrent searches stay within the
// provider's call-per-second bound.
type GoogleRepository struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewGoogleRepository(cfg *config.Config, apiKey string, limiter *rate.Limiter, logger *slog.Logger) *GoogleRepository {
	return &GoogleRepository{
		baseURL:  cfg.Provider.PlacesURL,
		apiKey:   apiKey,
		language: cfg.Provider.Language,
		httpClient: &http.Client{
			Timeout: cfg.Provider.Timeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

type googleNearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		PlaceID string `json:"place_id"`
		Name    string `json:"name"`
	} `json:"results"`
}

// googlePlaceDetails models the nullable provider detail record explicitly, so
// missing fields are handled at compile time instead of through dynamic access.
type googlePlaceDetails struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         *struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Types        []string `json:"types"`
	PriceLevel   *int     `json:"price_level"`
	OpeningHours *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
	Photos []struct {
		PhotoReference   string   `json:"photo_reference"`
		Width            int      `json:"width"`
		Height           int      `json:"height"`
		HTMLAttributions []string `json:"html_attributions"`
	} `json:"photos"`
	Website              string `json:"website"`
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	Reviews              []struct {
		Rating int    `json:"rating"`
		Text   string `json:"text"`
		Time   int64  `json:"time"`
	} `json:"reviews"`
}

type googleDetailsResponse struct {
	Status string              `json:"status"`
	Result *googlePlaceDetails `json:"result"`
}

func (r *GoogleRepository) SearchNearby(ctx context.Context, location types.Coordinates, radiusMeters int, category string) ([]types.Candidate, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%v,%v", location.Lat, location.Lng))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("type", category)
	params.Set("key", r.apiKey)

	var payload googleNearbyResponse
	if err := r.get(ctx, "/nearbysearch/json", params, &payload); err != nil {
		return nil, err
	}

	if payload.Status == "OVER_QUERY_LIMIT" {
		return nil, ErrQuotaExceeded
	}
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		r.logger.WarnContext(ctx, "Nearby search returned non-OK status",
			slog.String("category", category),
			slog.String("status", payload.Status),
			slog.String("provider_message", payload.ErrorMessage),
		)
		return nil, fmt.Errorf("nearby search for %s failed with status %s", category, payload.Status)
	}

	candidates := make([]types.Candidate, 0, len(payload.Results))
	for _, result := range payload.Results {
		candidates = append(candidates, types.Candidate{
			PlaceID:        result.PlaceID,
			Name:           result.Name,
			SearchCategory: category,
		})
	}
	return candidates, nil
}

func (r *GoogleRepository) GetDetails(ctx context.Context, placeID string) (*types.EnrichedPlace, error) {
	fields := "place_id,name,rating,user_ratings_total,reviews,formatted_address,geometry," +
		"photos,website,formatted_phone_number,opening_hours,price_level,types"

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", fields)
	params.Set("language", r.language)
	params.Set("key", r.apiKey)

	var payload googleDetailsResponse
	if err := r.get(ctx, "/details/json", params, &payload); err != nil {
		return nil, err
	}

	if payload.Status == "OVER_QUERY_LIMIT" {
		return nil, ErrQuotaExceeded
	}
	if payload.Status != "OK" || payload.Result == nil {
		return nil, fmt.Errorf("%w: provider status %s", ErrDetailsUnavailable, payload.Status)
	}

	return r.toEnrichedPlace(payload.Result), nil
}

// toEnrichedPlace flattens the provider detail record, tolerating every
// optional field being absent.
func (r *GoogleRepository) toEnrichedPlace(details *googlePlaceDetails) *types.EnrichedPlace {
	place := &types.EnrichedPlace{
		PlaceID:     details.PlaceID,
		Name:        details.Name,
		Rating:      details.Rating,
		Address:     details.FormattedAddress,
		Categories:  details.Types,
		PriceLevel:  details.PriceLevel,
		Website:     details.Website,
		PhoneNumber: details.FormattedPhoneNumber,
	}
	if details.UserRatingsTotal != nil {
		place.ReviewCount = *details.UserRatingsTotal
	}
	if details.Geometry != nil {
		place.Location = types.Coordinates{
			Lat: details.Geometry.Location.Lat,
			Lng: details.Geometry.Location.Lng,
		}
	}
	if details.OpeningHours != nil {
		place.OpenNow = details.OpeningHours.OpenNow
	}

	for i, photo := range details.Photos {
		if i >= maxPhotosPerPlace {
			break
		}
		place.Photos = append(place.Photos, types.PlacePhoto{
			URL:          r.photoURL(photo.PhotoReference, 400),
			ThumbnailURL: r.photoURL(photo.PhotoReference, 150),
			Width:        photo.Width,
			Height:       photo.Height,
			Attributions: photo.HTMLAttributions,
		})
	}

	for _, review := range details.Reviews {
		place.Reviews = append(place.Reviews, types.Review{
			Rating: review.Rating,
			Text:   review.Text,
			Time:   review.Time,
		})
	}
	return place
}

func (r *GoogleRepository) photoURL(photoReference string, maxWidth int) string {
	params := url.Values{}
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("photoreference", photoReference)
	params.Set("key", r.apiKey)
	return fmt.Sprintf("%s/photo?%s", r.baseURL, params.Encode())
}

// get performs one rate-limited GET against the provider.
func (r *GoogleRepository) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for provider rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s?%s", r.baseURL, path, params.Encode()), nil)
	if err != nil {
		return fmt.Errorf("failed to create places request: %w", err)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	metrics.Get().ProviderCallDurationSeconds.Record(ctx, time.Since(start).Seconds())
	metrics.Get().ProviderCallsTotal.Add(ctx, 1)
	if err != nil {
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1)
		return fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1)
		return fmt.Errorf("places request returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode places response: %w", err)
	}
	return nil
}
