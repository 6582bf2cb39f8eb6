package places

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/JesuisMat/Flopmap-back-offi/app/observability/metrics"
	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) *GoogleRepository {
	t.Helper()
	metrics.InitAppMetrics()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Config{}
	cfg.Provider.PlacesURL = server.URL
	cfg.Provider.Language = "fr"
	cfg.Provider.Timeout = 5 * time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGoogleRepository(&cfg, "test-key", rate.NewLimiter(rate.Inf, 1), logger)
}

func TestSearchNearby_MapsCandidates(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "restaurant", r.URL.Query().Get("type"))
		assert.Equal(t, "5000", r.URL.Query().Get("radius"))

		fmt.Fprint(w, `{
			"status": "OK",
			"results": [
				{"place_id": "p1", "name": "Chez Momo"},
				{"place_id": "p2", "name": "Le Comptoir"}
			]
		}`)
	})

	candidates, err := repo.SearchNearby(context.Background(), types.Coordinates{Lat: 48.8566, Lng: 2.3522}, 5000, "restaurant")
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, "p1", candidates[0].PlaceID)
	assert.Equal(t, "restaurant", candidates[0].SearchCategory)
}

func TestSearchNearby_ZeroResultsIsNotAnError(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	})

	candidates, err := repo.SearchNearby(context.Background(), types.Coordinates{}, 5000, "pharmacy")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchNearby_QuotaStatus(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "OVER_QUERY_LIMIT", "results": []}`)
	})

	_, err := repo.SearchNearby(context.Background(), types.Coordinates{}, 5000, "bar")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestSearchNearby_ThrottledByLimiter(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	})
	// Burst of one: the second and third calls each wait a full interval.
	repo.limiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := repo.SearchNearby(context.Background(), types.Coordinates{}, 5000, "bar")
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestGetDetails_FlattensOptionalFields(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "fr", r.URL.Query().Get("language"))

		fmt.Fprint(w, `{
			"status": "OK",
			"result": {
				"place_id": "p1",
				"name": "Chez Momo",
				"rating": 1.6,
				"user_ratings_total": 89,
				"formatted_address": "1 rue de la Soif, Paris",
				"geometry": {"location": {"lat": 48.85, "lng": 2.35}},
				"types": ["restaurant", "food"],
				"price_level": 2,
				"opening_hours": {"open_now": true},
				"photos": [
					{"photo_reference": "ref1", "width": 800, "height": 600},
					{"photo_reference": "ref2", "width": 800, "height": 600},
					{"photo_reference": "ref3", "width": 800, "height": 600},
					{"photo_reference": "ref4", "width": 800, "height": 600}
				],
				"reviews": [
					{"rating": 1, "text": "Infect.", "time": 1700000000}
				]
			}
		}`)
	})

	place, err := repo.GetDetails(context.Background(), "p1")
	require.NoError(t, err)

	require.NotNil(t, place.Rating)
	assert.Equal(t, 1.6, *place.Rating)
	assert.Equal(t, 89, place.ReviewCount)
	require.NotNil(t, place.OpenNow)
	assert.True(t, *place.OpenNow)
	require.NotNil(t, place.PriceLevel)
	assert.Equal(t, 2, *place.PriceLevel)

	// Photo count is capped, and both sizes carry the reference.
	require.Len(t, place.Photos, maxPhotosPerPlace)
	assert.Contains(t, place.Photos[0].URL, "maxwidth=400")
	assert.Contains(t, place.Photos[0].ThumbnailURL, "maxwidth=150")
	assert.Contains(t, place.Photos[0].URL, "photoreference=ref1")

	require.Len(t, place.Reviews, 1)
	assert.Equal(t, 1, place.Reviews[0].Rating)
}

func TestGetDetails_MissingOptionalFields(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "OK", "result": {"place_id": "p1", "name": "Chez Momo"}}`)
	})

	place, err := repo.GetDetails(context.Background(), "p1")
	require.NoError(t, err)

	assert.Nil(t, place.Rating)
	assert.Nil(t, place.OpenNow)
	assert.Nil(t, place.PriceLevel)
	assert.Zero(t, place.ReviewCount)
	assert.Empty(t, place.Reviews)
}

func TestGetDetails_NotFoundStatus(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "NOT_FOUND"}`)
	})

	_, err := repo.GetDetails(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrDetailsUnavailable)
}
