package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/api/geocoding"
	"github.com/JesuisMat/Flopmap-back-offi/internal/api/places"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

// MockGeocodingService is a mock implementation of geocoding.Service
type MockGeocodingService struct {
	mock.Mock
}

func (m *MockGeocodingService) ValidateAndGeocode(ctx context.Context, query string) (*types.ResolvedLocation, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ResolvedLocation), args.Error(1)
}

func (m *MockGeocodingService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPlacesService is a mock implementation of places.Service
type MockPlacesService struct {
	mock.Mock
}

func (m *MockPlacesService) SearchWorstRated(ctx context.Context, params types.SearchParams) (*types.SearchResults, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SearchResults), args.Error(1)
}

func (m *MockPlacesService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestSearchService(geo geocoding.Service, pl places.Service) *ServiceImpl {
	cfg := config.Config{}
	cfg.Search.DefaultRadius = 5000
	cfg.Search.DefaultMaxResults = 10
	cfg.Search.MaxCategories = 6
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServiceImpl(geo, pl, &cfg, logger)
}

var parisLocation = types.ResolvedLocation{
	Original:         "Paris, France",
	Kind:             types.LocationKindCityCountry,
	Coordinates:      types.Coordinates{Lat: 48.8566, Lng: 2.3522},
	FormattedAddress: "Paris, France",
}

func emptyResults() *types.SearchResults {
	return &types.SearchResults{Places: []types.PlaceResult{}}
}

func TestSearch_EmptyQueryIsInvalid(t *testing.T) {
	svc := newTestSearchService(new(MockGeocodingService), new(MockPlacesService))

	_, err := svc.Search(context.Background(), types.SearchRequest{Query: "   "})

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Details[0], "query")
}

func TestSearch_OutOfBoundsParameters(t *testing.T) {
	svc := newTestSearchService(new(MockGeocodingService), new(MockPlacesService))

	_, err := svc.Search(context.Background(), types.SearchRequest{
		Query:      "Paris, France",
		Radius:     60000,
		MaxResults: 100,
	})

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.Details, 2)
}

func TestSearch_ZeroValuesFallBackToDefaults(t *testing.T) {
	geo := new(MockGeocodingService)
	pl := new(MockPlacesService)
	svc := newTestSearchService(geo, pl)

	geo.On("ValidateAndGeocode", mock.Anything, "Paris, France").Return(&parisLocation, nil).Once()
	pl.On("SearchWorstRated", mock.Anything, mock.MatchedBy(func(params types.SearchParams) bool {
		return params.Radius == 5000 && params.MaxResults == 10
	})).Return(emptyResults(), nil).Once()

	resp, err := svc.Search(context.Background(), types.SearchRequest{Query: "Paris, France"})
	require.NoError(t, err)
	assert.Equal(t, 5000, resp.SearchParams.Radius)
	pl.AssertExpectations(t)
}

func TestSearch_ExcessCategoriesAreTruncatedNotRejected(t *testing.T) {
	geo := new(MockGeocodingService)
	pl := new(MockPlacesService)
	svc := newTestSearchService(geo, pl)

	geo.On("ValidateAndGeocode", mock.Anything, "Paris, France").Return(&parisLocation, nil).Once()
	pl.On("SearchWorstRated", mock.Anything, mock.MatchedBy(func(params types.SearchParams) bool {
		return len(params.PlaceTypes) == 6
	})).Return(emptyResults(), nil).Once()

	_, err := svc.Search(context.Background(), types.SearchRequest{
		Query:      "Paris, France",
		PlaceTypes: []string{"restaurant", "cafe", "bar", "hotel", "store", "bank", "pharmacy", "hospital"},
	})
	require.NoError(t, err)
	pl.AssertExpectations(t)
}

func TestSearch_EnvelopeEchoesResolvedQuery(t *testing.T) {
	geo := new(MockGeocodingService)
	pl := new(MockPlacesService)
	svc := newTestSearchService(geo, pl)

	rating := 1.4
	geo.On("ValidateAndGeocode", mock.Anything, "75001").Return(&types.ResolvedLocation{
		Original:         "75001",
		Kind:             types.LocationKindPostalCode,
		Coordinates:      types.Coordinates{Lat: 48.8629, Lng: 2.3364},
		FormattedAddress: "75001 Paris, France",
		CountryCode:      "FR",
	}, nil).Once()
	pl.On("SearchWorstRated", mock.Anything, mock.Anything).Return(&types.SearchResults{
		Places: []types.PlaceResult{
			{ID: "worst", Name: "Le Pire", Rating: &rating, ReviewCount: 42},
		},
		TotalFound:   7,
		DisplayCount: 1,
	}, nil).Once()

	resp, err := svc.Search(context.Background(), types.SearchRequest{Query: "75001"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.SearchID)
	assert.Equal(t, "75001", resp.SearchQuery.Original)
	assert.Equal(t, types.LocationKindPostalCode, resp.SearchQuery.Kind)
	assert.Equal(t, "75001 Paris, France", resp.SearchQuery.Formatted)
	assert.Equal(t, 7, resp.Results.TotalFound)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestSearch_GeocodingErrorsPropagate(t *testing.T) {
	geo := new(MockGeocodingService)
	pl := new(MockPlacesService)
	svc := newTestSearchService(geo, pl)

	geo.On("ValidateAndGeocode", mock.Anything, "Xyzzyville").Return(nil, &geocoding.NotResolvedError{
		Query:       "Xyzzyville",
		Kind:        types.LocationKindCity,
		Suggestions: []string{"Essayez d'ajouter le pays"},
	}).Once()

	_, err := svc.Search(context.Background(), types.SearchRequest{Query: "Xyzzyville"})

	var notResolved *geocoding.NotResolvedError
	assert.ErrorAs(t, err, &notResolved)
	pl.AssertNotCalled(t, "SearchWorstRated", mock.Anything, mock.Anything)
}

func TestSuggestions(t *testing.T) {
	svc := newTestSearchService(new(MockGeocodingService), new(MockPlacesService))

	t.Run("too short", func(t *testing.T) {
		assert.Empty(t, svc.Suggestions("p"))
	})

	t.Run("city match", func(t *testing.T) {
		suggestions := svc.Suggestions("par")
		assert.Contains(t, suggestions, "Paris, France")
	})

	t.Run("partial postal code", func(t *testing.T) {
		suggestions := svc.Suggestions("750")
		assert.Contains(t, suggestions, "75000 (Code postal)")
	})

	t.Run("coordinate-looking input", func(t *testing.T) {
		suggestions := svc.Suggestions("48.85, 2.35")
		assert.Contains(t, suggestions, "Exemple: 48.8566, 2.3522 (Coordonnées GPS)")
	})

	t.Run("no match falls back to examples", func(t *testing.T) {
		suggestions := svc.Suggestions("zzz")
		assert.Len(t, suggestions, 3)
	})

	t.Run("never more than eight", func(t *testing.T) {
		assert.LessOrEqual(t, len(svc.Suggestions("an")), 8)
	})
}

func TestHealthCheck_DegradesWhenOneProviderFails(t *testing.T) {
	geo := new(MockGeocodingService)
	pl := new(MockPlacesService)
	svc := newTestSearchService(geo, pl)

	geo.On("Ping", mock.Anything).Return(nil).Once()
	pl.On("Ping", mock.Anything).Return(errors.New("quota exhausted")).Once()

	status := svc.HealthCheck(context.Background())

	assert.False(t, status.OK)
	require.Len(t, status.Providers, 2)
	assert.True(t, status.Providers[0].OK)
	assert.False(t, status.Providers[1].OK)
	assert.Contains(t, status.Providers[1].Detail, "quota")
}
