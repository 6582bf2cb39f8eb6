package geocoding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GeocodeResult), args.Error(1)
}

func newTestService(repo Repository) *ServiceImpl {
	cfg := config.Config{}
	cfg.Search.GeocodeCacheTTL = 1 * time.Hour
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServiceImpl(repo, &cfg, logger)
}

func TestDetectLocationKind(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantKind    types.LocationKind
		wantCountry string
		wantFmt     string
	}{
		{"gps coordinates", "48.8566, 2.3522", types.LocationKindCoordinates, "", "48.8566, 2.3522"},
		{"gps coordinates no space", "48.8566,2.3522", types.LocationKindCoordinates, "", "48.8566, 2.3522"},
		{"negative coordinates", "-33.8688, 151.2093", types.LocationKindCoordinates, "", "-33.8688, 151.2093"},
		{"french postal code", "75001", types.LocationKindPostalCode, "FR", "75001, France"},
		{"canadian postal code", "H3T 1J4", types.LocationKindPostalCode, "CA", "H3T 1J4, Canada"},
		{"canadian postal code lowercase", "h3t1j4", types.LocationKindPostalCode, "CA", "H3T1J4, Canada"},
		{"us zip+4", "90210-1234", types.LocationKindPostalCode, "US", "90210-1234, USA"},
		{"uk postal code", "SW1A 1AA", types.LocationKindPostalCode, "UK", "SW1A 1AA, UK"},
		{"city and country", "Paris, France", types.LocationKindCityCountry, "", "Paris, France"},
		{"bare city", "Marseille", types.LocationKindCity, "", "Marseille"},
		{"city with spaces", "  Lyon  ", types.LocationKindCity, "", "Lyon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected := DetectLocationKind(tt.query)
			assert.Equal(t, tt.wantKind, detected.Kind)
			assert.Equal(t, tt.wantCountry, detected.CountryCode)
			assert.Equal(t, tt.wantFmt, detected.Formatted)
		})
	}
}

func TestValidateAndGeocode_CoordinatesSkipProvider(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	resolved, err := svc.ValidateAndGeocode(context.Background(), "48.8566, 2.3522")
	require.NoError(t, err)
	assert.Equal(t, types.LocationKindCoordinates, resolved.Kind)
	assert.InDelta(t, 48.8566, resolved.Coordinates.Lat, 0.0001)
	assert.InDelta(t, 2.3522, resolved.Coordinates.Lng, 0.0001)

	// Raw coordinates never touch the provider.
	repo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestValidateAndGeocode_CoordinatesOutOfRange(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	tests := []string{"95.0, 2.3522", "48.8566, 192.5", "-91.0, 0.0"}
	for _, query := range tests {
		_, err := svc.ValidateAndGeocode(context.Background(), query)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "query %q", query)
	}
	repo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestValidateAndGeocode_EmptyQuery(t *testing.T) {
	svc := newTestService(new(MockRepository))

	_, err := svc.ValidateAndGeocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestValidateAndGeocode_FrenchPostalCode(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("Geocode", mock.Anything, "75001, France").Return(&GeocodeResult{
		Coordinates:      types.Coordinates{Lat: 48.8629, Lng: 2.3364},
		FormattedAddress: "75001 Paris, France",
		Components: &types.AddressComponents{
			City:        "Paris",
			Country:     "France",
			CountryCode: "FR",
			PostalCode:  "75001",
		},
	}, nil).Once()

	resolved, err := svc.ValidateAndGeocode(context.Background(), "75001")
	require.NoError(t, err)
	assert.Equal(t, types.LocationKindPostalCode, resolved.Kind)
	assert.Equal(t, "FR", resolved.CountryCode)
	assert.Equal(t, "75001 Paris, France", resolved.FormattedAddress)
	assert.Equal(t, "75001", resolved.Original)
	repo.AssertExpectations(t)
}

func TestValidateAndGeocode_CacheHit(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("Geocode", mock.Anything, "Paris, France").Return(&GeocodeResult{
		Coordinates:      types.Coordinates{Lat: 48.8566, Lng: 2.3522},
		FormattedAddress: "Paris, France",
	}, nil).Once()

	_, err := svc.ValidateAndGeocode(context.Background(), "Paris, France")
	require.NoError(t, err)

	// Second resolution of the same formatted address is served from cache.
	resolved, err := svc.ValidateAndGeocode(context.Background(), "Paris, France")
	require.NoError(t, err)
	assert.Equal(t, "Paris, France", resolved.FormattedAddress)
	repo.AssertNumberOfCalls(t, "Geocode", 1)
}

func TestValidateAndGeocode_NotResolvedCarriesSuggestions(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("Geocode", mock.Anything, "Xyzzyville").Return(nil, ErrNotFound).Once()

	_, err := svc.ValidateAndGeocode(context.Background(), "Xyzzyville")
	var notResolved *NotResolvedError
	require.ErrorAs(t, err, &notResolved)
	assert.Equal(t, types.LocationKindCity, notResolved.Kind)
	assert.NotEmpty(t, notResolved.Suggestions)
}

func TestValidateAndGeocode_QuotaAndDeniedPropagate(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("Geocode", mock.Anything, "Lyon, France").Return(nil, ErrQuotaExceeded).Once()
	_, err := svc.ValidateAndGeocode(context.Background(), "Lyon, France")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	repo.On("Geocode", mock.Anything, "Nice, France").Return(nil, ErrAccessDenied).Once()
	_, err = svc.ValidateAndGeocode(context.Background(), "Nice, France")
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Provider-level failures must not be wrapped as NotResolvedError.
	var notResolved *NotResolvedError
	assert.False(t, errors.As(err, &notResolved))
}
