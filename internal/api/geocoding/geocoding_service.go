package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

var ErrEmptyQuery = errors.New("location query is required")
var ErrInvalidCoordinates = errors.New("coordinates out of range (latitude: -90 to 90, longitude: -180 to 180)")

// NotResolvedError is returned when the provider cannot geocode a query.
// It carries kind-specific suggestions for the caller to surface.
type NotResolvedError struct {
	Query       string
	Kind        types.LocationKind
	Suggestions []string
}

func (e *NotResolvedError) Error() string {
	return fmt.Sprintf("could not resolve location %q (%s)", e.Query, e.Kind)
}

var _ Service = (*ServiceImpl)(nil)

// Service defines the location-resolution contract consumed by the search pipeline.
type Service interface {
	ValidateAndGeocode(ctx context.Context, query string) (*types.ResolvedLocation, error)
	// Ping verifies the geocoding provider is reachable and accepting requests.
	Ping(ctx context.Context) error
}

type ServiceImpl struct {
	logger      *slog.Logger
	geocodeRepo Repository
	cache       *cache.Cache
}

func NewServiceImpl(geocodeRepo Repository, cfg *config.Config, logger *slog.Logger) *ServiceImpl {
	ttl := cfg.Search.GeocodeCacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ServiceImpl{
		logger:      logger,
		geocodeRepo: geocodeRepo,
		cache:       cache.New(ttl, 1*time.Hour),
	}
}

// Classification patterns, tested in order of specificity. The French postal
// pattern wins over the US one for bare 5-digit queries.
var (
	coordinatesPattern  = regexp.MustCompile(`^-?[0-9]+\.?[0-9]*,\s?-?[0-9]+\.?[0-9]*$`)
	postalCodeFRPattern = regexp.MustCompile(`^[0-9]{5}$`)
	postalCodeCAPattern = regexp.MustCompile(`(?i)^[A-Z][0-9][A-Z]\s?[0-9][A-Z][0-9]$`)
	postalCodeUSPattern = regexp.MustCompile(`^[0-9]{5}(-[0-9]{4})?$`)
	postalCodeUKPattern = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9]{1,2}[A-Z]?\s?[0-9][A-Z]{2}$`)
	cityCountryPattern  = regexp.MustCompile(`^[^,]+,\s?[^,]+$`)
)

// DetectedLocation is the classification outcome for a raw query, before any
// provider call.
type DetectedLocation struct {
	Kind        types.LocationKind
	Formatted   string
	CountryCode string
	Coordinates *types.Coordinates
}

// DetectLocationKind classifies a trimmed query; the first matching pattern wins.
func DetectLocationKind(query string) DetectedLocation {
	trimmed := strings.TrimSpace(query)

	if coordinatesPattern.MatchString(trimmed) {
		parts := strings.SplitN(trimmed, ",", 2)
		lat, _ := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lng, _ := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		return DetectedLocation{
			Kind:        types.LocationKindCoordinates,
			Formatted:   fmt.Sprintf("%v, %v", lat, lng),
			Coordinates: &types.Coordinates{Lat: lat, Lng: lng},
		}
	}

	if postalCodeFRPattern.MatchString(trimmed) {
		return DetectedLocation{
			Kind:        types.LocationKindPostalCode,
			CountryCode: "FR",
			Formatted:   fmt.Sprintf("%s, France", trimmed),
		}
	}

	if postalCodeCAPattern.MatchString(trimmed) {
		return DetectedLocation{
			Kind:        types.LocationKindPostalCode,
			CountryCode: "CA",
			Formatted:   fmt.Sprintf("%s, Canada", strings.ToUpper(trimmed)),
		}
	}

	if postalCodeUSPattern.MatchString(trimmed) {
		return DetectedLocation{
			Kind:        types.LocationKindPostalCode,
			CountryCode: "US",
			Formatted:   fmt.Sprintf("%s, USA", trimmed),
		}
	}

	if postalCodeUKPattern.MatchString(trimmed) {
		return DetectedLocation{
			Kind:        types.LocationKindPostalCode,
			CountryCode: "UK",
			Formatted:   fmt.Sprintf("%s, UK", strings.ToUpper(trimmed)),
		}
	}

	if cityCountryPattern.MatchString(trimmed) {
		return DetectedLocation{
			Kind:      types.LocationKindCityCountry,
			Formatted: trimmed,
		}
	}

	return DetectedLocation{
		Kind:      types.LocationKindCity,
		Formatted: trimmed,
	}
}

// ValidateAndGeocode classifies the query and resolves it to a coordinate pair.
// Raw coordinates are validated locally without a provider call.
func (s *ServiceImpl) ValidateAndGeocode(ctx context.Context, query string) (*types.ResolvedLocation, error) {
	ctx, span := otel.Tracer("GeocodingService").Start(ctx, "ValidateAndGeocode")
	defer span.End()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}

	detected := DetectLocationKind(trimmed)
	span.SetAttributes(attribute.String("location.kind", string(detected.Kind)))
	s.logger.DebugContext(ctx, "Location kind detected",
		slog.String("query", trimmed),
		slog.String("kind", string(detected.Kind)),
	)

	if detected.Kind == types.LocationKindCoordinates {
		if !detected.Coordinates.InBounds() {
			span.SetStatus(codes.Error, "coordinates out of range")
			return nil, ErrInvalidCoordinates
		}
		return &types.ResolvedLocation{
			Original:         trimmed,
			Kind:             detected.Kind,
			Coordinates:      *detected.Coordinates,
			FormattedAddress: detected.Formatted,
		}, nil
	}

	if cached, found := s.cache.Get(detected.Formatted); found {
		s.logger.DebugContext(ctx, "Geocode cache hit", slog.String("address", detected.Formatted))
		resolved := cached.(types.ResolvedLocation)
		resolved.Original = trimmed
		return &resolved, nil
	}

	result, err := s.geocodeRepo.Geocode(ctx, detected.Formatted)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrAccessDenied) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "Geocoding failed",
			slog.String("address", detected.Formatted),
			slog.Any("error", err),
		)
		return nil, &NotResolvedError{
			Query:       trimmed,
			Kind:        detected.Kind,
			Suggestions: suggestionsForKind(detected.Kind),
		}
	}

	resolved := types.ResolvedLocation{
		Original:         trimmed,
		Kind:             detected.Kind,
		Coordinates:      result.Coordinates,
		FormattedAddress: result.FormattedAddress,
		CountryCode:      detected.CountryCode,
		Components:       result.Components,
		ProviderPlaceID:  result.ProviderPlaceID,
	}
	if resolved.CountryCode == "" && result.Components != nil {
		resolved.CountryCode = result.Components.CountryCode
	}

	s.cache.Set(detected.Formatted, resolved, cache.DefaultExpiration)

	span.SetStatus(codes.Ok, "Location resolved")
	return &resolved, nil
}

// Ping geocodes a known-good address straight through the repository,
// bypassing the cache, so a stale entry cannot mask a provider outage.
func (s *ServiceImpl) Ping(ctx context.Context) error {
	_, err := s.geocodeRepo.Geocode(ctx, "Paris, France")
	if err != nil {
		return fmt.Errorf("geocoding provider ping failed: %w", err)
	}
	return nil
}

// suggestionsForKind mirrors the hints shown to users when a query cannot be
// resolved. The product surface is French.
func suggestionsForKind(kind types.LocationKind) []string {
	switch kind {
	case types.LocationKindCity:
		return []string{
			`Essayez d'ajouter le pays (ex: "Paris, France")`,
			"Vérifiez l'orthographe de la ville",
			"Utilisez un code postal à la place",
		}
	case types.LocationKindPostalCode:
		return []string{
			"Vérifiez le format du code postal",
			"Essayez avec le nom de la ville",
		}
	case types.LocationKindCityCountry:
		return []string{
			"Vérifiez l'orthographe de la ville et du pays",
			`Essayez un format différent (ex: "Paris, FR")`,
		}
	default:
		return []string{
			"Vérifiez l'orthographe",
			"Utilisez un format standard (ville, pays)",
			"Essayez avec des coordonnées GPS",
		}
	}
}
