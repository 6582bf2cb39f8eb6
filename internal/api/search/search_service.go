package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/api/geocoding"
	"github.com/JesuisMat/Flopmap-back-offi/internal/api/places"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

const (
	minRadiusMeters = 1
	maxRadiusMeters = 50000
	minMaxResults   = 1
	maxMaxResults   = 50
)

// InvalidInputError carries field-level validation failures; callers can fix
// and resubmit, so it is never retried internally.
type InvalidInputError struct {
	Details []string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid search parameters: %s", strings.Join(e.Details, "; "))
}

// ProviderHealth reports one external provider's reachability.
type ProviderHealth struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// HealthStatus aggregates per-provider self-tests.
type HealthStatus struct {
	OK        bool             `json:"ok"`
	Providers []ProviderHealth `json:"providers"`
	Timestamp time.Time        `json:"timestamp"`
}

var _ Service = (*ServiceImpl)(nil)

// Service is the single operation the HTTP layer consumes: resolve a query,
// aggregate nearby candidates, enrich, rank and shape the response.
type Service interface {
	Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error)
	Suggestions(query string) []string
	HealthCheck(ctx context.Context) *HealthStatus
}

type ServiceImpl struct {
	logger           *slog.Logger
	geocodingService geocoding.Service
	placesService    places.Service

	defaultRadius     int
	defaultMaxResults int
	maxCategories     int
}

func NewServiceImpl(geocodingService geocoding.Service, placesService places.Service, cfg *config.Config, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:            logger,
		geocodingService:  geocodingService,
		placesService:     placesService,
		defaultRadius:     cfg.Search.DefaultRadius,
		defaultMaxResults: cfg.Search.DefaultMaxResults,
		maxCategories:     cfg.Search.MaxCategories,
	}
}

// validate checks caller-correctable bounds. Zero values mean "use default"
// and are filled in before the pipeline runs.
func (s *ServiceImpl) validate(req *types.SearchRequest) error {
	details := make([]string, 0)

	if strings.TrimSpace(req.Query) == "" {
		details = append(details, "query: location query is required")
	}
	if req.Radius == 0 {
		req.Radius = s.defaultRadius
	}
	if req.Radius < minRadiusMeters || req.Radius > maxRadiusMeters {
		details = append(details, fmt.Sprintf("radius: must be between %d and %d meters", minRadiusMeters, maxRadiusMeters))
	}
	if req.MaxResults == 0 {
		req.MaxResults = s.defaultMaxResults
	}
	if req.MaxResults < minMaxResults || req.MaxResults > maxMaxResults {
		details = append(details, fmt.Sprintf("maxResults: must be between %d and %d", minMaxResults, maxMaxResults))
	}
	if len(req.PlaceTypes) > s.maxCategories {
		// Truncation, not rejection: at most maxCategories categories are queried.
		req.PlaceTypes = req.PlaceTypes[:s.maxCategories]
	}

	if len(details) > 0 {
		return &InvalidInputError{Details: details}
	}
	return nil
}

func (s *ServiceImpl) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("search.query", req.Query),
	))
	defer span.End()

	start := time.Now()

	if err := s.validate(&req); err != nil {
		span.SetStatus(codes.Error, "invalid search parameters")
		return nil, err
	}

	resolved, err := s.geocodingService.ValidateAndGeocode(ctx, req.Query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "Location resolved",
		slog.String("query", req.Query),
		slog.String("formatted", resolved.FormattedAddress),
		slog.String("kind", string(resolved.Kind)),
	)

	params := types.SearchParams{
		Coordinates: resolved.Coordinates,
		Radius:      req.Radius,
		MaxResults:  req.MaxResults,
		PlaceTypes:  req.PlaceTypes,
	}

	results, err := s.placesService.SearchWorstRated(ctx, params)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	executionTime := time.Since(start)
	span.SetAttributes(attribute.Int("results.display_count", results.DisplayCount))
	span.SetStatus(codes.Ok, "Search completed")
	s.logger.InfoContext(ctx, "Search completed",
		slog.Int("display_count", results.DisplayCount),
		slog.Int("total_found", results.TotalFound),
		slog.Duration("execution_time", executionTime),
	)

	return &types.SearchResponse{
		SearchID: uuid.New(),
		SearchQuery: types.SearchQueryEcho{
			Original:    resolved.Original,
			Kind:        resolved.Kind,
			Formatted:   resolved.FormattedAddress,
			Coordinates: resolved.Coordinates,
		},
		Results:         *results,
		SearchParams:    params,
		ExecutionTimeMs: executionTime.Milliseconds(),
		Timestamp:       time.Now().UTC(),
	}, nil
}

// popularCities seeds the suggestion list; the product is French-first.
var popularCities = []string{
	"Paris, France",
	"Lyon, France",
	"Marseille, France",
	"Toulouse, France",
	"Nice, France",
	"Nantes, France",
	"Strasbourg, France",
	"Montpellier, France",
	"Bordeaux, France",
	"Lille, France",
}

var partialPostalPattern = regexp.MustCompile(`^[0-9]{1,4}$`)

// Suggestions proposes query completions for a partial input. Purely local,
// no provider calls.
func (s *ServiceImpl) Suggestions(query string) []string {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < 2 {
		return []string{}
	}

	lower := strings.ToLower(trimmed)
	suggestions := make([]string, 0, 8)

	for _, city := range popularCities {
		if strings.Contains(strings.ToLower(city), lower) {
			suggestions = append(suggestions, city)
			if len(suggestions) == 5 {
				break
			}
		}
	}

	if partialPostalPattern.MatchString(lower) {
		padded := lower + strings.Repeat("0", 5-len(lower))
		suggestions = append(suggestions, fmt.Sprintf("%s (Code postal)", padded))
	}
	if strings.ContainsAny(lower, ",.") {
		suggestions = append(suggestions, "Exemple: 48.8566, 2.3522 (Coordonnées GPS)")
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions,
			`Exemples: "Paris, France"`,
			`Exemples: "75001"`,
			`Exemples: "48.8566, 2.3522"`,
		)
	}

	if len(suggestions) > 8 {
		suggestions = suggestions[:8]
	}
	return suggestions
}

// HealthCheck runs one cheap self-test per provider.
func (s *ServiceImpl) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{OK: true, Timestamp: time.Now().UTC()}

	for _, check := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"geocoding", s.geocodingService.Ping},
		{"places", s.placesService.Ping},
	} {
		health := ProviderHealth{Name: check.name, OK: true}
		if err := check.ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Provider ping failed",
				slog.String("provider", check.name),
				slog.Any("error", err),
			)
			health.OK = false
			health.Detail = err.Error()
			status.OK = false
		}
		status.Providers = append(status.Providers, health)
	}
	return status
}
