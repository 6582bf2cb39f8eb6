package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/JesuisMat/Flopmap-back-offi/config"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service runs the worst-rated aggregation pipeline: nearby search per
// category, detail enrichment, ranking and crunchy-review extraction.
type Service interface {
	SearchWorstRated(ctx context.Context, params types.SearchParams) (*types.SearchResults, error)
	// Ping verifies the places provider is reachable and accepting requests.
	Ping(ctx context.Context) error
}

type ServiceImpl struct {
	logger     *slog.Logger
	placesRepo Repository

	maxCategories    int
	detailBatchSize  int
	batchDelay       time.Duration
	reviewStarCutoff int
	minReviews       int
	crunchyCount     int

	now func() time.Time
}

func NewServiceImpl(placesRepo Repository, cfg *config.Config, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:           logger,
		placesRepo:       placesRepo,
		maxCategories:    cfg.Search.MaxCategories,
		detailBatchSize:  cfg.Search.DetailBatchSize,
		batchDelay:       cfg.Search.BatchDelay,
		reviewStarCutoff: cfg.Search.ReviewStarCutoff,
		minReviews:       cfg.Search.MinReviews,
		crunchyCount:     cfg.Search.CrunchyReviewCount,
		now:              time.Now,
	}
}

// SearchWorstRated is a pure transform of its inputs plus provider responses;
// no state survives between runs.
func (s *ServiceImpl) SearchWorstRated(ctx context.Context, params types.SearchParams) (*types.SearchResults, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "SearchWorstRated", trace.WithAttributes(
		attribute.Int("search.radius", params.Radius),
		attribute.Int("search.max_results", params.MaxResults),
	))
	defer span.End()

	candidates, quotaHit := s.aggregateCandidates(ctx, params.Coordinates, params.Radius, params.PlaceTypes)
	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))

	if len(candidates) == 0 {
		if quotaHit {
			span.SetStatus(codes.Error, "provider quota exhausted")
			return nil, ErrQuotaExceeded
		}
		s.logger.InfoContext(ctx, "No establishments found in this area")
		return &types.SearchResults{Places: []types.PlaceResult{}}, nil
	}

	enriched, err := s.enrichCandidates(ctx, candidates)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "Candidate enrichment finished",
		slog.Int("candidates", len(candidates)),
		slog.Int("enriched", len(enriched)),
	)

	ranked := s.rankWorstRated(enriched, params.MaxResults)

	results := &types.SearchResults{
		Places:       make([]types.PlaceResult, 0, len(ranked)),
		TotalFound:   len(candidates),
		DisplayCount: len(ranked),
	}
	for _, place := range ranked {
		results.Places = append(results.Places, s.assemblePlace(place))
	}

	span.SetStatus(codes.Ok, "Worst-rated search completed")
	return results, nil
}

// Ping issues a minimal nearby search against a known-good coordinate.
func (s *ServiceImpl) Ping(ctx context.Context) error {
	_, err := s.placesRepo.SearchNearby(ctx, types.Coordinates{Lat: 48.8566, Lng: 2.3522}, 1000, "restaurant")
	if err != nil {
		return fmt.Errorf("places provider ping failed: %w", err)
	}
	return nil
}

// aggregateCandidates merges nearby results across categories, deduplicating
// by provider place ID. The first category to surface a place owns its tag.
// A quota error aborts the remaining categories; a transient one skips only
// the affected category.
func (s *ServiceImpl) aggregateCandidates(ctx context.Context, location types.Coordinates, radius int, categories []string) ([]types.Candidate, bool) {
	searchCategories := categories
	if len(searchCategories) == 0 {
		searchCategories = defaultCategories
	}
	if len(searchCategories) > s.maxCategories {
		// Documented limitation: at most maxCategories nearby calls per search.
		searchCategories = searchCategories[:s.maxCategories]
	}

	seen := make(map[string]struct{})
	merged := make([]types.Candidate, 0)
	quotaHit := false

	for _, category := range searchCategories {
		found, err := s.placesRepo.SearchNearby(ctx, location, radius, category)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) {
				s.logger.WarnContext(ctx, "Provider quota reached, aborting remaining categories",
					slog.String("category", category),
				)
				quotaHit = true
				break
			}
			s.logger.WarnContext(ctx, "Nearby search failed, skipping category",
				slog.String("category", category),
				slog.Any("error", err),
			)
			continue
		}

		added := 0
		for _, candidate := range found {
			if _, dup := seen[candidate.PlaceID]; dup {
				continue
			}
			seen[candidate.PlaceID] = struct{}{}
			merged = append(merged, candidate)
			added++
		}
		s.logger.DebugContext(ctx, "Category searched",
			slog.String("category", category),
			slog.Int("results", len(found)),
			slog.Int("new", added),
		)
	}

	return merged, quotaHit
}

// enrichCandidates fetches details in fixed-size concurrent batches, waiting
// for each batch before the next and pausing between batches for provider
// courtesy. A failed item is dropped, never retried inline.
func (s *ServiceImpl) enrichCandidates(ctx context.Context, candidates []types.Candidate) ([]types.EnrichedPlace, error) {
	enriched := make([]types.EnrichedPlace, 0, len(candidates))

	for start := 0; start < len(candidates); start += s.detailBatchSize {
		end := start + s.detailBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]
		results := make([]*types.EnrichedPlace, len(batch))

		g, batchCtx := errgroup.WithContext(ctx)
		for i, candidate := range batch {
			g.Go(func() error {
				place, err := s.placesRepo.GetDetails(batchCtx, candidate.PlaceID)
				if err != nil {
					s.logger.WarnContext(batchCtx, "Detail fetch failed, dropping candidate",
						slog.String("place_id", candidate.PlaceID),
						slog.String("name", candidate.Name),
						slog.Any("error", err),
					)
					return nil
				}
				place.SearchCategory = candidate.SearchCategory
				if place.Name == "" {
					place.Name = candidate.Name
				}
				results[i] = place
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return enriched, err
		}

		for _, place := range results {
			if place != nil {
				enriched = append(enriched, *place)
			}
		}

		if end < len(candidates) {
			select {
			case <-ctx.Done():
				return enriched, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
	}

	return enriched, nil
}

// rankWorstRated filters out places without a rating or enough reviews, sorts
// ascending by rating (near-equal ratings prefer the better-reviewed, hence
// statistically steadier, low score) and truncates to maxResults.
func (s *ServiceImpl) rankWorstRated(enriched []types.EnrichedPlace, maxResults int) []types.EnrichedPlace {
	filtered := make([]types.EnrichedPlace, 0, len(enriched))
	for _, place := range enriched {
		if place.Rating == nil || place.ReviewCount < s.minReviews {
			continue
		}
		filtered = append(filtered, place)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		ri, rj := *filtered[i].Rating, *filtered[j].Rating
		if math.Abs(ri-rj) < 0.1 {
			return filtered[i].ReviewCount > filtered[j].ReviewCount
		}
		return ri < rj
	})

	if len(filtered) > maxResults {
		filtered = filtered[:maxResults]
	}
	return filtered
}

// assemblePlace shapes one ranked place for the presentation layer.
func (s *ServiceImpl) assemblePlace(place types.EnrichedPlace) types.PlaceResult {
	display := DisplayForCategory(place.SearchCategory)
	return types.PlaceResult{
		ID:             place.PlaceID,
		Name:           place.Name,
		Rating:         place.Rating,
		ReviewCount:    place.ReviewCount,
		Address:        place.Address,
		Location:       place.Location,
		Categories:     place.Categories,
		CategoryLabel:  display.Label,
		CategoryIcon:   display.Icon,
		PriceLevel:     place.PriceLevel,
		IsOpen:         place.OpenNow,
		Photos:         place.Photos,
		Website:        place.Website,
		PhoneNumber:    place.PhoneNumber,
		CrunchyReviews: extractCrunchyReviews(place.Reviews, s.reviewStarCutoff, s.crunchyCount, s.now()),
		SearchCategory: place.SearchCategory,
	}
}
