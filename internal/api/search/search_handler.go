package search

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/JesuisMat/Flopmap-back-offi/app/observability/metrics"
	"github.com/JesuisMat/Flopmap-back-offi/internal/api"
	"github.com/JesuisMat/Flopmap-back-offi/internal/api/geocoding"
	"github.com/JesuisMat/Flopmap-back-offi/internal/api/places"
	"github.com/JesuisMat/Flopmap-back-offi/internal/types"
)

type Handler struct {
	searchService Service
	logger        *slog.Logger
}

func NewHandler(searchService Service, logger *slog.Logger) *Handler {
	return &Handler{
		searchService: searchService,
		logger:        logger,
	}
}

// SearchWorstRated handles POST /api/v1/search.
func (h *Handler) SearchWorstRated(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "SearchWorstRated", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/search"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchWorstRated"))
	start := time.Now()

	var req types.SearchRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.searchService.Search(ctx, req)
	metrics.Get().SearchRequestsTotal.Add(ctx, 1)
	metrics.Get().SearchDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		h.writeSearchError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, response)
}

// writeSearchError maps pipeline failures to the outward error taxonomy.
// Internal detail never leaks past the generic 500 message.
func (h *Handler) writeSearchError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	ctx := r.Context()

	var invalidInput *InvalidInputError
	var notResolved *geocoding.NotResolvedError

	switch {
	case errors.As(err, &invalidInput):
		l.WarnContext(ctx, "Invalid search parameters", slog.Any("details", invalidInput.Details))
		api.DetailedErrorResponse(w, r, http.StatusBadRequest, "Paramètres invalides", map[string]interface{}{
			"details": invalidInput.Details,
		})

	case errors.Is(err, geocoding.ErrEmptyQuery):
		api.ErrorResponse(w, r, http.StatusBadRequest, "La requête géographique est requise")

	case errors.Is(err, geocoding.ErrInvalidCoordinates):
		api.ErrorResponse(w, r, http.StatusBadRequest, "Coordonnées invalides (latitude: -90 à 90, longitude: -180 à 180)")

	case errors.As(err, &notResolved):
		l.InfoContext(ctx, "Location not resolved", slog.String("query", notResolved.Query))
		api.DetailedErrorResponse(w, r, http.StatusBadRequest, "Impossible de localiser cette adresse", map[string]interface{}{
			"suggestions": notResolved.Suggestions,
		})

	case errors.Is(err, geocoding.ErrQuotaExceeded), errors.Is(err, places.ErrQuotaExceeded):
		l.WarnContext(ctx, "Provider quota exhausted")
		api.ErrorResponse(w, r, http.StatusTooManyRequests, "Limite de requêtes API atteinte. Réessayez plus tard.")

	case errors.Is(err, geocoding.ErrAccessDenied):
		l.ErrorContext(ctx, "Provider denied access", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Service de recherche temporairement indisponible")

	default:
		l.ErrorContext(ctx, "Search failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Erreur interne du serveur")
	}
}

// GetSuggestions handles GET /api/v1/search/suggestions?query=...
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "GetSuggestions", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/search/suggestions"),
	))
	defer span.End()

	query := r.URL.Query().Get("query")
	suggestions := h.searchService.Suggestions(query)

	h.logger.DebugContext(ctx, "Suggestions generated",
		slog.String("query", query),
		slog.Int("count", len(suggestions)),
	)
	api.WriteJSONResponse(w, r, http.StatusOK, types.SuggestionsResponse{Suggestions: suggestions})
}

// Health handles GET /api/v1/health: provider self-tests, 503 when degraded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "Health")
	defer span.End()

	status := h.searchService.HealthCheck(ctx)
	code := http.StatusOK
	if !status.OK {
		code = http.StatusServiceUnavailable
	}
	api.WriteJSONResponse(w, r, code, status)
}
