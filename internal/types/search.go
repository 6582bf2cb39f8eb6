package types

import (
	"time"

	"github.com/google/uuid"
)

// SearchRequest is the JSON body accepted by the worst-rated search endpoint.
// Zero-valued optional fields fall back to configured defaults.
type SearchRequest struct {
	Query      string   `json:"query"`
	Radius     int      `json:"radius,omitempty"`
	MaxResults int      `json:"maxResults,omitempty"`
	PlaceTypes []string `json:"placeTypes,omitempty"`
}

// SearchQueryEcho echoes back how the query was understood.
type SearchQueryEcho struct {
	Original    string       `json:"original"`
	Kind        LocationKind `json:"type"`
	Formatted   string       `json:"formatted"`
	Coordinates Coordinates  `json:"coordinates"`
}

type SearchParams struct {
	Coordinates Coordinates `json:"coordinates"`
	Radius      int         `json:"radius"`
	MaxResults  int         `json:"max_results"`
	PlaceTypes  []string    `json:"place_types,omitempty"`
}

// SearchResults distinguishes "nothing found" (empty Places, zero TotalFound)
// from a failure, which never reaches this shape.
type SearchResults struct {
	Places       []PlaceResult `json:"places"`
	TotalFound   int           `json:"total_found"`
	DisplayCount int           `json:"display_count"`
}

// SearchResponse is the envelope consumed by the presentation layer.
type SearchResponse struct {
	SearchID        uuid.UUID       `json:"search_id"`
	SearchQuery     SearchQueryEcho `json:"search_query"`
	Results         SearchResults   `json:"results"`
	SearchParams    SearchParams    `json:"search_params"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	Timestamp       time.Time       `json:"timestamp"`
}

// SuggestionsResponse is returned by the search-suggestions endpoint.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}
