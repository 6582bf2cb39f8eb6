package types

// Candidate is a place surfaced by the nearby-search phase, before enrichment.
// Unique by PlaceID within a single aggregation run; SearchCategory is the first
// category that surfaced it.
type Candidate struct {
	PlaceID        string `json:"place_id"`
	Name           string `json:"name"`
	SearchCategory string `json:"search_category"`
}

// Review is a raw provider review as returned by the details endpoint.
type Review struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
	Time   int64  `json:"time"`
	Useful bool   `json:"useful,omitempty"`
}

type PlacePhoto struct {
	URL          string   `json:"url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Attributions []string `json:"attributions,omitempty"`
}

// EnrichedPlace is a Candidate plus its detail record. Optional provider fields
// stay pointers so "absent" is distinguishable from a zero value downstream.
type EnrichedPlace struct {
	PlaceID        string
	Name           string
	SearchCategory string
	Rating         *float64
	ReviewCount    int
	Address        string
	Location       Coordinates
	Categories     []string
	PriceLevel     *int
	OpenNow        *bool
	Photos         []PlacePhoto
	Website        string
	PhoneNumber    string
	Reviews        []Review
}

// ScoredReview is a review reduced to what the presentation layer needs, with
// personal information already stripped from the text.
type ScoredReview struct {
	Rating           int     `json:"rating"`
	Text             string  `json:"text"`
	TimeAgo          string  `json:"time_ago"`
	Useful           bool    `json:"useful"`
	CrunchinessScore float64 `json:"crunchiness_score"` // kept for diagnostics
}

// PlaceResult is the external-facing shape of one ranked place.
type PlaceResult struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Rating         *float64       `json:"rating"`
	ReviewCount    int            `json:"review_count"`
	Address        string         `json:"address,omitempty"`
	Location       Coordinates    `json:"location"`
	Categories     []string       `json:"types,omitempty"`
	CategoryLabel  string         `json:"category_label,omitempty"`
	CategoryIcon   string         `json:"category_icon,omitempty"`
	PriceLevel     *int           `json:"price_level,omitempty"`
	IsOpen         *bool          `json:"is_open,omitempty"`
	Photos         []PlacePhoto   `json:"photos,omitempty"`
	Website        string         `json:"website,omitempty"`
	PhoneNumber    string         `json:"phone_number,omitempty"`
	CrunchyReviews []ScoredReview `json:"crunchy_reviews"`
	SearchCategory string         `json:"search_category,omitempty"`
}
