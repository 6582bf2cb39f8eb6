package types

// LocationKind classifies the shape of a raw location query.
type LocationKind string

const (
	LocationKindCoordinates LocationKind = "coordinates"
	LocationKindPostalCode  LocationKind = "postal_code"
	LocationKindCityCountry LocationKind = "city_country"
	LocationKindCity        LocationKind = "city"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// InBounds reports whether the pair is a valid WGS84 coordinate.
func (c Coordinates) InBounds() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// AddressComponents holds the useful parts extracted from a geocoder result.
type AddressComponents struct {
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	State       string `json:"state,omitempty"`
	Region      string `json:"region,omitempty"`
}

// ResolvedLocation is the outcome of classifying and geocoding a raw query.
// Built once per search request and never mutated afterwards.
type ResolvedLocation struct {
	Original         string             `json:"original"`
	Kind             LocationKind       `json:"type"`
	Coordinates      Coordinates        `json:"coordinates"`
	FormattedAddress string             `json:"formatted_address"`
	CountryCode      string             `json:"country_code,omitempty"`
	Components       *AddressComponents `json:"components,omitempty"`
	ProviderPlaceID  string             `json:"place_id,omitempty"`
}
