package places

// defaultCategories is the fixed category set queried when the caller does not
// send any filter. The aggregator only ever queries the first maxCategories.
var defaultCategories = []string{
	"restaurant", "cafe", "bar", "hotel", "store",
	"gas_station", "pharmacy", "bank", "beauty_salon", "hospital",
}

// CategoryDisplay is static presentation metadata for a search category.
type CategoryDisplay struct {
	Label string
	Icon  string
}

// categoryDisplayByTag maps a provider category tag to its display metadata.
// Static lookup table, never mutated at runtime.
var categoryDisplayByTag = map[string]CategoryDisplay{
	"restaurant":   {Label: "Restaurant", Icon: "🍽️"},
	"cafe":         {Label: "Café", Icon: "☕"},
	"bar":          {Label: "Bar", Icon: "🍺"},
	"hotel":        {Label: "Hôtel", Icon: "🏨"},
	"store":        {Label: "Magasin", Icon: "🏪"},
	"gas_station":  {Label: "Station-service", Icon: "⛽"},
	"pharmacy":     {Label: "Pharmacie", Icon: "💊"},
	"bank":         {Label: "Banque", Icon: "🏦"},
	"beauty_salon": {Label: "Salon de beauté", Icon: "💇"},
	"hospital":     {Label: "Hôpital", Icon: "🏥"},
}

// DisplayForCategory returns label/icon metadata for a category tag, falling
// back to the tag itself for categories outside the curated set.
func DisplayForCategory(tag string) CategoryDisplay {
	if display, ok := categoryDisplayByTag[tag]; ok {
		return display
	}
	return CategoryDisplay{Label: tag, Icon: "📍"}
}
