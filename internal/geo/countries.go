package geo

// countryNames maps the provider's two-letter codes to full names. Unmapped
// codes pass through verbatim.
var countryNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"DE": "Germany",
	"FR": "France",
	"JP": "Japan",
	"CN": "China",
	"IN": "India",
	"BR": "Brazil",
	"RU": "Russia",
	"NG": "Nigeria",
	"ZA": "South Africa",
	"EG": "Egypt",
	"KE": "Kenya",
}

// CountryName expands a two-letter country code to its full name.
func CountryName(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}
