package address

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/niabis/backend/internal/domain"
)

// layout orders the fields of an address into display lines.
type layout struct {
	region string // ISO 3166-1 alpha-2, "" when unknown
	big    bool   // largest unit first (country, postal code, state ... street)
}

var (
	jp = language.MustParseRegion("JP")
	cn = language.MustParseRegion("CN")
	kr = language.MustParseRegion("KR")
	tw = language.MustParseRegion("TW")
)

// countryNames maps common country spellings to regions. ISO codes are
// handled by language.ParseRegion and do not need entries here.
var countryNames = map[string]language.Region{
	"japan":       jp,
	"日本":          jp,
	"china":       cn,
	"中国":          cn,
	"south korea": kr,
	"korea":       kr,
	"대한민국":        kr,
	"한국":          kr,
	"taiwan":      tw,
	"台灣":          tw,
	"台湾":          tw,
}

// layoutFor picks a layout from a free-text country field.
func layoutFor(country string) layout {
	r, ok := regionOf(country)
	if !ok {
		return layout{}
	}
	switch r {
	case jp, cn, kr, tw:
		return layout{region: r.String(), big: true}
	}
	return layout{region: r.String()}
}

func regionOf(country string) (language.Region, bool) {
	if country == "" {
		return language.Region{}, false
	}
	if r, ok := countryNames[strings.ToLower(country)]; ok {
		return r, true
	}
	r, err := language.ParseRegion(country)
	if err != nil {
		return language.Region{}, false
	}
	return r, true
}

func (l layout) lines(a domain.PostalAddress) []string {
	if l.big {
		postal := a.PostalCode
		if postal != "" && l.region == "JP" {
			postal = "〒" + postal
		}
		return nonEmpty(
			a.Country,
			postal,
			join(" ", a.State, a.City, a.SubAdministrativeArea, a.SubLocality),
			a.Street,
		)
	}
	return nonEmpty(
		a.Street,
		a.SubLocality,
		join(" ", a.City, a.SubAdministrativeArea, a.State, a.PostalCode),
		a.Country,
	)
}
