// Package address derives human-readable address strings from the structured
// postal fields of a Location. Every function here is pure.
package address

import (
	"fmt"
	"strings"

	"github.com/niabis/backend/internal/domain"
)

// Style selects how much of the address is rendered.
type Style int

const (
	// Full renders every non-empty field in a multi-line layout.
	Full Style = iota
	// Short renders a compact subset on a single line.
	Short
)

func (s Style) String() string {
	if s == Short {
		return "short"
	}
	return "full"
}

// ParseStyle maps "full" or "short" (case-insensitive) to a Style.
// An empty string selects Full.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return Full, nil
	case "short":
		return Short, nil
	default:
		return Full, fmt.Errorf("%w: unknown address style %q", domain.ErrValidation, s)
	}
}

// Project renders loc's postal address in the given style.
// It returns "" when every structured field is empty.
func Project(loc domain.Location, style Style) string {
	return Format(loc.PostalAddress, style)
}

// Format renders a postal address in the given style.
func Format(a domain.PostalAddress, style Style) string {
	a = trimFields(a)
	l := layoutFor(a.Country)

	if style == Short {
		// Short drops postal code, state and country. The country still
		// picks the layout so field order matches the Full rendering.
		a = domain.PostalAddress{
			City:                  a.City,
			SubAdministrativeArea: a.SubAdministrativeArea,
			SubLocality:           a.SubLocality,
			Street:                a.Street,
		}
		return OneLine(strings.Join(l.lines(a), "\n"))
	}
	return strings.Join(l.lines(a), "\n")
}

// OneLine collapses every run of line breaks in s into a single space.
func OneLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, isLineBreak), " ")
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func trimFields(a domain.PostalAddress) domain.PostalAddress {
	return domain.PostalAddress{
		PostalCode:            strings.TrimSpace(a.PostalCode),
		Country:               strings.TrimSpace(a.Country),
		State:                 strings.TrimSpace(a.State),
		City:                  strings.TrimSpace(a.City),
		SubAdministrativeArea: strings.TrimSpace(a.SubAdministrativeArea),
		SubLocality:           strings.TrimSpace(a.SubLocality),
		Street:                strings.TrimSpace(a.Street),
	}
}

// nonEmpty returns the non-empty strings of parts, preserving order.
func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// join joins the non-empty parts with sep.
func join(sep string, parts ...string) string {
	return strings.Join(nonEmpty(parts...), sep)
}
