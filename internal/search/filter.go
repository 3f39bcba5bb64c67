package search

import (
	"strings"

	"golang.org/x/text/cases"

	"property-search/internal/models"
)

// matcher holds the prepared predicates for one criteria value. A cases.Caser is stateful,
// so each Filter call builds its own.
type matcher struct {
	c            models.SearchCriteria
	fold         cases.Caser
	propertyType string
	locationText string
}

func newMatcher(c models.SearchCriteria) *matcher {
	m := &matcher{c: c, fold: cases.Fold()}
	if c.PropertyType != nil {
		m.propertyType = m.fold.String(strings.TrimSpace(*c.PropertyType))
	}
	if c.LocationText != nil {
		m.locationText = m.fold.String(strings.TrimSpace(*c.LocationText))
	}
	return m
}

// Filter returns the properties satisfying every populated criterion in input order.
// Empty criteria return the input unchanged. The input slice is never modified.
func Filter(c models.SearchCriteria, properties []models.Property) []models.Property {
	if c.IsEmpty() {
		return properties
	}
	m := newMatcher(c)
	out := make([]models.Property, 0, len(properties))
	for _, p := range properties {
		if m.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Matches evaluates a single property.
func Matches(c models.SearchCriteria, p models.Property) bool {
	return newMatcher(c).matches(p)
}

func (m *matcher) matches(p models.Property) bool {
	c := m.c

	if c.Purpose != nil && !matchesPurpose(*c.Purpose, p) {
		return false
	}
	if c.PropertyType != nil && m.fold.String(string(p.Type)) != m.propertyType {
		return false
	}
	if c.LocationText != nil &&
		!strings.Contains(m.fold.String(p.Location), m.locationText) &&
		!strings.Contains(m.fold.String(p.Neighborhood), m.locationText) {
		return false
	}
	if c.MinPrice != nil && p.Price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && p.Price > *c.MaxPrice {
		return false
	}
	if c.MinBedrooms != nil && (p.Bedrooms == nil || float64(*p.Bedrooms) < *c.MinBedrooms) {
		return false
	}
	if c.MinBathrooms != nil && (p.Bathrooms == nil || float64(*p.Bathrooms) < *c.MinBathrooms) {
		return false
	}
	if c.MinArea != nil && p.Area < *c.MinArea {
		return false
	}
	if c.MaxArea != nil && p.Area > *c.MaxArea {
		return false
	}
	return true
}

func matchesPurpose(purpose string, p models.Property) bool {
	switch purpose {
	case models.SearchBuy:
		return p.Purpose == models.PurposeSale
	case models.SearchRent:
		return p.Purpose == models.PurposeRent
	case models.SearchCommercial:
		return p.IsCommercial()
	default:
		return false
	}
}
