package search

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/models"
)

// Structured filter keys accepted from query strings, job variables and extractor output.
const (
	KeyPurpose   = "purpose"
	KeyType      = "type"
	KeyLocation  = "location"
	KeyMinPrice  = "minPrice"
	KeyMaxPrice  = "maxPrice"
	KeyBedrooms  = "bedrooms"
	KeyBathrooms = "bathrooms"
	KeyMinArea   = "minArea"
	KeyMaxArea   = "maxArea"
)

// anyValue is the UI sentinel for "no constraint".
const anyValue = "any"

// NormalizeQuery normalizes URL query parameters. Only the first value of each key is used.
func NormalizeQuery(values url.Values) (models.SearchCriteria, error) {
	raw := make(map[string]interface{}, len(values))
	for key := range values {
		raw[key] = values.Get(key)
	}
	return NormalizeFilters(raw)
}

// NormalizeFilters coerces loosely-typed filter values into SearchCriteria. Absent, empty and
// "any" values leave the field unset. Uncoercible values fail with a ValidationError naming
// the field; bounds are not cross-checked.
func NormalizeFilters(raw map[string]interface{}) (models.SearchCriteria, error) {
	var c models.SearchCriteria

	purpose, err := stringField(raw, KeyPurpose)
	if err != nil {
		return models.SearchCriteria{}, err
	}
	if purpose != nil {
		p := strings.ToLower(*purpose)
		if !models.IsSearchPurpose(p) {
			return models.SearchCriteria{}, apperrors.NewValidationError(KeyPurpose,
				fmt.Sprintf("purpose must be one of buy, rent, commercial; got %q", *purpose))
		}
		c.Purpose = &p
	}

	if c.PropertyType, err = stringField(raw, KeyType); err != nil {
		return models.SearchCriteria{}, err
	}
	if c.LocationText, err = stringField(raw, KeyLocation); err != nil {
		return models.SearchCriteria{}, err
	}

	numeric := []struct {
		key string
		dst **float64
	}{
		{KeyMinPrice, &c.MinPrice},
		{KeyMaxPrice, &c.MaxPrice},
		{KeyBedrooms, &c.MinBedrooms},
		{KeyBathrooms, &c.MinBathrooms},
		{KeyMinArea, &c.MinArea},
		{KeyMaxArea, &c.MaxArea},
	}
	for _, f := range numeric {
		v, err := numberField(raw, f.key)
		if err != nil {
			return models.SearchCriteria{}, err
		}
		*f.dst = v
	}

	return c, nil
}

func stringField(raw map[string]interface{}, key string) (*string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, apperrors.NewValidationError(key, fmt.Sprintf("%s must be a string, got %T", key, v))
	}
	s = strings.TrimSpace(s)
	if isUnset(s) {
		return nil, nil
	}
	return &s, nil
}

func numberField(raw map[string]interface{}, key string) (*float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, set, err := coerceNumber(v)
	if err != nil {
		return nil, apperrors.NewValidationError(key, fmt.Sprintf("%s %s", key, err.Error()))
	}
	if !set {
		return nil, nil
	}
	return &f, nil
}

// coerceNumber reports set=false for the unset sentinels.
func coerceNumber(v interface{}) (value float64, set bool, err error) {
	switch n := v.(type) {
	case float64:
		value = n
	case float32:
		value = float64(n)
	case int:
		value = float64(n)
	case int32:
		value = float64(n)
	case int64:
		value = float64(n)
	case json.Number:
		value, err = strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false, fmt.Errorf("must be numeric, got %q", n.String())
		}
	case string:
		s := strings.TrimSpace(n)
		if isUnset(s) {
			return 0, false, nil
		}
		value, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("must be numeric, got %q", n)
		}
	default:
		return 0, false, fmt.Errorf("must be numeric, got %T", v)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false, fmt.Errorf("must be a finite number")
	}
	return value, true, nil
}

func isUnset(s string) bool {
	return s == "" || strings.EqualFold(s, anyValue)
}
