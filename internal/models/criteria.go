package models

// Search purposes. buy and rent map onto the stored purpose, commercial onto the type.
const (
	SearchBuy        = "buy"
	SearchRent       = "rent"
	SearchCommercial = "commercial"
)

// SearchCriteria is the normalized query. A nil field leaves that dimension unconstrained.
type SearchCriteria struct {
	Purpose      *string  `json:"purpose,omitempty"`
	PropertyType *string  `json:"propertyType,omitempty"`
	LocationText *string  `json:"locationText,omitempty"`
	MinPrice     *float64 `json:"minPrice,omitempty"`
	MaxPrice     *float64 `json:"maxPrice,omitempty"`
	MinBedrooms  *float64 `json:"minBedrooms,omitempty"`
	MinBathrooms *float64 `json:"minBathrooms,omitempty"`
	MinArea      *float64 `json:"minArea,omitempty"`
	MaxArea      *float64 `json:"maxArea,omitempty"`
}

func (c SearchCriteria) IsEmpty() bool {
	return c.Purpose == nil &&
		c.PropertyType == nil &&
		c.LocationText == nil &&
		c.MinPrice == nil &&
		c.MaxPrice == nil &&
		c.MinBedrooms == nil &&
		c.MinBathrooms == nil &&
		c.MinArea == nil &&
		c.MaxArea == nil
}

func IsSearchPurpose(p string) bool {
	switch p {
	case SearchBuy, SearchRent, SearchCommercial:
		return true
	}
	return false
}

func StringPtr(v string) *string { return &v }
