package models

import (
	"time"

	"github.com/mmcloughlin/geohash"
)

type PropertyType string

const (
	TypeApartment PropertyType = "Apartment"
	TypeVilla     PropertyType = "Villa"
	TypeTownhouse PropertyType = "Townhouse"
	TypePenthouse PropertyType = "Penthouse"
	TypeDuplex    PropertyType = "Duplex"
	TypeOffice    PropertyType = "Office"
	TypeShop      PropertyType = "Shop"
	TypeWarehouse PropertyType = "Warehouse"
	TypeLand      PropertyType = "Land"
)

// Stored purpose values. "commercial" is a search category over type, never stored.
const (
	PurposeSale = "sale"
	PurposeRent = "rent"
)

const GeohashPrecision = 7

// Property is a listing owned by exactly one agent.
type Property struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Type         PropertyType `json:"type"`
	Purpose      string       `json:"purpose"`
	Price        float64      `json:"price"`
	Bedrooms     *int         `json:"bedrooms"`
	Bathrooms    *int         `json:"bathrooms"`
	Area         float64      `json:"area"`
	Location     string       `json:"location"`
	City         string       `json:"city"`
	Neighborhood string       `json:"neighborhood"`
	Address      string       `json:"address"`
	Latitude     *float64     `json:"latitude"`
	Longitude    *float64     `json:"longitude"`
	YearBuilt    *int         `json:"yearBuilt"`
	Featured     bool         `json:"featured"`
	Verified     bool         `json:"verified"`
	AgentID      int64        `json:"agentId"`
	ImageURLs    []string     `json:"images"`
	Amenities    []string     `json:"amenities"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// IsCommercial reports whether the type belongs to the commercial category.
func (p Property) IsCommercial() bool {
	return IsCommercialType(p.Type)
}

func IsCommercialType(t PropertyType) bool {
	switch t {
	case TypeOffice, TypeShop, TypeWarehouse:
		return true
	}
	return false
}

// Geohash returns the cell containing the property or "" without coordinates.
func (p Property) Geohash() string {
	if p.Latitude == nil || p.Longitude == nil {
		return ""
	}
	return geohash.EncodeWithPrecision(*p.Latitude, *p.Longitude, GeohashPrecision)
}

// Clone returns a deep copy so callers cannot mutate stored slices or pointers.
func (p Property) Clone() Property {
	out := p
	out.Bedrooms = cloneInt(p.Bedrooms)
	out.Bathrooms = cloneInt(p.Bathrooms)
	out.YearBuilt = cloneInt(p.YearBuilt)
	out.Latitude = cloneFloat(p.Latitude)
	out.Longitude = cloneFloat(p.Longitude)
	out.ImageURLs = cloneStrings(p.ImageURLs)
	out.Amenities = cloneStrings(p.Amenities)
	return out
}

// cloneStrings keeps nil as nil and an empty slice as an empty slice.
func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

// NewProperty is the create input for a listing.
type NewProperty struct {
	Title        string       `json:"title" validate:"required"`
	Description  string       `json:"description"`
	Type         PropertyType `json:"type" validate:"required,oneof=Apartment Villa Townhouse Penthouse Duplex Office Shop Warehouse Land"`
	Purpose      string       `json:"purpose" validate:"required,oneof=sale rent"`
	Price        float64      `json:"price" validate:"gt=0"`
	Bedrooms     *int         `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms    *int         `json:"bathrooms" validate:"omitempty,gte=0"`
	Area         float64      `json:"area" validate:"gt=0"`
	Location     string       `json:"location" validate:"required"`
	City         string       `json:"city"`
	Neighborhood string       `json:"neighborhood"`
	Address      string       `json:"address"`
	Latitude     *float64     `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64     `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	YearBuilt    *int         `json:"yearBuilt" validate:"omitempty,gte=1800"`
	Featured     bool         `json:"featured"`
	Verified     bool         `json:"verified"`
	AgentID      int64        `json:"agentId" validate:"gt=0"`
	ImageURLs    []string     `json:"images"`
	Amenities    []string     `json:"amenities"`
}

// Build materializes the input as a Property with the server-assigned fields set.
func (n NewProperty) Build(id int64, createdAt time.Time) Property {
	p := Property{
		ID:           id,
		Title:        n.Title,
		Description:  n.Description,
		Type:         n.Type,
		Purpose:      n.Purpose,
		Price:        n.Price,
		Bedrooms:     n.Bedrooms,
		Bathrooms:    n.Bathrooms,
		Area:         n.Area,
		Location:     n.Location,
		City:         n.City,
		Neighborhood: n.Neighborhood,
		Address:      n.Address,
		Latitude:     n.Latitude,
		Longitude:    n.Longitude,
		YearBuilt:    n.YearBuilt,
		Featured:     n.Featured,
		Verified:     n.Verified,
		AgentID:      n.AgentID,
		ImageURLs:    n.ImageURLs,
		Amenities:    n.Amenities,
		CreatedAt:    createdAt,
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	return p.Clone()
}

// PropertyDetail pairs a listing with its owning agent.
type PropertyDetail struct {
	Property Property `json:"property"`
	Agent    Agent    `json:"agent"`
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IntPtr and FloatPtr are shorthands for optional fields.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
