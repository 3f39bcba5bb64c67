package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"property-search/internal/models"
)

func fixture() []models.Property {
	return []models.Property{
		{ID: 1, Type: models.TypeVilla, Purpose: models.PurposeSale, Price: 12500000, Bedrooms: models.IntPtr(6), Bathrooms: models.IntPtr(7), Area: 8500, Location: "Palm Jumeirah", Neighborhood: "Frond K"},
		{ID: 2, Type: models.TypeApartment, Purpose: models.PurposeRent, Price: 120000, Bedrooms: models.IntPtr(2), Bathrooms: models.IntPtr(2), Area: 1250, Location: "Dubai Marina", Neighborhood: "Marina Walk"},
		{ID: 3, Type: models.TypeApartment, Purpose: models.PurposeSale, Price: 100000, Bedrooms: models.IntPtr(2), Bathrooms: models.IntPtr(1), Area: 900, Location: "JVC", Neighborhood: "District 12"},
		{ID: 4, Type: models.TypeOffice, Purpose: models.PurposeRent, Price: 250000, Area: 3000, Location: "Business Bay", Neighborhood: "Bay Square"},
		{ID: 5, Type: models.TypeShop, Purpose: models.PurposeSale, Price: 2000000, Area: 800, Location: "Downtown Dubai", Neighborhood: "Boulevard"},
		{ID: 6, Type: models.TypeLand, Purpose: models.PurposeSale, Price: 5000000, Area: 20000, Location: "Dubai South", Neighborhood: "Residential District"},
	}
}

func ids(props []models.Property) []int64 {
	out := make([]int64, 0, len(props))
	for _, p := range props {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter_EmptyCriteriaReturnsEverythingInOrder(t *testing.T) {
	all := fixture()
	assert.Equal(t, all, Filter(models.SearchCriteria{}, all))
}

func TestFilter_Purpose(t *testing.T) {
	all := fixture()
	assert.Equal(t, []int64{1, 3, 5, 6}, ids(Filter(models.SearchCriteria{Purpose: models.StringPtr("buy")}, all)))
	assert.Equal(t, []int64{2, 4}, ids(Filter(models.SearchCriteria{Purpose: models.StringPtr("rent")}, all)))
	// commercial is derived from type regardless of the stored purpose
	assert.Equal(t, []int64{4, 5}, ids(Filter(models.SearchCriteria{Purpose: models.StringPtr("commercial")}, all)))
}

func TestFilter_TypeIsCaseInsensitiveExact(t *testing.T) {
	all := fixture()
	assert.Equal(t, []int64{2, 3}, ids(Filter(models.SearchCriteria{PropertyType: models.StringPtr("APARTMENT")}, all)))
	assert.Empty(t, Filter(models.SearchCriteria{PropertyType: models.StringPtr("Apart")}, all))
}

func TestFilter_LocationMatchesLocationOrNeighborhood(t *testing.T) {
	all := fixture()
	assert.Equal(t, []int64{2}, ids(Filter(models.SearchCriteria{LocationText: models.StringPtr("marina")}, all)))
	assert.Equal(t, []int64{5}, ids(Filter(models.SearchCriteria{LocationText: models.StringPtr("BOULEVARD")}, all)))
	assert.Equal(t, []int64{3, 6}, ids(Filter(models.SearchCriteria{LocationText: models.StringPtr("district")}, all)))
}

func TestFilter_InclusiveBounds(t *testing.T) {
	all := fixture()
	c := models.SearchCriteria{MinPrice: models.FloatPtr(120000), MaxPrice: models.FloatPtr(2000000)}
	assert.Equal(t, []int64{2, 4, 5}, ids(Filter(c, all)))

	c = models.SearchCriteria{MinArea: models.FloatPtr(900), MaxArea: models.FloatPtr(3000)}
	assert.Equal(t, []int64{2, 3, 4}, ids(Filter(c, all)))
}

func TestFilter_NullCountsNeverMatchMinimum(t *testing.T) {
	all := fixture()
	assert.Equal(t, []int64{1, 2, 3}, ids(Filter(models.SearchCriteria{MinBedrooms: models.FloatPtr(0)}, all)))
	assert.Equal(t, []int64{1, 2}, ids(Filter(models.SearchCriteria{MinBathrooms: models.FloatPtr(2)}, all)))
}

func TestFilter_CombinedExample(t *testing.T) {
	all := fixture()
	c := models.SearchCriteria{
		Purpose:     models.StringPtr("rent"),
		MinBedrooms: models.FloatPtr(2),
		MaxPrice:    models.FloatPtr(150000),
	}
	assert.Equal(t, []int64{2}, ids(Filter(c, all)))
}

func TestFilter_IdempotentAndDoesNotMutate(t *testing.T) {
	all := fixture()
	snapshot := fixture()
	c := models.SearchCriteria{Purpose: models.StringPtr("buy"), MinBedrooms: models.FloatPtr(1)}

	first := Filter(c, all)
	second := Filter(c, all)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, all)
}

func TestMatches(t *testing.T) {
	p := fixture()[1]
	assert.True(t, Matches(models.SearchCriteria{LocationText: models.StringPtr("Walk")}, p))
	assert.False(t, Matches(models.SearchCriteria{Purpose: models.StringPtr("commercial")}, p))
}
