package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-search/internal/common/logger"
	"property-search/internal/models"
)

func newMiniCache(t *testing.T) (*SearchCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSearchCache(client, time.Minute, time.Hour, logger.NewTestLogger(t)), mr
}

func TestSearchKeyIsStable(t *testing.T) {
	a := models.SearchCriteria{Purpose: models.StringPtr("rent"), MaxPrice: models.FloatPtr(150000)}
	b := models.SearchCriteria{MaxPrice: models.FloatPtr(150000), Purpose: models.StringPtr("rent")}

	assert.Equal(t, SearchKey(a), SearchKey(b))
	assert.NotEqual(t, SearchKey(a), SearchKey(models.SearchCriteria{}))
	assert.Contains(t, SearchKey(a), "search:")
}

func TestSearchCache_RoundTripAndTTL(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()
	criteria := models.SearchCriteria{Purpose: models.StringPtr("buy")}

	_, ok, err := c.GetSearch(ctx, criteria)
	require.NoError(t, err)
	assert.False(t, ok)

	props := []models.Property{{ID: 1, Title: "Palm villa", Bedrooms: models.IntPtr(6)}}
	require.NoError(t, c.SetSearch(ctx, criteria, props))

	got, ok, err := c.GetSearch(ctx, criteria)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Palm villa", got[0].Title)
	assert.Equal(t, 6, *got[0].Bedrooms)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetSearch(ctx, criteria)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchCache_InvalidateSearchesKeepsInsights(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetSearch(ctx, models.SearchCriteria{}, []models.Property{{ID: 1}}))
	require.NoError(t, c.SetSearch(ctx, models.SearchCriteria{Purpose: models.StringPtr("rent")}, []models.Property{}))
	require.NoError(t, c.SetInsights(ctx, 1, "en", models.Insights{"marketTrends": "up"}))

	require.NoError(t, c.InvalidateSearches(ctx))

	assert.Len(t, mr.Keys(), 1)
	insights, ok, err := c.GetInsights(ctx, 1, "en")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "up", insights["marketTrends"])
}

func TestSearchCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSearchCache(db, time.Minute, time.Hour, logger.NewNoOpLogger())
	criteria := models.SearchCriteria{}

	mock.ExpectGet(SearchKey(criteria)).SetErr(errors.New("connection refused"))

	_, ok, err := c.GetSearch(context.Background(), criteria)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchCache_SetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSearchCache(db, time.Minute, time.Hour, logger.NewNoOpLogger())

	mock.ExpectSet(insightsKey(5, "ar"), []byte(`{"pricePrediction":"stable"}`), time.Hour).SetErr(errors.New("OOM"))

	err := c.SetInsights(context.Background(), 5, "ar", models.Insights{"pricePrediction": "stable"})
	assert.ErrorContains(t, err, "OOM")
}

func TestSearchCache_CorruptEntry(t *testing.T) {
	c, mr := newMiniCache(t)
	require.NoError(t, mr.Set(SearchKey(models.SearchCriteria{}), "not json"))

	_, ok, err := c.GetSearch(context.Background(), models.SearchCriteria{})
	assert.Error(t, err)
	assert.False(t, ok)
}
