package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/models"
)

// fakeCluster answers like Elasticsearch and records the last request body.
func fakeCluster(t *testing.T, status int, response string) (*elasticsearch.Client, *string) {
	var lastBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		lastBody = string(b)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client, &lastBody
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(models.SearchCriteria{
		Purpose:      models.StringPtr("commercial"),
		LocationText: models.StringPtr("Bay*"),
		MinPrice:     models.FloatPtr(100),
		MinBedrooms:  models.FloatPtr(1),
	}, 50)

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, `"terms":{"type":["Office","Shop","Warehouse"]}`)
	assert.Contains(t, s, `"value":"*Bay\\**"`)
	assert.Contains(t, s, `"range":{"price":{"gte":100}}`)
	assert.Contains(t, s, `"range":{"bedrooms":{"gte":1}}`)
	assert.Contains(t, s, `"sort":[{"id":"asc"}]`)
	assert.Contains(t, s, `"size":50`)
}

func TestBuildQuery_EmptyCriteriaMatchesAll(t *testing.T) {
	q := BuildQuery(models.SearchCriteria{}, 10)
	filters := q["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Empty(t, filters)
}

func TestIndex_SearchDecodesHits(t *testing.T) {
	client, body := fakeCluster(t, http.StatusOK, `{
		"hits": {"hits": [
			{"_source": {"id": 2, "title": "Marina apartment", "type": "Apartment", "purpose": "rent", "price": 120000, "bedrooms": 2, "area": 1250, "location": "Dubai Marina", "geohash": "thrnwtz"}},
			{"_source": {"id": 7, "title": "JBR flat", "type": "Apartment", "purpose": "rent", "price": 95000, "bedrooms": null, "area": 800, "location": "JBR"}}
		]}
	}`)
	idx := NewIndex(client, "properties", 100, logger.NewTestLogger(t))

	got, err := idx.Search(context.Background(), models.SearchCriteria{Purpose: models.StringPtr("rent")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, 2, *got[0].Bedrooms)
	assert.Nil(t, got[1].Bedrooms)
	assert.Contains(t, *body, `"purpose":"rent"`)
}

func TestIndex_SearchWarnsWhenTruncated(t *testing.T) {
	client, _ := fakeCluster(t, http.StatusOK, `{
		"hits": {"total": {"value": 5, "relation": "eq"}, "hits": [
			{"_source": {"id": 1, "title": "A", "type": "Villa", "purpose": "sale", "price": 1, "area": 1, "location": "Palm"}},
			{"_source": {"id": 2, "title": "B", "type": "Villa", "purpose": "sale", "price": 1, "area": 1, "location": "Palm"}}
		]}
	}`)
	core, logs := observer.New(zapcore.WarnLevel)
	idx := NewIndex(client, "properties", 2, logger.NewZapAdapter(zap.New(core)))

	got, err := idx.Search(context.Background(), models.SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	entries := logs.FilterMessage("search results truncated").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 5, fields["total"])
	assert.EqualValues(t, 2, fields["returned"])
}

func TestIndex_SearchWithinLimitDoesNotWarn(t *testing.T) {
	client, _ := fakeCluster(t, http.StatusOK, `{
		"hits": {"total": {"value": 1, "relation": "eq"}, "hits": [
			{"_source": {"id": 1, "title": "A", "type": "Villa", "purpose": "sale", "price": 1, "area": 1, "location": "Palm"}}
		]}
	}`)
	core, logs := observer.New(zapcore.WarnLevel)
	idx := NewIndex(client, "properties", 2, logger.NewZapAdapter(zap.New(core)))

	_, err := idx.Search(context.Background(), models.SearchCriteria{})
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

func TestIndex_SearchErrorStatus(t *testing.T) {
	client, _ := fakeCluster(t, http.StatusInternalServerError, `{"error":"boom"}`)
	idx := NewIndex(client, "properties", 100, logger.NewNoOpLogger())

	_, err := idx.Search(context.Background(), models.SearchCriteria{})
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, stdErr.Code)
}

func TestIndex_IndexPropertyAddsGeoFields(t *testing.T) {
	client, body := fakeCluster(t, http.StatusCreated, `{"result":"created"}`)
	idx := NewIndex(client, "properties", 100, logger.NewNoOpLogger())

	err := idx.IndexProperty(context.Background(), models.Property{
		ID: 3, Title: "Villa", Latitude: models.FloatPtr(25.0805), Longitude: models.FloatPtr(55.1403),
	})
	require.NoError(t, err)
	assert.Contains(t, *body, `"geohash":"thrnwtz"`)
	assert.Contains(t, *body, `"point":{"lat":25.0805,"lon":55.1403}`)
}

// TestIndex_RoundTripLive runs against a local cluster when one is available.
func TestIndex_RoundTripLive(t *testing.T) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{"http://localhost:9200"}})
	require.NoError(t, err)
	res, err := client.Info()
	if err != nil {
		t.Skipf("Skipping test: Elasticsearch not reachable: %v", err)
	}
	res.Body.Close()
	if res.IsError() {
		t.Skipf("Skipping test: Elasticsearch error: %s", res.String())
	}

	name := "properties-test-" + strings.ToLower(time.Now().Format("20060102150405"))
	defer client.Indices.Delete([]string{name}, client.Indices.Delete.WithIgnoreUnavailable(true))

	ctx := context.Background()
	idx := NewIndex(client, name, 100, logger.NewTestLogger(t))
	require.NoError(t, idx.EnsureIndex(ctx))
	require.NoError(t, idx.IndexProperty(ctx, models.Property{
		ID: 1, Type: models.TypeApartment, Purpose: models.PurposeRent, Price: 120000, Bedrooms: models.IntPtr(2),
		Area: 1250, Location: "Dubai Marina", Neighborhood: "Marina Walk",
	}))
	require.NoError(t, idx.IndexProperty(ctx, models.Property{
		ID: 2, Type: models.TypeOffice, Purpose: models.PurposeRent, Price: 250000, Area: 3000, Location: "Business Bay",
	}))

	got, err := idx.Search(ctx, models.SearchCriteria{LocationText: models.StringPtr("MARINA"), MinBedrooms: models.FloatPtr(2)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got, err = idx.Search(ctx, models.SearchCriteria{Purpose: models.StringPtr("commercial")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}
