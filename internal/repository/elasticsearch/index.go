// Package elasticsearch keeps a search index of properties and runs criteria against it.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/common/metrics"
	"property-search/internal/models"
)

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":           map[string]interface{}{"type": "long"},
			"title":        map[string]interface{}{"type": "text"},
			"description":  map[string]interface{}{"type": "text"},
			"type":         map[string]interface{}{"type": "keyword"},
			"purpose":      map[string]interface{}{"type": "keyword"},
			"price":        map[string]interface{}{"type": "double"},
			"bedrooms":     map[string]interface{}{"type": "integer"},
			"bathrooms":    map[string]interface{}{"type": "integer"},
			"area":         map[string]interface{}{"type": "double"},
			"location":     map[string]interface{}{"type": "keyword"},
			"neighborhood": map[string]interface{}{"type": "keyword"},
			"city":         map[string]interface{}{"type": "keyword"},
			"agentId":      map[string]interface{}{"type": "long"},
			"featured":     map[string]interface{}{"type": "boolean"},
			"createdAt":    map[string]interface{}{"type": "date"},
			"geohash":      map[string]interface{}{"type": "keyword"},
			"point":        map[string]interface{}{"type": "geo_point"},
		},
	},
}

// document is the indexed shape: the property plus derived geo fields.
type document struct {
	models.Property
	Geohash string    `json:"geohash,omitempty"`
	Point   *geoPoint `json:"point,omitempty"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Index struct {
	client     *elasticsearch.Client
	name       string
	maxResults int
	logger     logger.Logger
}

func NewIndex(client *elasticsearch.Client, name string, maxResults int, log logger.Logger) *Index {
	return &Index{
		client:     client,
		name:       name,
		maxResults: maxResults,
		logger:     log.WithFields(map[string]interface{}{"component": "es-index", "index": name}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.NewSearchQueryFailedError(i.name, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body, _ := json.Marshal(indexMapping)
	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(i.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(i.name, fmt.Errorf("create index: %s", readError(res)))
	}
	i.logger.Info("index created", nil)
	return nil
}

// IndexProperty upserts a property document keyed by id.
func (i *Index) IndexProperty(ctx context.Context, p models.Property) error {
	doc := document{Property: p, Geohash: p.Geohash()}
	if p.Latitude != nil && p.Longitude != nil {
		doc.Point = &geoPoint{Lat: *p.Latitude, Lon: *p.Longitude}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal property %d: %w", p.ID, err)
	}

	req := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: strconv.FormatInt(p.ID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(i.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(i.name, fmt.Errorf("index property %d: %s", p.ID, readError(res)))
	}
	return nil
}

// Search returns properties matching c ordered by id, at most maxResults.
func (i *Index) Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error) {
	body, err := json.Marshal(BuildQuery(c, i.maxResults))
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.name},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(i.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(i.name, fmt.Errorf("search: %s", readError(res)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value    int    `json:"value"`
				Relation string `json:"relation"`
			} `json:"total"`
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(i.name, fmt.Errorf("decode response: %w", err))
	}

	// relation "gte" means the cluster stopped counting, so the total is a lower bound.
	if total := parsed.Hits.Total.Value; total > len(parsed.Hits.Hits) {
		metrics.SearchTruncated.WithLabelValues("elasticsearch").Inc()
		i.logger.Warn("search results truncated", map[string]interface{}{
			"index":    i.name,
			"total":    total,
			"relation": parsed.Hits.Total.Relation,
			"returned": len(parsed.Hits.Hits),
			"limit":    i.maxResults,
		})
	}

	out := make([]models.Property, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source.Property)
	}
	return out, nil
}

// BuildQuery renders criteria as a bool filter query sorted by id.
func BuildQuery(c models.SearchCriteria, size int) map[string]interface{} {
	filters := []interface{}{}

	if c.Purpose != nil {
		switch *c.Purpose {
		case models.SearchBuy:
			filters = append(filters, term("purpose", models.PurposeSale))
		case models.SearchRent:
			filters = append(filters, term("purpose", models.PurposeRent))
		case models.SearchCommercial:
			filters = append(filters, map[string]interface{}{
				"terms": map[string]interface{}{
					"type": []string{string(models.TypeOffice), string(models.TypeShop), string(models.TypeWarehouse)},
				},
			})
		default:
			filters = append(filters, map[string]interface{}{"match_none": map[string]interface{}{}})
		}
	}
	if c.PropertyType != nil {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{
				"type": map[string]interface{}{"value": strings.TrimSpace(*c.PropertyType), "case_insensitive": true},
			},
		})
	}
	if c.LocationText != nil {
		pattern := "*" + escapeWildcard(strings.TrimSpace(*c.LocationText)) + "*"
		filters = append(filters, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					wildcard("location", pattern),
					wildcard("neighborhood", pattern),
				},
				"minimum_should_match": 1,
			},
		})
	}
	filters = appendRange(filters, "price", c.MinPrice, c.MaxPrice)
	filters = appendRange(filters, "bedrooms", c.MinBedrooms, nil)
	filters = appendRange(filters, "bathrooms", c.MinBathrooms, nil)
	filters = appendRange(filters, "area", c.MinArea, c.MaxArea)

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{map[string]interface{}{"id": "asc"}},
		"size": size,
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func wildcard(field, pattern string) map[string]interface{} {
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field: map[string]interface{}{"value": pattern, "case_insensitive": true},
		},
	}
}

func appendRange(filters []interface{}, field string, gte, lte *float64) []interface{} {
	if gte == nil && lte == nil {
		return filters
	}
	bounds := map[string]interface{}{}
	if gte != nil {
		bounds["gte"] = *gte
	}
	if lte != nil {
		bounds["lte"] = *lte
	}
	return append(filters, map[string]interface{}{"range": map[string]interface{}{field: bounds}})
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}

func readError(res *esapi.Response) string {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	return fmt.Sprintf("%s %s", res.Status(), string(b))
}
