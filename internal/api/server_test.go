package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/enquiry"
	"property-search/internal/listing"
	"property-search/internal/models"
	"property-search/internal/repository/memory"
	"property-search/internal/search"
)

type stubExtractor struct {
	out map[string]interface{}
	err error
}

func (s stubExtractor) ExtractJSON(context.Context, search.ExtractionRequest) (map[string]interface{}, error) {
	return s.out, s.err
}

type stubInsights struct{ err error }

func (s stubInsights) Insights(_ context.Context, p models.Property, lang string) (models.Insights, error) {
	if s.err != nil {
		return nil, s.err
	}
	return models.Insights{"marketTrends": "steady", "title": p.Title, "language": lang}, nil
}

type stubAssistant struct{}

func (stubAssistant) Consult(_ context.Context, history []models.ChatMessage, lang string) string {
	return lang + ":" + history[len(history)-1].Content
}

func (stubAssistant) Translate(_ context.Context, text, _, target string) string {
	return target + ":" + text
}

type fixture struct {
	server *httptest.Server
	store  *memory.Store
}

func newFixture(t *testing.T, extractor search.Extractor, insights listing.InsightsGenerator, ready map[string]ReadinessCheck) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.NewTestLogger(t)
	store := memory.New()

	agent, err := store.Agents().Create(ctx, models.NewAgent{Name: "Sara", Email: "sara@example.com", Phone: "+971500000001"})
	require.NoError(t, err)
	for _, in := range []models.NewProperty{
		{Title: "Marina flat", Type: models.TypeApartment, Purpose: models.PurposeSale, Price: 1_200_000, Bedrooms: models.IntPtr(2), Area: 900, Location: "Dubai Marina", Featured: true},
		{Title: "JLT office", Type: models.TypeOffice, Purpose: models.PurposeRent, Price: 150_000, Area: 1200, Location: "JLT"},
		{Title: "Creek flat", Type: models.TypeApartment, Purpose: models.PurposeRent, Price: 90_000, Bedrooms: models.IntPtr(1), Area: 700, Location: "Creek Harbour", Featured: true},
	} {
		in.AgentID = agent.ID
		_, err := store.Properties().Create(ctx, in)
		require.NoError(t, err)
	}

	searchSvc := search.NewService("engine", search.NewEngineBackend(store.Properties()), search.NewQueryParser(extractor, log), log)
	listingSvc := listing.NewService(store, insights, log, listing.WithClock(func() time.Time {
		return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	}))
	enquirySvc := enquiry.NewService(store, log, enquiry.WithIDGenerator(func() string { return "enq-1" }))

	router := NewRouter(Dependencies{
		Listings:  listingSvc,
		Search:    searchSvc,
		Enquiries: enquirySvc,
		Assistant: stubAssistant{},
		Ready:     ready,
	}, nil, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: store}
}

func defaultFixture(t *testing.T) *fixture {
	return newFixture(t, stubExtractor{out: map[string]interface{}{"purpose": "rent"}}, stubInsights{}, nil)
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeIDs(t *testing.T, body []byte) []int64 {
	t.Helper()
	var props []models.Property
	require.NoError(t, json.Unmarshal(body, &props))
	ids := make([]int64, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}
	return ids
}

func decodeError(t *testing.T, body []byte) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestBrowseRoutes(t *testing.T) {
	f := defaultFixture(t)

	tests := []struct {
		path string
		want []int64
	}{
		{"/api/properties", []int64{1, 2, 3}},
		{"/api/properties?featured=true", []int64{1, 3}},
		{"/api/properties?limit=1", []int64{1}},
		{"/api/properties/featured", []int64{1, 3}},
		{"/api/properties/sale", []int64{1}},
		{"/api/properties/rent?limit=1", []int64{2}},
		{"/api/properties/new-developments", []int64{}},
		{"/api/properties/type/apartment", []int64{1, 3}},
		{"/api/properties/type/Office?limit=5", []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			assert.Equal(t, tt.want, decodeIDs(t, body))
		})
	}
}

func TestStructuredSearch(t *testing.T) {
	f := defaultFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/properties/search?purpose=rent&type=any&bedrooms=1&maxPrice=100000", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int64{3}, decodeIDs(t, body))

	resp, body = f.do(t, http.MethodGet, "/api/properties/search?purpose=commercial", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int64{2}, decodeIDs(t, body))

	resp, body = f.do(t, http.MethodGet, "/api/properties/search?minPrice=cheap", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decodeError(t, body)
	assert.Equal(t, "VALIDATION_FAILED", errResp.Code)
	assert.Equal(t, "minPrice", errResp.Field)
}

func TestAISearch(t *testing.T) {
	t.Run("parsed criteria are applied", func(t *testing.T) {
		f := defaultFixture(t)
		resp, body := f.do(t, http.MethodPost, "/api/properties/ai-search", `{"query":"something to rent","language":"en"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var result models.AISearchResult
		require.NoError(t, json.Unmarshal(body, &result))
		require.NotNil(t, result.Criteria.Purpose)
		assert.Equal(t, "rent", *result.Criteria.Purpose)
		assert.Len(t, result.Properties, 2)
	})

	t.Run("extractor outage returns everything", func(t *testing.T) {
		f := newFixture(t, stubExtractor{err: apperrors.NewExternalServiceError("genai", errors.New("timeout"))}, stubInsights{}, nil)
		resp, body := f.do(t, http.MethodPost, "/api/properties/ai-search", `{"query":"villa"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result models.AISearchResult
		require.NoError(t, json.Unmarshal(body, &result))
		assert.True(t, result.Criteria.IsEmpty())
		assert.Len(t, result.Properties, 3)
	})

	t.Run("schema violations are rejected", func(t *testing.T) {
		f := defaultFixture(t)
		for _, body := range []string{`{"query":"  "}`, `{"query":"villa","language":"fr"}`, `not json`} {
			resp, _ := f.do(t, http.MethodPost, "/api/properties/ai-search", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		}
	})
}

func TestPropertyDetail(t *testing.T) {
	f := defaultFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/properties/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail models.PropertyDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "JLT office", detail.Property.Title)
	assert.Equal(t, "Sara", detail.Agent.Name)

	resp, body = f.do(t, http.MethodGet, "/api/properties/99", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decodeError(t, body).Code)

	resp, _ = f.do(t, http.MethodGet, "/api/properties/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRoutes(t *testing.T) {
	f := defaultFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/agents",
		`{"name":"Omar","email":"omar@example.com","phone":"+971500000002"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = f.do(t, http.MethodPost, "/api/agents",
		`{"name":"Omar 2","email":"OMAR@example.com","phone":"+971500000003"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/properties", `{
		"title":"Al Quoz warehouse","type":"Warehouse","purpose":"rent",
		"price":300000,"area":10000,"location":"Al Quoz","agentId":2
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p models.Property
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, int64(4), p.ID)

	resp, _ = f.do(t, http.MethodPost, "/api/properties", `{
		"title":"Ghost","type":"Villa","purpose":"sale","price":1,"area":1,"location":"X","agentId":77
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/locations", `{"name":"Jumeirah","city":"Dubai"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/locations", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Jumeirah")

	resp, body = f.do(t, http.MethodGet, "/api/agents?limit=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var agents []models.Agent
	require.NoError(t, json.Unmarshal(body, &agents))
	assert.Len(t, agents, 1)

	resp, _ = f.do(t, http.MethodGet, "/api/agents/2", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInsightsRoute(t *testing.T) {
	f := defaultFixture(t)
	resp, body := f.do(t, http.MethodPost, "/api/properties/1/insights?lang=ar", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"language":"ar"`)

	failing := newFixture(t, stubExtractor{}, stubInsights{err: apperrors.NewExternalServiceError("genai", errors.New("503"))}, nil)
	resp, body = failing.do(t, http.MethodPost, "/api/properties/1/insights", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", decodeError(t, body).Code)
}

func TestEnquiryRoute(t *testing.T) {
	f := defaultFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/properties/1/enquiries",
		`{"name":"Lina","email":"lina@example.com","message":"Still available?"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var receipt models.EnquiryReceipt
	require.NoError(t, json.Unmarshal(body, &receipt))
	assert.Equal(t, "enq-1", receipt.Enquiry.ID)

	resp, _ = f.do(t, http.MethodPost, "/api/properties/1/enquiries", `{"name":"Lina","email":"nope","message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssistantRoutes(t *testing.T) {
	f := defaultFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/ai/consultant",
		`{"messages":[{"role":"user","content":"Where to rent?"}],"language":"ar"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"response":"ar:Where to rent?"}`, string(body))

	resp, body = f.do(t, http.MethodPost, "/api/ai/translate", `{"text":"villa","source":"en","target":"ar"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"translatedText":"ar:villa"}`, string(body))

	resp, _ = f.do(t, http.MethodPost, "/api/ai/consultant", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOperationalRoutes(t *testing.T) {
	f := newFixture(t, stubExtractor{}, stubInsights{}, map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	resp, _ := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "connection refused")

	resp, body = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestTraceHeader(t *testing.T) {
	f := defaultFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/properties/404", nil)
	require.NoError(t, err)
	req.Header.Set(TraceHeader, "5f1f8c9e-2d0c-4c1a-9d55-0e9f6a3b7c21")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "5f1f8c9e-2d0c-4c1a-9d55-0e9f6a3b7c21", resp.Header.Get(TraceHeader))
	var errResp errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "5f1f8c9e-2d0c-4c1a-9d55-0e9f6a3b7c21", errResp.TraceID)

	resp2, _ := f.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, resp2.Header.Get(TraceHeader))
}
