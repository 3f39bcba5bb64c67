package normalizesearchfilters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-search/internal/common/config"
	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
)

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(map[string]interface{}) logger.Logger { return tl }

func (tl *testLogger) WithError(error) logger.Logger { return tl }

func (tl *testLogger) With(map[string]interface{}) logger.Logger { return tl }

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(NewConfig(config.WorkerConfig{}), &testLogger{t: t})
}

func TestNewConfig_DefaultTimeout(t *testing.T) {
	assert.Equal(t, 10*time.Second, NewConfig(config.WorkerConfig{}).Timeout)
	assert.Equal(t, 2500*time.Millisecond, NewConfig(config.WorkerConfig{Timeout: 2500}).Timeout)
}

func TestHandler_Execute_Success(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{RawFilters: map[string]interface{}{
		"purpose":  "Rent",
		"type":     "Apartment",
		"location": "  Marina ",
		"maxPrice": "120000",
		"bedrooms": float64(2),
		"minArea":  "any",
		"sortBy":   "price",
	}})

	require.NoError(t, err)
	c := out.Criteria
	require.NotNil(t, c.Purpose)
	assert.Equal(t, "rent", *c.Purpose)
	assert.Equal(t, "Marina", *c.LocationText)
	assert.Equal(t, 120000.0, *c.MaxPrice)
	assert.Equal(t, 2.0, *c.MinBedrooms)
	assert.Nil(t, c.MinArea)
}

func TestHandler_Execute_EmptyFilters(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.True(t, out.Criteria.IsEmpty())
}

func TestHandler_Execute_InvalidCriteria(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]interface{}
		field string
	}{
		{"unknown purpose", map[string]interface{}{"purpose": "lease"}, "purpose"},
		{"non numeric price", map[string]interface{}{"minPrice": "cheap"}, "minPrice"},
		{"boolean bedrooms", map[string]interface{}{"bedrooms": true}, "bedrooms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createTestHandler(t).Execute(context.Background(), &Input{RawFilters: tt.raw})

			std, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeInvalidSearchCriteria, std.Code)
			assert.Equal(t, tt.field, std.Metadata["field"])
			assert.Zero(t, apperrors.ConvertToBPMNError(std).Retries)
		})
	}
}
