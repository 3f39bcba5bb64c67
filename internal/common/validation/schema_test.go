package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "property-search/internal/common/errors"
)

func TestValidateDocument_AISearch(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		valid bool
		field string
	}{
		{"query only", `{"query":"villa in palm jumeirah"}`, true, ""},
		{"arabic", `{"query":"فيلا","language":"ar"}`, true, ""},
		{"missing query", `{"language":"en"}`, false, "query"},
		{"blank query", `{"query":"   "}`, false, "query"},
		{"unsupported language", `{"query":"villa","language":"fr"}`, false, "language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateDocument(SchemaAISearch, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
			if tt.field != "" {
				assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
			}
		})
	}
}

func TestValidateDocument_UnknownSchema(t *testing.T) {
	_, err := ValidateDocument("nope", []byte(`{}`))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}

	err := Decode(SchemaEnquiry, []byte(`{"name":"Lina","email":"lina@example.com","message":"Is it available?"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "Lina", req.Name)

	err = Decode(SchemaEnquiry, []byte(`{"name":"Lina","email":"not-an-email","message":"hi"}`), &req)
	assert.True(t, apperrors.IsValidation(err))

	err = Decode(SchemaEnquiry, []byte(`{"name":`), &req)
	assert.True(t, apperrors.IsValidation(err))
}

func TestStruct(t *testing.T) {
	type input struct {
		Email   string  `json:"email" validate:"required,email"`
		Purpose string  `json:"purpose" validate:"required,oneof=sale rent"`
		Price   float64 `json:"price" validate:"gt=0"`
	}

	assert.NoError(t, Struct(input{Email: "a@b.co", Purpose: "rent", Price: 1}))

	err := Struct(input{Email: "a@b.co", Purpose: "lease", Price: 1})
	require.True(t, apperrors.IsValidation(err))
	stdErr, _ := apperrors.As(err)
	assert.Equal(t, "purpose", stdErr.Metadata["field"])
}
