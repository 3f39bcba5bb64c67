package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "property-search/internal/common/errors"
)

// Request body schema names.
const (
	SchemaAISearch       = "ai-search"
	SchemaConsultant     = "consultant"
	SchemaTranslate      = "translate"
	SchemaEnquiry        = "enquiry"
	SchemaCreateProperty = "create-property"
	SchemaCreateAgent    = "create-agent"
	SchemaCreateLocation = "create-location"
)

var schemaSources = map[string]string{
	SchemaAISearch: `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1, "pattern": "\\S"},
			"language": {"type": "string", "enum": ["en", "ar"]}
		},
		"required": ["query"]
	}`,
	SchemaConsultant: `{
		"type": "object",
		"properties": {
			"messages": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"properties": {
						"role": {"type": "string", "enum": ["user", "assistant"]},
						"content": {"type": "string", "minLength": 1}
					},
					"required": ["role", "content"]
				}
			},
			"language": {"type": "string", "enum": ["en", "ar"]}
		},
		"required": ["messages"]
	}`,
	SchemaTranslate: `{
		"type": "object",
		"properties": {
			"text": {"type": "string", "minLength": 1},
			"source": {"type": "string", "enum": ["en", "ar"]},
			"target": {"type": "string", "enum": ["en", "ar"]}
		},
		"required": ["text", "source", "target"]
	}`,
	SchemaEnquiry: `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"email": {"type": "string", "format": "email"},
			"phone": {"type": "string"},
			"message": {"type": "string", "minLength": 1, "maxLength": 2000}
		},
		"required": ["name", "email", "message"]
	}`,
	SchemaCreateProperty: `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"type": {"type": "string", "enum": ["Apartment", "Villa", "Townhouse", "Penthouse", "Duplex", "Office", "Shop", "Warehouse", "Land"]},
			"purpose": {"type": "string", "enum": ["sale", "rent"]},
			"price": {"type": "number", "exclusiveMinimum": 0},
			"bedrooms": {"type": ["integer", "null"], "minimum": 0},
			"bathrooms": {"type": ["integer", "null"], "minimum": 0},
			"area": {"type": "number", "exclusiveMinimum": 0},
			"location": {"type": "string", "minLength": 1},
			"city": {"type": "string"},
			"neighborhood": {"type": "string"},
			"address": {"type": "string"},
			"latitude": {"type": ["number", "null"], "minimum": -90, "maximum": 90},
			"longitude": {"type": ["number", "null"], "minimum": -180, "maximum": 180},
			"yearBuilt": {"type": ["integer", "null"]},
			"featured": {"type": "boolean"},
			"verified": {"type": "boolean"},
			"agentId": {"type": "integer", "minimum": 1},
			"images": {"type": "array", "items": {"type": "string"}},
			"amenities": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["title", "type", "purpose", "price", "area", "location", "agentId"]
	}`,
	SchemaCreateAgent: `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"email": {"type": "string", "format": "email"},
			"phone": {"type": "string", "minLength": 1},
			"agency": {"type": "string"},
			"bio": {"type": "string"},
			"specialty": {"type": "string"},
			"rating": {"type": ["number", "null"], "minimum": 0, "maximum": 5},
			"listingsCount": {"type": "integer", "minimum": 0},
			"imageUrl": {"type": "string"}
		},
		"required": ["name", "email", "phone"]
	}`,
	SchemaCreateLocation: `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"city": {"type": "string"},
			"propertiesCount": {"type": "integer", "minimum": 0}
		},
		"required": ["name"]
	}`,
}

var compiled = mustCompile()

func mustCompile() map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(schemaSources))
	for name, src := range schemaSources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic(fmt.Sprintf("invalid %s schema: %v", name, err))
		}
		out[name] = schema
	}
	return out
}

// ValidationResult lists every schema violation found in a document.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateDocument checks a raw JSON body against a named schema.
func ValidateDocument(schemaName string, body []byte) (*ValidationResult, error) {
	schema, ok := compiled[schemaName]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schemaName)
	}
	if !json.Valid(body) {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: "request body is not valid JSON",
			Code:    "INVALID_JSON",
		}}}, nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		field := e.Field()
		if prop, ok := e.Details()["property"].(string); ok && e.Type() == "required" {
			field = prop
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	sort.Slice(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}

// Decode validates body against schemaName and unmarshals it into dst. Schema violations
// come back as a ValidationError naming the first offending field.
func Decode(schemaName string, body []byte, dst interface{}) error {
	result, err := ValidateDocument(schemaName, body)
	if err != nil {
		return err
	}
	if !result.Valid {
		first := result.Errors[0]
		return apperrors.NewValidationError(first.Field, strings.Join(result.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewValidationError("(root)", err.Error())
	}
	return nil
}

// GetErrorMessages returns "field: message" pairs.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
