package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/common/metrics"
	"property-search/internal/models"
)

// ExtractionRequest is a single prompt round trip to the text-understanding service.
type ExtractionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

// Extractor turns a prompt into a loosely-typed JSON object.
type Extractor interface {
	ExtractJSON(ctx context.Context, req ExtractionRequest) (map[string]interface{}, error)
}

const parseTemperature = 0.1

type promptTemplate struct {
	system string
	user   string
}

var promptTemplates = map[string]promptTemplate{
	models.LanguageEnglish: {
		system: "You are a real estate search assistant. Convert property search requests into structured filters and answer with a single JSON object.",
		user: `Convert this property search into filters: %q
Use only these keys and omit any that the request does not mention:
purpose ("buy", "rent" or "commercial"), type (Apartment, Villa, Townhouse, Penthouse, Duplex, Office, Shop, Warehouse or Land),
location (area or neighborhood name), minPrice, maxPrice, bedrooms (minimum), bathrooms (minimum), minArea, maxArea (square feet).
Numbers must be plain JSON numbers without currency or units.`,
	},
	models.LanguageArabic: {
		system: "أنت مساعد للبحث عن العقارات. حوّل طلبات البحث إلى معايير منظمة وأجب بكائن JSON واحد فقط.",
		user: `حوّل طلب البحث التالي إلى معايير: %q
استخدم المفاتيح التالية فقط باللغة الإنجليزية واحذف ما لم يُذكر في الطلب:
purpose ("buy" أو "rent" أو "commercial")، type (Apartment، Villa، Townhouse، Penthouse، Duplex، Office، Shop، Warehouse، Land)،
location (اسم المنطقة أو الحي)، minPrice، maxPrice، bedrooms (الحد الأدنى)، bathrooms (الحد الأدنى)، minArea، maxArea (بالقدم المربع).
يجب أن تكون الأرقام أرقام JSON بدون عملة أو وحدات.`,
	},
}

var purposeSynonyms = map[string]string{
	"buy":        models.SearchBuy,
	"purchase":   models.SearchBuy,
	"buying":     models.SearchBuy,
	"sale":       models.SearchBuy,
	"rent":       models.SearchRent,
	"rental":     models.SearchRent,
	"renting":    models.SearchRent,
	"lease":      models.SearchRent,
	"leasing":    models.SearchRent,
	"commercial": models.SearchCommercial,
	"business":   models.SearchCommercial,
	"office":     models.SearchCommercial,
}

// extractedAliases maps alternative keys the service tends to emit onto filter keys.
var extractedAliases = map[string]string{
	"propertyType": KeyType,
	"minBedrooms":  KeyBedrooms,
	"minBathrooms": KeyBathrooms,
	"locationText": KeyLocation,
}

// QueryParser converts free text into SearchCriteria through an Extractor.
type QueryParser struct {
	extractor Extractor
	logger    logger.Logger
}

func NewQueryParser(extractor Extractor, log logger.Logger) *QueryParser {
	return &QueryParser{
		extractor: extractor,
		logger:    log.WithFields(map[string]interface{}{"component": "query-parser"}),
	}
}

// Parse never fails on extractor errors: it logs, counts the fallback and returns empty
// criteria so the search matches everything. Only a blank query is rejected.
func (p *QueryParser) Parse(ctx context.Context, query, language string) (models.SearchCriteria, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.SearchCriteria{}, apperrors.NewValidationError("query", "query must not be empty")
	}
	language = NormalizeLanguage(language)

	tmpl := promptTemplates[language]
	extracted, err := p.extractor.ExtractJSON(ctx, ExtractionRequest{
		SystemPrompt: tmpl.system,
		UserPrompt:   fmt.Sprintf(tmpl.user, query),
		Temperature:  parseTemperature,
	})
	if err != nil {
		p.logger.Warn("query parse failed, falling back to unconstrained criteria", map[string]interface{}{
			"language": language,
			"error":    err,
		})
		metrics.QueryParseFallbacks.WithLabelValues(language, fallbackReason(err)).Inc()
		return models.SearchCriteria{}, nil
	}

	return p.coerce(extracted, language), nil
}

// NormalizeLanguage maps anything other than Arabic onto English.
func NormalizeLanguage(language string) string {
	if strings.EqualFold(strings.TrimSpace(language), models.LanguageArabic) {
		return models.LanguageArabic
	}
	return models.LanguageEnglish
}

// coerce converts each extracted field on its own; a field that cannot be coerced is dropped.
func (p *QueryParser) coerce(extracted map[string]interface{}, language string) models.SearchCriteria {
	var c models.SearchCriteria

	fields := make(map[string]interface{}, len(extracted))
	for k, v := range extracted {
		if alias, ok := extractedAliases[k]; ok {
			if _, direct := extracted[alias]; direct {
				continue
			}
			k = alias
		}
		fields[k] = v
	}

	if raw, ok := fields[KeyPurpose]; ok {
		if s, isStr := raw.(string); isStr {
			if purpose, known := purposeSynonyms[strings.ToLower(strings.TrimSpace(s))]; known {
				c.Purpose = &purpose
			} else if !isUnset(strings.TrimSpace(s)) {
				p.dropField(KeyPurpose, raw, language)
			}
		} else if raw != nil {
			p.dropField(KeyPurpose, raw, language)
		}
	}

	for key, dst := range map[string]**string{KeyType: &c.PropertyType, KeyLocation: &c.LocationText} {
		v, err := stringField(fields, key)
		if err != nil {
			p.dropField(key, fields[key], language)
			continue
		}
		*dst = v
	}

	for key, dst := range map[string]**float64{
		KeyMinPrice:  &c.MinPrice,
		KeyMaxPrice:  &c.MaxPrice,
		KeyBedrooms:  &c.MinBedrooms,
		KeyBathrooms: &c.MinBathrooms,
		KeyMinArea:   &c.MinArea,
		KeyMaxArea:   &c.MaxArea,
	} {
		v, err := numberField(fields, key)
		if err != nil {
			p.dropField(key, fields[key], language)
			continue
		}
		*dst = v
	}

	return c
}

func (p *QueryParser) dropField(key string, value interface{}, language string) {
	p.logger.Debug("dropping uncoercible extracted field", map[string]interface{}{
		"field":    key,
		"value":    fmt.Sprintf("%v", value),
		"language": language,
	})
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case apperrors.IsExternal(err):
		return "external"
	default:
		return "error"
	}
}
