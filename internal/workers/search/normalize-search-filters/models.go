package normalizesearchfilters

import "property-search/internal/models"

type Input struct {
	RawFilters map[string]interface{} `json:"rawFilters"`
}

type Output struct {
	Criteria models.SearchCriteria `json:"criteria"`
}
