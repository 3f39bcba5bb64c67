package searchproperties

import "property-search/internal/models"

type Input struct {
	Criteria models.SearchCriteria `json:"criteria"`
}

type Output struct {
	Properties []models.Property `json:"properties"`
	Total      int               `json:"total"`
}
