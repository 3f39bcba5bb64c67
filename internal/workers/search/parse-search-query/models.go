package parsesearchquery

import "property-search/internal/models"

type Input struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

type Output struct {
	Criteria models.SearchCriteria `json:"criteria"`
	Language string                `json:"language"`
}
