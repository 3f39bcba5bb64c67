package models

const (
	LanguageEnglish = "en"
	LanguageArabic  = "ar"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Insights is the free-form analysis returned for a property.
type Insights map[string]interface{}

// AISearchResult carries the criteria the query was parsed into alongside the matches.
type AISearchResult struct {
	Criteria   SearchCriteria `json:"criteria"`
	Properties []Property     `json:"properties"`
}
