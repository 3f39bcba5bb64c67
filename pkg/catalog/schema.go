// pkg/catalog/schema.go
package catalog

import "property-search/internal/models"

// Catalog is the seed data set loaded into an empty store. Property agentId values
// are 1-based positions in Agents, not store ids.
type Catalog struct {
	Version     string               `json:"version"`
	LastUpdated string               `json:"lastUpdated"`
	Agents      []models.NewAgent    `json:"agents"`
	Locations   []models.NewLocation `json:"locations"`
	Properties  []models.NewProperty `json:"properties"`
}

// Summary counts what Seed created.
type Summary struct {
	Agents     int `json:"agents"`
	Locations  int `json:"locations"`
	Properties int `json:"properties"`
}
