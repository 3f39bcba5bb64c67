// pkg/catalog/catalog.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"property-search/internal/common/validation"
	"property-search/internal/models"
	"property-search/internal/repository"
)

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Save writes the catalog back with a fresh lastUpdated stamp.
func Save(cat *Catalog, path string) error {
	cat.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate checks every entry against the create rules and resolves agent references.
func (c *Catalog) Validate() error {
	emails := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if err := validation.Struct(a); err != nil {
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
		key := strings.ToLower(a.Email)
		if emails[key] {
			return fmt.Errorf("agents[%d]: duplicate email %s", i, a.Email)
		}
		emails[key] = true
	}

	names := make(map[string]bool, len(c.Locations))
	for i, l := range c.Locations {
		if err := validation.Struct(l); err != nil {
			return fmt.Errorf("locations[%d]: %w", i, err)
		}
		key := strings.ToLower(l.Name)
		if names[key] {
			return fmt.Errorf("locations[%d]: duplicate name %s", i, l.Name)
		}
		names[key] = true
	}

	for i, p := range c.Properties {
		if err := validation.Struct(p); err != nil {
			return fmt.Errorf("properties[%d]: %w", i, err)
		}
		if p.AgentID > int64(len(c.Agents)) {
			return fmt.Errorf("properties[%d]: agentId %d is outside the %d catalog agents", i, p.AgentID, len(c.Agents))
		}
	}
	return nil
}

// Seed creates agents, then locations, then properties with their agent references
// rewritten to the ids the store assigned.
func (c *Catalog) Seed(ctx context.Context, store repository.Store) (Summary, error) {
	var sum Summary
	if err := c.Validate(); err != nil {
		return sum, err
	}

	agentIDs := make([]int64, len(c.Agents))
	for i, a := range c.Agents {
		created, err := store.Agents().Create(ctx, a)
		if err != nil {
			return sum, fmt.Errorf("seed agent %s: %w", a.Email, err)
		}
		agentIDs[i] = created.ID
		sum.Agents++
	}

	for _, l := range c.Locations {
		if _, err := store.Locations().Create(ctx, l); err != nil {
			return sum, fmt.Errorf("seed location %s: %w", l.Name, err)
		}
		sum.Locations++
	}

	for _, p := range c.Properties {
		p.AgentID = agentIDs[p.AgentID-1]
		if _, err := store.Properties().Create(ctx, p); err != nil {
			return sum, fmt.Errorf("seed property %q: %w", p.Title, err)
		}
		sum.Properties++
	}
	return sum, nil
}

// SeedIfEmpty seeds only a store with no agents and no properties.
func (c *Catalog) SeedIfEmpty(ctx context.Context, store repository.Store) (Summary, bool, error) {
	agents, err := store.Agents().List(ctx)
	if err != nil {
		return Summary{}, false, err
	}
	props, err := store.Properties().List(ctx)
	if err != nil {
		return Summary{}, false, err
	}
	if len(agents) > 0 || len(props) > 0 {
		return Summary{}, false, nil
	}
	sum, err := c.Seed(ctx, store)
	return sum, err == nil, err
}

// AddLocation appends a location unless one with the same name exists.
func (c *Catalog) AddLocation(loc models.NewLocation) error {
	if err := validation.Struct(loc); err != nil {
		return err
	}
	for _, existing := range c.Locations {
		if strings.EqualFold(existing.Name, loc.Name) {
			return fmt.Errorf("location %s already exists", loc.Name)
		}
	}
	c.Locations = append(c.Locations, loc)
	return nil
}
