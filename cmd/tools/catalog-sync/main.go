// cmd/tools/catalog-sync/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"property-search/internal/common/config"
	"property-search/internal/common/database"
	"property-search/internal/common/logger"
	"property-search/internal/models"
	esindex "property-search/internal/repository/elasticsearch"
	"property-search/internal/repository/postgres"
	"property-search/pkg/catalog"
)

var catalogPath string

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	reindexCmd := flag.NewFlagSet("reindex", flag.ExitOnError)
	addLocationCmd := flag.NewFlagSet("add-location", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{validateCmd, seedCmd, addLocationCmd} {
		fs.StringVar(&catalogPath, "path", "configs/catalog.json", "Path to catalog file")
	}

	// Seed command flags
	force := seedCmd.Bool("force", false, "Seed even when the database already holds listings")

	// Add-location command flags
	name := addLocationCmd.String("name", "", "Location name (e.g., Dubai Marina)")
	city := addLocationCmd.String("city", "Dubai", "City")
	count := addLocationCmd.Int("count", 0, "Number of listed properties")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := catalog.Load(catalogPath)
		if err != nil {
			fail("Failed to load catalog: %v", err)
		}
		if err := cat.Validate(); err != nil {
			fail("Catalog validation failed: %v", err)
		}
		fmt.Printf("Catalog validation passed. Found %d agents, %d locations and %d properties.\n",
			len(cat.Agents), len(cat.Locations), len(cat.Properties))

	case "seed":
		seedCmd.Parse(os.Args[2:])
		if err := seed(ctx, *force); err != nil {
			fail("Seed failed: %v", err)
		}

	case "reindex":
		reindexCmd.Parse(os.Args[2:])
		if err := reindex(ctx); err != nil {
			fail("Reindex failed: %v", err)
		}

	case "add-location":
		addLocationCmd.Parse(os.Args[2:])
		if *name == "" {
			fmt.Println("Error: name is required for add-location.")
			addLocationCmd.Usage()
			os.Exit(1)
		}
		cat, err := catalog.Load(catalogPath)
		if err != nil {
			fail("Failed to load catalog: %v", err)
		}
		if err := cat.AddLocation(models.NewLocation{Name: *name, City: *city, PropertiesCount: *count}); err != nil {
			fail("Error adding location: %v", err)
		}
		if err := catalog.Save(cat, catalogPath); err != nil {
			fail("Failed to save catalog: %v", err)
		}
		fmt.Printf("Added location: %s\n", *name)

	case "help":
		fallthrough
	default:
		help()
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*database.PostgresClient, *postgres.Store, error) {
	pg, err := database.NewPostgres(ctx, cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.New(pg.DB, logger.NewStructured(cfg.Logging.Level, "console"))
	if err := store.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, store, nil
}

func seed(ctx context.Context, force bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	pg, store, err := openPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pg.Close()

	if force {
		sum, err := cat.Seed(ctx, store)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d agents, %d locations and %d properties.\n", sum.Agents, sum.Locations, sum.Properties)
		return nil
	}

	sum, seeded, err := cat.SeedIfEmpty(ctx, store)
	if err != nil {
		return err
	}
	if !seeded {
		fmt.Println("Database already holds listings, nothing seeded. Use -force to seed anyway.")
		return nil
	}
	fmt.Printf("Seeded %d agents, %d locations and %d properties.\n", sum.Agents, sum.Locations, sum.Properties)
	return nil
}

func reindex(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is not configured")
	}

	pg, store, err := openPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pg.Close()

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return err
	}
	if err := es.Ping(ctx); err != nil {
		return err
	}

	log := logger.NewStructured(cfg.Logging.Level, "console")
	index := esindex.NewIndex(es.Client, es.Index, cfg.Search.MaxResults, log)
	if err := index.EnsureIndex(ctx); err != nil {
		return err
	}

	props, err := store.Properties().List(ctx)
	if err != nil {
		return err
	}
	for _, p := range props {
		if err := index.IndexProperty(ctx, p); err != nil {
			return fmt.Errorf("index property %d: %w", p.ID, err)
		}
	}
	fmt.Printf("Indexed %d properties into %s.\n", len(props), es.Index)
	return nil
}

func fail(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func help() {
	fmt.Println(`
Usage: catalog-sync <command> [flags]

Commands:
  validate      Validate the catalog file
  seed          Load the catalog into PostgreSQL
  reindex       Copy every PostgreSQL listing into the Elasticsearch index
  add-location  Add a location to the catalog file
  help          Show this help message

Examples:
  catalog-sync validate -path configs/catalog.json
  catalog-sync seed -path configs/catalog.json
  catalog-sync reindex
  catalog-sync add-location -name "Business Bay" -city Dubai -count 410

Use 'catalog-sync <command> -h' for more information about a command.
`)
}
