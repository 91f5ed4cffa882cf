package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/server"
	"github.com/pantryscout/backend/internal/service"
	"go.uber.org/zap"
)

// Scrapes grocery terms from both retailers and refines the results:
//
//	go run ./cmd/scrape -catalog catalog.yaml -out products.json
//	go run ./cmd/scrape -zip 45202 -dry-run tofu "oat milk"
func main() {
	catalogPath := flag.String("catalog", "", "YAML catalog of terms to scrape")
	zip := flag.String("zip", "", "Zip code used to pick stores (overrides the catalog)")
	out := flag.String("out", "products.json", "File receiving the refined products keyed by term")
	dryRun := flag.Bool("dry-run", false, "Do not store the products")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logger.Init()
	defer logger.Close()
	log := logger.Named("scrape")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	terms, zipCode, err := resolveTerms(*catalogPath, *zip, flag.Args())
	if err != nil {
		log.Fatal("invalid arguments", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	products, closeFn, err := productService(ctx, cfg, *dryRun)
	if err != nil {
		log.Fatal("failed to initialize services", zap.Error(err))
	}
	defer closeFn()

	results := make(map[string]*service.ScrapeResult, len(terms))
	for _, term := range terms {
		if ctx.Err() != nil {
			break
		}
		result, err := products.Collect(ctx, term, zipCode)
		if err != nil {
			log.Error("scrape failed", zap.String("term", term), zap.Error(err))
			continue
		}
		if !*dryRun {
			if err := products.Save(ctx, result); err != nil {
				log.Error("failed to store products", zap.String("term", term), zap.Error(err))
			}
		}
		results[term] = result
		log.Info("scraped term",
			zap.String("term", term),
			zap.Int("products", len(result.Products)),
			zap.Int("created", result.Created),
		)
	}

	if err := writeResults(*out, results); err != nil {
		log.Fatal("failed to write results", zap.Error(err))
	}
	log.Info("wrote results", zap.String("file", *out), zap.Int("terms", len(results)))
}

// resolveTerms merges catalog terms with positional arguments. The zip flag
// wins over the catalog zip.
func resolveTerms(catalogPath, zip string, args []string) ([]string, string, error) {
	catalog := &config.Catalog{}
	if catalogPath != "" {
		c, err := config.LoadCatalog(catalogPath)
		if err != nil {
			return nil, "", err
		}
		catalog = c
	}
	catalog.Terms = append(catalog.Terms, args...)
	if zip == "" {
		zip = catalog.Zip
	}

	terms := catalog.AllTerms()
	if len(terms) == 0 {
		return nil, "", fmt.Errorf("no terms given, pass -catalog or terms as arguments")
	}
	if zip == "" {
		return nil, "", fmt.Errorf("a zip code is required")
	}
	return terms, zip, nil
}

// productService builds a service able to collect products. A dry run never
// touches the database.
func productService(ctx context.Context, cfg *config.Config, dryRun bool) (*service.ProductService, func(), error) {
	if dryRun {
		client, store := server.NewStore(cfg)
		closeFn := func() {
			if client != nil {
				_ = client.Close()
			}
		}
		return service.NewProductService(nil, server.NewRefiner(cfg, store), server.Providers(cfg, store)...), closeFn, nil
	}

	services, err := server.NewServices(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return services.Products, services.Close, nil
}

func writeResults(path string, results map[string]*service.ScrapeResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
