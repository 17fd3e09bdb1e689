package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/infrastructure/config"
	"tripcast-service/internal/infrastructure/oauth"
	"tripcast-service/pkg/logger"
)

// Prints the provider catalog with credential status and verifies the
// Amadeus client credentials by fetching a token.
func main() {
	catalogPath := flag.String("catalog", "", "path to a model catalog TOML file (default: embedded)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	catalog, err := config.LoadCatalog(*catalogPath, cfg.CostTargetUSD)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	fmt.Printf("Catalog %s (last resort %s, cost target $%.2f)\n\n", catalog.Version, catalog.LastResortModel, catalog.CostTargetUSD)
	printGroup("Generative", catalog.Generative)
	printGroup("Search", catalog.Search)
	printGroup("Scrapers", catalog.Scrapers)
	printGroup("Booking", catalog.Booking)

	auth := oauth.NewAmadeusOAuth(cfg.AmadeusBaseURL, cfg.AmadeusClientID, cfg.AmadeusClientSecret, logger.NewNopLogger())
	if !auth.IsConfigured() {
		fmt.Println("Amadeus: not configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := auth.FetchToken(ctx)
	if err != nil {
		fmt.Printf("Amadeus: token request failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Amadeus: token ok, expires %s\n", token.Expiry.Format(time.RFC3339))
}

func printGroup(title string, descriptors []entity.ProviderDescriptor) {
	fmt.Println(title + ":")
	for _, d := range descriptors {
		status := "no credential needed"
		if d.CredentialEnv != "" {
			status = "missing " + d.CredentialEnv
			if os.Getenv(d.CredentialEnv) != "" {
				status = "configured"
			}
		}
		model := ""
		if d.DefaultModel != "" {
			model = " model=" + d.DefaultModel
		}
		fmt.Printf("  %d. %-12s%s [%s]\n", d.Priority, d.Name, model, status)
	}
	fmt.Println()
}
