package main

import (
	"flag"
	"log"
	"os"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
)

func main() {
	path := flag.String("file", "catalog.yaml", "YAML catalog fixture to load")
	flag.Parse()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open %s: %v", *path, err)
	}
	defer f.Close()

	result, err := database.SeedCatalog(db, f)
	if err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	log.Printf("Seeded %d items and %d coupons from %s", result.Items, result.Coupons, *path)
}
