// Command keygen bootstraps API access by creating a key directly in the
// database. The admin HTTP endpoints require an existing key; the first one
// has to come from here.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/4d4r5h/text-search-api/internal/auth/apikey"
	"github.com/4d4r5h/text-search-api/pkg/config"
	"github.com/4d4r5h/text-search-api/pkg/logger"
	"github.com/4d4r5h/text-search-api/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	name := flag.String("name", "", "key name (required)")
	rateLimit := flag.Int("rate-limit", 600, "requests per minute")
	ttl := flag.Duration("ttl", 0, "key lifetime, 0 for no expiry")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: keygen -name <key-name> [-rate-limit n] [-ttl d]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, "text")

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to postgres: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	validator := apikey.NewValidator(db)
	if err := validator.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare api key schema: %v\n", err)
		os.Exit(1)
	}

	var expiresAt *time.Time
	if *ttl > 0 {
		t := time.Now().Add(*ttl)
		expiresAt = &t
	}

	rawKey, err := validator.CreateKey(ctx, *name, *rateLimit, expiresAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create api key: %v\n", err)
		os.Exit(1)
	}

	// The raw key is shown exactly once; only its hash is stored.
	fmt.Println(rawKey)
}
