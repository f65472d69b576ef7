// Command manage runs maintenance tasks against the pricing tables.
//
//	manage migrate   create missing tables
//	manage init-db   seed state_tax and discount from SEED_DIR
//	manage drop-db   truncate state_tax and discount
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/pricing-wallet/wallet-service/internal/config"
	"github.com/pricing-wallet/wallet-service/internal/repository"

	_ "github.com/lib/pq"
)

type settings struct {
	DataBase config.DatabaseConfig
	Pricing  config.PricingConfig
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// LoadEnv parses the flags, so the command is read after it.
	if err := config.LoadEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, config.ErrFileFormat) {
		log.Error("failed to load env file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(2)
	}

	var cfg settings
	if err := envconfig.Process("", &cfg); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DataBase.URL)
	if err != nil {
		log.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := run(ctx, command, db, cfg.Pricing.SeedDir); err != nil {
		log.Error("command failed", slog.String("command", command), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, db *sql.DB, seedDir string) error {
	repo := repository.NewPricingRepository(db)

	switch command {
	case "migrate":
		return repository.CreateTablesIfNotExist(ctx, db)
	case "init-db":
		return initDB(ctx, repo, seedDir)
	case "drop-db":
		return repo.Truncate(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func initDB(ctx context.Context, repo seeder, seedDir string) error {
	empty, err := repo.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		fmt.Println("table is not empty")
		return nil
	}

	taxes, err := readStateTaxes(filepath.Join(seedDir, "state_tax.csv"))
	if err != nil {
		return err
	}
	discounts, err := readDiscounts(filepath.Join(seedDir, "discount.csv"))
	if err != nil {
		return err
	}
	return repo.Seed(ctx, taxes, discounts)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: manage [--config path] migrate|init-db|drop-db")
}
