package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		seedPath      string
		migrate       bool
		adminPassword string
		adminPepper   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "file", "db/seed/catalog.yaml", "path to a YAML or JSON seed file, optionally gzip-compressed")
	flag.BoolVar(&migrate, "migrate", true, "apply the embedded schema before seeding")
	flag.StringVar(&adminPassword, "admin-password", "", "print the admin password digest for this password (or STOREFRONT_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&adminPepper, "admin-pepper", "", "HMAC pepper for the admin password digest (or STOREFRONT_ADMIN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("STOREFRONT_SEED_ADMIN_PASSWORD")
	}
	if adminPepper == "" {
		adminPepper = os.Getenv("STOREFRONT_ADMIN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, migrate); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if adminPassword != "" {
		if adminPepper == "" {
			slog.Error("admin pepper is required to derive the password digest")
			os.Exit(1)
		}
		slog.Info("admin password digest, set it as STOREFRONT_ADMIN_PASSWORD_DIGEST",
			slog.String("digest", auth.Digest([]byte(adminPepper), adminPassword)))
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string, migrate bool) error {
	slog.Info("reading seed file", slog.String("path", seedPath))

	seed, err := readSeed(seedPath)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if migrate {
		slog.Info("running migrations")
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
	}

	n, err := apply(ctx, postgres.NewStore(pool), seed, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "apply seed")
	}

	slog.Info("upserted records",
		slog.Int("categories", n.Categories),
		slog.Int("products", n.Products),
		slog.Int("sliders", n.Sliders),
		slog.Int("articles", n.Articles),
		slog.Int("faqs", n.FAQs),
		slog.Bool("settings", n.Settings),
	)
	return nil
}
