package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/upstream"
)

func main() {
	var (
		baseURL     string
		out         string
		limit       int
		concurrency int
		timeout     time.Duration
	)

	flag.StringVar(&baseURL, "upstream", "", "upstream API base URL (or STOREFRONT_UPSTREAM_BASEURL env)")
	flag.StringVar(&out, "out", "catalog.jsonl.gz", "snapshot output path")
	flag.IntVar(&limit, "limit", 50, "products per page")
	flag.IntVar(&concurrency, "concurrency", 4, "pages fetched in parallel")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	flag.Parse()

	if baseURL == "" {
		baseURL = os.Getenv("STOREFRONT_UPSTREAM_BASEURL")
	}
	if baseURL == "" {
		slog.Error("upstream URL is required: set --upstream or STOREFRONT_UPSTREAM_BASEURL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, baseURL, out, limit, concurrency, timeout); err != nil {
		slog.Error("catalog dump failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL, out string, limit, concurrency int, timeout time.Duration) error {
	client, err := upstream.New(baseURL, upstream.WithTimeout(timeout))
	if err != nil {
		return errors.Wrap(err, "create upstream client")
	}

	start := time.Now()
	slog.Info("fetching catalog", slog.String("upstream", baseURL), slog.Int("limit", limit))

	products, err := catalog.Fetch(ctx, client, limit, concurrency)
	if err != nil {
		return errors.Wrap(err, "fetch catalog")
	}

	// Write to a temp file first so a failed dump never truncates a good one.
	tmp, err := os.CreateTemp(filepath.Dir(out), ".catalog-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := catalog.Write(tmp, products); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close snapshot")
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return errors.Wrapf(err, "rename snapshot to %s", out)
	}

	slog.Info("catalog dump completed",
		slog.Int("products", len(products)),
		slog.String("out", out),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}
