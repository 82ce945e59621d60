// Package catalog takes full snapshots of the upstream product catalog.
package catalog

import (
	"bufio"
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
)

// Lister lists catalog pages.
type Lister interface {
	List(ctx context.Context, params product.ListParams) (*product.Page, error)
}

// Fetch loads every catalog page. Page 1 is fetched first to learn the page
// count, the rest concurrently with at most concurrency requests in flight.
// Products are deduplicated by id, keeping the first occurrence in page order.
func Fetch(ctx context.Context, l Lister, limit, concurrency int) ([]product.Product, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	first, err := l.List(ctx, product.ListParams{Page: 1, Limit: limit})
	if err != nil {
		return nil, errors.Wrap(err, "fetch page 1")
	}

	total := max(first.Pagination.NumberOfPages, 1)
	pages := make([][]product.Product, total)
	pages[0] = first.Products

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for n := 2; n <= total; n++ {
		g.Go(func() error {
			page, err := l.List(gctx, product.ListParams{Page: n, Limit: limit})
			if err != nil {
				return errors.Wrapf(err, "fetch page %d", n)
			}
			pages[n-1] = page.Products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []product.Product
	for _, page := range pages {
		for _, p := range page {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

// Write writes products to w as gzip-compressed JSON lines.
func Write(w io.Writer, products []product.Product) error {
	gz := pgzip.NewWriter(w)

	var e jx.Encoder
	for _, p := range products {
		e.Reset()
		p.Encode(&e)
		if _, err := gz.Write(append(e.Bytes(), '\n')); err != nil {
			_ = gz.Close()
			return errors.Wrapf(err, "write product %s", p.ID)
		}
	}

	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip writer")
	}
	return nil
}

// Read reads a snapshot written by Write.
func Read(r io.Reader) ([]product.Product, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var out []product.Product
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p product.Product
		if err := p.Decode(jx.DecodeBytes(scanner.Bytes())); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan snapshot")
	}
	return out, nil
}
