package product

import (
	"context"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Sizes       []string
	Colors      []string
	Images      []string
	Slug        string
}

// Pagination describes where a page sits in the full listing.
type Pagination struct {
	CurrentPage   int
	Limit         int
	NumberOfPages int
	// Next is zero on the last page.
	Next int
}

// Page is one page of the upstream product listing.
type Page struct {
	Products   []Product
	Pagination Pagination
}

// ListParams selects a page of the listing. Zero values are left to upstream
// defaults.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	Sort     string
}

// Query encodes the params as upstream query parameters. The "All" pseudo
// category is never sent.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Category != "" && p.Category != CategoryAll {
		q.Set("category", p.Category)
	}
	return q
}

// Catalog defines read operations against the product catalog.
type Catalog interface {
	List(ctx context.Context, params ListParams) (*Page, error)
	Get(ctx context.Context, id string) (*Product, error)
}
