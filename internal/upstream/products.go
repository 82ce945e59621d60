package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

var _ product.Catalog = (*Client)(nil)

// decodeProducts reads a JSON array of products; null reads as empty.
func decodeProducts(raw json.RawMessage) ([]product.Product, error) {
	out := []product.Product{}
	d := jx.DecodeBytes(raw)
	if len(raw) == 0 || d.Next() == jx.Null {
		return out, nil
	}
	if err := d.Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := p.Decode(d); err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeProduct reads a single product. It reports false for null.
func decodeProduct(raw json.RawMessage) (product.Product, bool, error) {
	var p product.Product
	d := jx.DecodeBytes(raw)
	if len(raw) == 0 || d.Next() == jx.Null {
		return p, false, nil
	}
	if err := p.Decode(d); err != nil {
		return p, false, err
	}
	return p, true, nil
}

type paginationDTO struct {
	CurrentPage   int `json:"currentPage"`
	Limit         int `json:"limit"`
	NumberOfPages int `json:"numberOfPages"`
	Next          int `json:"next"`
}

// List returns one page of the catalog.
func (c *Client) List(ctx context.Context, params product.ListParams) (*product.Page, error) {
	env, err := do[json.RawMessage](ctx, c, http.MethodGet, "api/v1/products", params.Query(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	products, err := decodeProducts(env.Data)
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	page := &product.Page{Products: products}
	if p := env.Pagination; p != nil {
		page.Pagination = product.Pagination{
			CurrentPage:   p.CurrentPage,
			Limit:         p.Limit,
			NumberOfPages: p.NumberOfPages,
			Next:          p.Next,
		}
	}
	return page, nil
}

// Get returns a single product. It returns product.ErrNotFound when upstream
// does not know the id.
func (c *Client) Get(ctx context.Context, id string) (*product.Product, error) {
	if id == "" {
		return nil, product.ErrNotFound
	}

	env, err := do[json.RawMessage](ctx, c, http.MethodGet, "api/v1/products/"+url.PathEscape(id), nil, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(product.ErrNotFound, "product %s", id)
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	p, ok, err := decodeProduct(env.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode product %s", id)
	}
	if !ok || p.ID == "" {
		return nil, errors.Wrapf(product.ErrNotFound, "product %s", id)
	}
	return &p, nil
}

// Ping checks that the catalog endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.List(ctx, product.ListParams{Page: 1, Limit: 1})
	return err
}
