package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

// ListProducts returns one upstream page, filtered by category and sorted
// locally, with the categories present on the page.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		fail(w, r, err)
		return
	}
	params := product.ListParams{
		Page:     page,
		Limit:    limit,
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
	}

	res, err := h.catalog.List(r.Context(), params)
	if err != nil {
		fail(w, r, err)
		return
	}

	categories := product.Categories(res.Products)
	products := product.SortProducts(product.FilterByCategory(res.Products, params.Category), params.Sort)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("products", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, p := range products {
						p.Encode(e)
					}
				})
			})
			e.Field("pagination", func(e *jx.Encoder) {
				pg := res.Pagination
				e.Obj(func(e *jx.Encoder) {
					e.Field("currentPage", func(e *jx.Encoder) { e.Int(pg.CurrentPage) })
					e.Field("limit", func(e *jx.Encoder) { e.Int(pg.Limit) })
					e.Field("numberOfPages", func(e *jx.Encoder) { e.Int(pg.NumberOfPages) })
					if pg.Next > 0 {
						e.Field("next", func(e *jx.Encoder) { e.Int(pg.Next) })
					}
				})
			})
			e.Field("categories", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, c := range categories {
						e.Str(c)
					}
				})
			})
		})
	})
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Encode)
}
