package product

import "slices"

// CategoryAll is the pseudo category that disables filtering.
const CategoryAll = "All"

// Sort orders understood by SortProducts.
const (
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

// Categories returns CategoryAll followed by every distinct category in the
// order it first appears.
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := []string{CategoryAll}
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// FilterByCategory returns the products in category. An empty category or
// CategoryAll returns the input unchanged.
func FilterByCategory(products []Product, category string) []Product {
	if category == "" || category == CategoryAll {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts returns a copy of products ordered by price. Unknown orders
// keep the upstream order. The sort is stable so equal prices keep their
// relative position.
func SortProducts(products []Product, order string) []Product {
	out := slices.Clone(products)
	switch order {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b Product) int {
			return b.Price.Cmp(a.Price)
		})
	}
	return out
}
