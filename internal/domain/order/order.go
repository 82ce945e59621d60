package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// DefaultVariation is sent for a size or color the line item does not have.
const DefaultVariation = "Default"

// Variation is one line item as submitted under its product.
type Variation struct {
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
	Color    string `json:"color"`
}

// Item groups every variation of one product.
type Item struct {
	Product    string      `json:"product"`
	Variations []Variation `json:"variations"`
}

// UserInfo identifies the customer.
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ShippingAddress is where the order is delivered.
type ShippingAddress struct {
	City     string `json:"city"`
	District string `json:"district"`
	Details  string `json:"details"`
	Phone    string `json:"phone"`
}

// Payload is the body of the upstream order-creation call.
type Payload struct {
	UserInfo        UserInfo        `json:"userInfo"`
	CartItems       []Item          `json:"cartItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}

// Confirmation is the upstream answer to a successful order creation.
type Confirmation struct {
	OrderID string
	Status  string
	Message string
}

// ShippingQuote is the upstream shipping price for a city.
type ShippingQuote struct {
	PriceBeforeVat decimal.Decimal
	// Vat is a rate, e.g. 0.14.
	Vat           decimal.Decimal
	PriceAfterVat decimal.Decimal
}

// Summary is the checkout total shown to the customer.
type Summary struct {
	Subtotal decimal.Decimal
	// Shipping is nil when no city was given or the quote was unavailable.
	Shipping *ShippingQuote
	Total    decimal.Decimal
}

// Submitter sends an order to the upstream API.
type Submitter interface {
	CreateOrder(ctx context.Context, p *Payload) (*Confirmation, error)
}

// ShippingQuoter looks up shipping prices.
type ShippingQuoter interface {
	ShippingPrice(ctx context.Context, city string) (*ShippingQuote, error)
}

// GroupItems regroups line items by product id. Products appear in the order
// they are first seen; each line item becomes exactly one variation, in cart
// order, with absent or empty size and color sent as DefaultVariation. Quantities are
// never summed across variations, even when two line items differ only by
// note.
func GroupItems(items []cart.LineItem) []Item {
	out := make([]Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, li := range items {
		v := Variation{
			Quantity: li.Quantity,
			Size:     variationLabel(li.Size),
			Color:    variationLabel(li.Color),
		}
		i, ok := index[li.Product.ID]
		if !ok {
			i = len(out)
			index[li.Product.ID] = i
			out = append(out, Item{Product: li.Product.ID})
		}
		out[i].Variations = append(out[i].Variations, v)
	}
	return out
}

func variationLabel(o cart.OptString) string {
	if v := o.Or(""); v != "" {
		return v
	}
	return DefaultVariation
}
