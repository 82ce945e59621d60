package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

var (
	_ order.Submitter      = (*Client)(nil)
	_ order.ShippingQuoter = (*Client)(nil)
)

type shippingDTO struct {
	PriceBeforeVat decimal.Decimal `json:"priceBeforeVat"`
	Vat            decimal.Decimal `json:"vat"`
	PriceAfterVat  decimal.Decimal `json:"priceAfterVat"`
}

// orderRefDTO picks an order id out of whatever upstream returns as data.
type orderRefDTO struct {
	MongoID string `json:"_id"`
	OrderID string `json:"orderId"`
	ID      string `json:"id"`
}

func (d orderRefDTO) id() string {
	switch {
	case d.MongoID != "":
		return d.MongoID
	case d.OrderID != "":
		return d.OrderID
	default:
		return d.ID
	}
}

// CreateOrder submits an order. It is not retried.
func (c *Client) CreateOrder(ctx context.Context, p *order.Payload) (*order.Confirmation, error) {
	env, err := do[json.RawMessage](ctx, c, http.MethodPost, "api/v1/orders", nil, p)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	conf := &order.Confirmation{
		Status:  env.Status,
		Message: env.Message,
	}
	var ref orderRefDTO
	if json.Unmarshal(env.Data, &ref) == nil {
		conf.OrderID = ref.id()
	}
	return conf, nil
}

// ShippingPrice returns the shipping price to city.
func (c *Client) ShippingPrice(ctx context.Context, city string) (*order.ShippingQuote, error) {
	q := url.Values{"city": {city}}
	env, err := do[shippingDTO](ctx, c, http.MethodGet, "api/v1/orders/shipping-price", q, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "shipping price for %q", city)
	}
	return &order.ShippingQuote{
		PriceBeforeVat: env.Data.PriceBeforeVat,
		Vat:            env.Data.Vat,
		PriceAfterVat:  env.Data.PriceAfterVat,
	}, nil
}
