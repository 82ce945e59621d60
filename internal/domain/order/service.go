package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
)

// ErrEmptyCart is returned when placing an order with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// MissingFieldError indicates a required checkout field was left blank.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Cart is the part of the cart store checkout depends on.
type Cart interface {
	Snapshot() cart.Snapshot
	Consume(ctx context.Context, ordered []cart.LineItem) error
}

// PlaceOrderRequest holds the customer details entered at checkout.
type PlaceOrderRequest struct {
	Customer UserInfo
	Address  ShippingAddress
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Confirmation *Confirmation
	Payload      *Payload
	Summary      Summary
}

// Service encapsulates checkout: totals and order submission.
type Service struct {
	cart     Cart
	orders   Submitter
	shipping ShippingQuoter
}

// NewService creates a checkout Service.
func NewService(c Cart, orders Submitter, shipping ShippingQuoter) *Service {
	return &Service{
		cart:     c,
		orders:   orders,
		shipping: shipping,
	}
}

// Quote returns the cart subtotal plus shipping to city. An empty city
// returns the subtotal alone without calling upstream.
func (s *Service) Quote(ctx context.Context, city string) (*Summary, error) {
	snap := s.cart.Snapshot()

	sum := Summary{
		Subtotal: snap.Subtotal.Round(2),
		Total:    snap.Subtotal.Round(2),
	}
	if strings.TrimSpace(city) == "" {
		return &sum, nil
	}

	q, err := s.shipping.ShippingPrice(ctx, city)
	if err != nil {
		return nil, errors.Wrap(err, "get shipping price")
	}
	sum.Shipping = q
	sum.Total = snap.Subtotal.Add(q.PriceAfterVat).Round(2)
	return &sum, nil
}

// PlaceOrder validates the request, submits the grouped cart upstream and
// takes the submitted line items out of the cart once the order is accepted.
// Items added while the order is in flight stay in the cart. On any failure
// the cart is left untouched. Order creation is never retried.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	snap := s.cart.Snapshot()
	if len(snap.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	payload := &Payload{
		UserInfo:        req.Customer,
		CartItems:       GroupItems(snap.Items),
		ShippingAddress: req.Address,
	}

	lg := zctx.From(ctx)

	// The summary is informational; a failed shipping lookup must not block
	// the order.
	sum := Summary{Subtotal: snap.Subtotal.Round(2), Total: snap.Subtotal.Round(2)}
	if q, err := s.shipping.ShippingPrice(ctx, req.Address.City); err != nil {
		lg.Warn("Shipping price unavailable", zap.String("city", req.Address.City), zap.Error(err))
	} else {
		sum.Shipping = q
		sum.Total = snap.Subtotal.Add(q.PriceAfterVat).Round(2)
	}

	conf, err := s.orders.CreateOrder(ctx, payload)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	lg.Info("Order placed",
		zap.String("order_id", conf.OrderID),
		zap.Int("products", len(payload.CartItems)),
		zap.Int("units", snap.Count),
	)

	if err := s.cart.Consume(ctx, snap.Items); err != nil {
		lg.Warn("Remove ordered items from cart", zap.Error(err))
	}

	return &PlaceOrderResult{
		Confirmation: conf,
		Payload:      payload,
		Summary:      sum,
	}, nil
}

func validate(req PlaceOrderRequest) error {
	required := []struct {
		field string
		value string
	}{
		{"name", req.Customer.Name},
		{"phone", req.Address.Phone},
		{"city", req.Address.City},
		{"details", req.Address.Details},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &MissingFieldError{Field: r.field}
		}
	}
	return nil
}
