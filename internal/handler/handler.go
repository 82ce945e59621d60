// Package handler implements the storefront HTTP API on top of the cart
// store, the checkout service and the upstream catalog.
package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/upstream"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Cart is the cart store as used by the API.
type Cart interface {
	Add(ctx context.Context, p product.Product, quantity int, v cart.Variant) error
	Remove(ctx context.Context, key cart.Key) error
	UpdateQuantity(ctx context.Context, key cart.Key, quantity int) error
	Clear(ctx context.Context) error
	Snapshot() cart.Snapshot
}

// Checkout computes totals and places orders.
type Checkout interface {
	Quote(ctx context.Context, city string) (*order.Summary, error)
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
}

// Handler serves the /api routes.
type Handler struct {
	cart     Cart
	checkout Checkout
	catalog  product.Catalog
	contact  contact.Sender
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(c Cart, checkout Checkout, catalog product.Catalog, sender contact.Sender) *Handler {
	return &Handler{
		cart:     c,
		checkout: checkout,
		catalog:  catalog,
		contact:  sender,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PATCH /api/cart/items", h.UpdateItem)
	mux.HandleFunc("DELETE /api/cart/items", h.RemoveItem)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/checkout/summary", h.CheckoutSummary)
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("POST /api/contact", h.SendContact)
}

// badRequestError is a malformed request: invalid JSON, a wrong field type
// or a missing required field.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// mapError converts an error to a status code and client-facing message.
func mapError(err error) (int, string) {
	var (
		bad      *badRequestError
		orderMF  *order.MissingFieldError
		msgMF    *contact.MissingFieldError
		status   *upstream.StatusError
		transErr *url.Error
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, bad.Error()
	case errors.As(err, &orderMF):
		return http.StatusBadRequest, orderMF.Error()
	case errors.As(err, &msgMF):
		return http.StatusBadRequest, msgMF.Error()
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, cart.ErrInvalidQuantity.Error()
	case errors.Is(err, order.ErrEmptyCart):
		return http.StatusUnprocessableEntity, order.ErrEmptyCart.Error()
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "product not found"
	case errors.As(err, &status):
		return http.StatusBadGateway, "upstream error: " + status.Message
	case errors.As(err, &transErr):
		return http.StatusBadGateway, "upstream unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fail logs err and writes the mapped error response.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := mapError(err)
	lg := zctx.From(r.Context())
	if code >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("code", code), zap.Error(err))
	}
	httpmiddleware.WriteError(w, code, msg)
}

// mutated handles the outcome of a cart mutation. A storage failure keeps
// the in-memory change, so it is logged and the request still succeeds.
func mutated(r *http.Request, err error) error {
	var pe *cart.PersistError
	if errors.As(err, &pe) {
		zctx.From(r.Context()).Warn("Cart not persisted", zap.Error(err))
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// decodeObject reads a JSON object body, calling fn for every field.
func decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if !jx.Valid(data) {
		return badRequest("invalid JSON body")
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return badRequest("body must be a JSON object")
	}
	if err := d.Obj(fn); err != nil {
		var bad *badRequestError
		if errors.As(err, &bad) {
			return err
		}
		return badRequest("invalid body: %v", err)
	}
	return nil
}

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeSummary(e *jx.Encoder, s order.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("subtotal", func(e *jx.Encoder) { money(e, s.Subtotal) })
		e.Field("shipping", func(e *jx.Encoder) {
			if s.Shipping == nil {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("priceBeforeVat", func(e *jx.Encoder) { money(e, s.Shipping.PriceBeforeVat) })
				e.Field("vat", func(e *jx.Encoder) { e.Num(jx.Num(s.Shipping.Vat.String())) })
				e.Field("priceAfterVat", func(e *jx.Encoder) { money(e, s.Shipping.PriceAfterVat) })
			})
		})
		e.Field("total", func(e *jx.Encoder) { money(e, s.Total) })
	})
}
