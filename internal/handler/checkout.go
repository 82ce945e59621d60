package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

// CheckoutSummary returns the subtotal, the shipping price to ?city= and the
// total.
func (h *Handler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.checkout.Quote(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSummary(e, *sum) })
}

// PlaceOrder submits the cart as an order. The ordered items leave the cart only when
// upstream accepts it.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req order.PlaceOrderRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "userInfo":
			return decodeStrings(d, key, map[string]*string{
				"name":  &req.Customer.Name,
				"email": &req.Customer.Email,
			})
		case "shippingAddress":
			return decodeStrings(d, key, map[string]*string{
				"city":     &req.Address.City,
				"district": &req.Address.District,
				"details":  &req.Address.Details,
				"phone":    &req.Address.Phone,
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(res.Confirmation.OrderID) })
					e.Field("status", func(e *jx.Encoder) { e.Str(res.Confirmation.Status) })
					e.Field("message", func(e *jx.Encoder) { e.Str(res.Confirmation.Message) })
				})
			})
			e.Field("summary", func(e *jx.Encoder) { encodeSummary(e, res.Summary) })
		})
	})
}

// decodeStrings reads an object of string fields into dst, skipping fields
// not named in dst.
func decodeStrings(d *jx.Decoder, name string, dst map[string]*string) error {
	if d.Next() != jx.Object {
		return badRequest("%s must be an object", name)
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		p, ok := dst[key]
		if !ok {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		s, err := d.Str()
		if err != nil {
			return badRequest("%s.%s must be a string", name, key)
		}
		*p = s
		return nil
	})
}
