package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
)

// itemRequest is the body of the add and update calls. Labels keep the
// difference between an absent and an empty value.
type itemRequest struct {
	ProductID   string
	Quantity    int
	HasQuantity bool
	Variant     cart.Variant
}

func (req itemRequest) key() cart.Key {
	return cart.Key{ProductID: req.ProductID, Variant: req.Variant}
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (itemRequest, error) {
	var req itemRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
			req.HasQuantity = err == nil
		case "selectedSize":
			err = decodeLabel(d, &req.Variant.Size)
		case "selectedColor":
			err = decodeLabel(d, &req.Variant.Color)
		case "note":
			err = decodeLabel(d, &req.Variant.Note)
		default:
			err = d.Skip()
		}
		if err != nil {
			return badRequest("invalid %s: %v", key, err)
		}
		return nil
	})
	if err != nil {
		return req, err
	}
	if req.ProductID == "" {
		return req, badRequest("productId is required")
	}
	return req, nil
}

// decodeLabel reads an optional string; null is the same as absent.
func decodeLabel(d *jx.Decoder, o *cart.OptString) error {
	if d.Next() == jx.Null {
		*o = cart.OptString{}
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*o = cart.NewOptString(s)
	return nil
}

func (h *Handler) writeCart(w http.ResponseWriter, status int) {
	snap := h.cart.Snapshot()
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) { e.Raw([]byte(cart.Encode(snap.Items))) })
			e.Field("count", func(e *jx.Encoder) { e.Int(snap.Count) })
			e.Field("subtotal", func(e *jx.Encoder) { money(e, snap.Subtotal) })
		})
	})
}

// GetCart returns the items, unit count and subtotal.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, http.StatusOK)
}

// AddItem looks the product up upstream and adds a snapshot of it. Quantity
// defaults to cart.DefaultQuantity.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeItemRequest(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !req.HasQuantity {
		req.Quantity = cart.DefaultQuantity
	}
	if req.Quantity <= 0 {
		fail(w, r, cart.ErrInvalidQuantity)
		return
	}

	p, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := mutated(r, h.cart.Add(r.Context(), *p, req.Quantity, req.Variant)); err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK)
}

// UpdateItem sets the quantity of a line item; zero or less removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeItemRequest(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !req.HasQuantity {
		fail(w, r, badRequest("quantity is required"))
		return
	}
	if err := mutated(r, h.cart.UpdateQuantity(r.Context(), req.key(), req.Quantity)); err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK)
}

// RemoveItem removes the line item named by the query. A label parameter
// that is present, even empty, is part of the key.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := cart.Key{ProductID: q.Get("productId")}
	if key.ProductID == "" {
		fail(w, r, badRequest("productId is required"))
		return
	}
	for name, o := range map[string]*cart.OptString{
		"selectedSize":  &key.Size,
		"selectedColor": &key.Color,
		"note":          &key.Note,
	} {
		if vs, ok := q[name]; ok {
			*o = cart.NewOptString(vs[0])
		}
	}

	if err := mutated(r, h.cart.Remove(r.Context(), key)); err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := mutated(r, h.cart.Clear(r.Context())); err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK)
}
