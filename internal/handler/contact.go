package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/contact"
)

// SendContact relays a contact message upstream.
func (h *Handler) SendContact(w http.ResponseWriter, r *http.Request) {
	var msg contact.Message
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "name":
			dst = &msg.Name
		case "email":
			dst = &msg.Email
		case "message":
			dst = &msg.Message
		default:
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return badRequest("%s must be a string", key)
		}
		*dst = s
		return nil
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := msg.Validate(); err != nil {
		fail(w, r, err)
		return
	}

	if err := h.contact.SendContact(r.Context(), msg); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("status", func(e *jx.Encoder) { e.Str("sent") })
		})
	})
}
