package upstream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/contact"
)

var _ contact.Sender = (*Client)(nil)

// SendContact relays a contact message.
func (c *Client) SendContact(ctx context.Context, m contact.Message) error {
	if _, err := do[json.RawMessage](ctx, c, http.MethodPost, "api/v1/contact-us", nil, m); err != nil {
		return errors.Wrap(err, "send contact message")
	}
	return nil
}
