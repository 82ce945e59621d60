// Package cart implements the shopper's cart: an ordered list of line items
// with unique identity keys, persisted write-through to a key-value backend.
package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// StorageKey is the key the cart is persisted under.
const StorageKey = "cart"

// DefaultQuantity is used by callers that add an item without specifying a
// quantity.
const DefaultQuantity = 1

// ErrInvalidQuantity is returned by Add for a non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// OptString is an optional label. The zero value is absent, which is a
// different identity from a present empty string.
type OptString struct {
	Value string
	Set   bool
}

// NewOptString returns a present label.
func NewOptString(v string) OptString {
	return OptString{Value: v, Set: true}
}

// IsSet reports whether the label is present.
func (o OptString) IsSet() bool { return o.Set }

// Get returns the value and whether it is present.
func (o OptString) Get() (string, bool) { return o.Value, o.Set }

// Or returns the value, or d when absent.
func (o OptString) Or(d string) string {
	if !o.Set {
		return d
	}
	return o.Value
}

// Variant holds the options chosen for a product.
type Variant struct {
	Size  OptString
	Color OptString
	Note  OptString
}

// Key identifies a cart slot. Two line items with equal keys are the same
// slot, so Key is comparable and usable as a map key.
type Key struct {
	ProductID string
	Variant
}

// LineItem is one entry in the cart. Product is a snapshot taken when the
// item was first added.
type LineItem struct {
	Product  product.Product
	Quantity int
	Variant
}

// Key returns the identity key of the line item.
func (li LineItem) Key() Key {
	return Key{ProductID: li.Product.ID, Variant: li.Variant}
}

// KV is the durable key-value storage the cart is written through to.
type KV interface {
	// Get returns the stored value and true, or false when key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// CorruptStateError is returned by Restore when the persisted value could
// not be decoded. The store is left empty and usable.
type CorruptStateError struct {
	Key string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt cart state under %q: %v", e.Key, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// PersistError is returned by a mutation whose in-memory change was applied
// but could not be written to storage.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist cart under %q: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
