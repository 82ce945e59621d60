package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

const meterName = "github.com/xenking/storefront/internal/domain/cart"

// Option configures a Store.
type Option func(*Store)

// WithMeterProvider sets the provider used for cart metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Store) {
		s.meterProvider = mp
	}
}

// WithStorageKey overrides StorageKey.
func WithStorageKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// Store holds the cart line items and writes the whole cart to its KV after
// every mutation.
//
// All methods are safe for concurrent use. A single mutex serializes
// operations including the storage write, so snapshots reach storage in
// mutation order.
type Store struct {
	kv            KV
	key           string
	meterProvider metric.MeterProvider

	mutations       metric.Int64Counter
	persistFailures metric.Int64Counter

	mu    sync.Mutex
	items []LineItem
}

// New returns an empty Store bound to kv. Call Restore to load the persisted
// cart.
func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:            kv,
		key:           StorageKey,
		meterProvider: noop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	meter := s.meterProvider.Meter(meterName)
	var err error
	if s.mutations, err = meter.Int64Counter("cart.mutations",
		metric.WithDescription("Cart mutations by operation"),
	); err != nil {
		s.mutations = noop.Int64Counter{}
	}
	if s.persistFailures, err = meter.Int64Counter("cart.persist.failures",
		metric.WithDescription("Cart writes rejected by storage"),
	); err != nil {
		s.persistFailures = noop.Int64Counter{}
	}

	return s
}

// Restore replaces the in-memory cart with the persisted one.
//
// A missing or empty value yields an empty cart and no error. A value that is
// not a JSON array yields an empty cart and a *CorruptStateError. Malformed
// elements of an array are dropped and reported the same way, while the
// well-formed ones are kept. A storage read failure yields an empty cart and
// the wrapped error. In every case the store remains usable. Duplicate keys
// in the persisted value are merged as Add would.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return errors.Wrap(err, "read cart")
	}
	if !ok || raw == "" {
		return nil
	}

	items, err := Decode(raw)
	for _, item := range items {
		s.merge(item.Product, item.Quantity, item.Variant)
	}
	if err != nil {
		return &CorruptStateError{Key: s.key, Err: err}
	}

	zctx.From(ctx).Debug("Cart restored", zap.Int("items", len(s.items)))
	return nil
}

// Add puts quantity units of p with the given variant into the cart. When a
// line item with the same key exists its quantity is increased by quantity;
// otherwise a new line item is appended with p as its product snapshot.
//
// Add returns ErrInvalidQuantity without touching the cart when quantity is
// not positive.
func (s *Store) Add(ctx context.Context, p product.Product, quantity int, v Variant) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.merge(p, quantity, v)
	return s.persist(ctx, "add")
}

// Remove deletes the line item with the given key. Removing an absent key is
// a no-op that is still persisted.
func (s *Store) Remove(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(key)
	return s.persist(ctx, "remove")
}

// UpdateQuantity sets the quantity of the line item with the given key to
// exactly quantity. Unlike Add it never increments and never creates a line
// item: an absent key is left absent. A non-positive quantity removes the
// line item.
func (s *Store) UpdateQuantity(ctx context.Context, key Key, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(key)
	} else if i := s.indexOf(key); i >= 0 {
		s.items[i].Quantity = quantity
	}
	return s.persist(ctx, "update_quantity")
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return s.persist(ctx, "clear")
}

// Consume takes ordered line items out of the cart. Each matching line item
// loses the ordered quantity and is removed once nothing is left, so units
// added after ordered was captured stay in the cart.
func (s *Store) Consume(ctx context.Context, ordered []LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, li := range ordered {
		i := s.indexOf(li.Key())
		if i < 0 {
			continue
		}
		s.items[i].Quantity -= li.Quantity
		if s.items[i].Quantity <= 0 {
			s.remove(li.Key())
		}
	}
	return s.persist(ctx, "consume")
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.items)
}

// Len returns the number of line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// Count returns the total number of units across all line items.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return count(s.items)
}

// Subtotal returns the sum of price times quantity across all line items.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return subtotal(s.items)
}

// Snapshot is a consistent view of the cart and its derived values.
type Snapshot struct {
	Items    []LineItem
	Count    int
	Subtotal decimal.Decimal
}

// Snapshot returns items, count and subtotal computed under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Items:    slices.Clone(s.items),
		Count:    count(s.items),
		Subtotal: subtotal(s.items),
	}
}

func (s *Store) merge(p product.Product, quantity int, v Variant) {
	key := Key{ProductID: p.ID, Variant: v}
	if i := s.indexOf(key); i >= 0 {
		s.items[i].Quantity += quantity
		return
	}
	s.items = append(s.items, LineItem{Product: p, Quantity: quantity, Variant: v})
}

func (s *Store) remove(key Key) {
	s.items = slices.DeleteFunc(s.items, func(li LineItem) bool {
		return li.Key() == key
	})
}

func (s *Store) indexOf(key Key) int {
	return slices.IndexFunc(s.items, func(li LineItem) bool {
		return li.Key() == key
	})
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context, op string) error {
	opAttr := metric.WithAttributes(attribute.String("op", op))
	s.mutations.Add(ctx, 1, opAttr)

	if err := s.kv.Set(ctx, s.key, Encode(s.items)); err != nil {
		s.persistFailures.Add(ctx, 1, opAttr)
		return &PersistError{Key: s.key, Err: err}
	}

	zctx.From(ctx).Debug("Cart persisted",
		zap.String("op", op),
		zap.Int("items", len(s.items)),
	)
	return nil
}

func count(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}
