package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode serializes items as the persisted JSON array. Absent labels are
// omitted; present labels are written even when empty.
func Encode(items []LineItem) string {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, item := range items {
			encodeLineItem(e, item)
		}
	})
	return e.String()
}

func encodeLineItem(e *jx.Encoder, item LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product", func(e *jx.Encoder) {
			item.Product.Encode(e)
		})
		e.Field("quantity", func(e *jx.Encoder) {
			e.Int(item.Quantity)
		})
		encodeOptString(e, "selectedSize", item.Size)
		encodeOptString(e, "selectedColor", item.Color)
		encodeOptString(e, "note", item.Note)
	})
}

func encodeOptString(e *jx.Encoder, name string, o OptString) {
	if v, ok := o.Get(); ok {
		e.Field(name, func(e *jx.Encoder) { e.Str(v) })
	}
}

// SkippedItemsError reports persisted elements that Decode dropped because
// they were not well-formed line items. Err is the first such failure.
type SkippedItemsError struct {
	Skipped int
	Err     error
}

func (e *SkippedItemsError) Error() string {
	return fmt.Sprintf("skipped %d malformed item(s): %v", e.Skipped, e.Err)
}

func (e *SkippedItemsError) Unwrap() error { return e.Err }

// Decode parses a persisted cart. It fails with no items when raw is not
// valid JSON or is not an array. Elements that are not line items with a
// product id and a positive quantity are dropped; the remaining items are
// returned together with a *SkippedItemsError.
func Decode(raw string) ([]LineItem, error) {
	data := []byte(raw)
	if !jx.Valid(data) {
		return nil, errors.New("invalid json")
	}

	d := jx.DecodeBytes(data)
	if tt := d.Next(); tt != jx.Array {
		return nil, errors.Errorf("expected array, got %s", tt)
	}

	var (
		items   []LineItem
		skipped *SkippedItemsError
		index   int
	)
	if err := d.Arr(func(d *jx.Decoder) error {
		elem, err := d.Raw()
		if err != nil {
			return err
		}
		item, err := decodeLineItem(jx.DecodeBytes(elem))
		switch {
		case err == nil:
			items = append(items, item)
		case skipped == nil:
			skipped = &SkippedItemsError{Skipped: 1, Err: errors.Wrapf(err, "item %d", index)}
		default:
			skipped.Skipped++
		}
		index++
		return nil
	}); err != nil {
		return nil, err
	}
	if skipped != nil {
		return items, skipped
	}
	return items, nil
}

func decodeLineItem(d *jx.Decoder) (LineItem, error) {
	if tt := d.Next(); tt != jx.Object {
		return LineItem{}, errors.Errorf("expected object, got %s", tt)
	}

	var (
		item   LineItem
		hasQty bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product":
			return item.Product.Decode(d)
		case "quantity":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			item.Quantity = n
			hasQty = true
			return nil
		case "selectedSize":
			return decodeOptString(d, &item.Size)
		case "selectedColor":
			return decodeOptString(d, &item.Color)
		case "note":
			return decodeOptString(d, &item.Note)
		default:
			return d.Skip()
		}
	}); err != nil {
		return LineItem{}, err
	}

	if item.Product.ID == "" {
		return LineItem{}, errors.New("missing product id")
	}
	if !hasQty || item.Quantity <= 0 {
		return LineItem{}, errors.Errorf("product %s: %v", item.Product.ID, ErrInvalidQuantity)
	}
	return item, nil
}

func decodeOptString(d *jx.Decoder, o *OptString) error {
	if d.Next() == jx.Null {
		*o = OptString{}
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*o = NewOptString(s)
	return nil
}
