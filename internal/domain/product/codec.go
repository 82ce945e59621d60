package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes p as a JSON object in the upstream field layout.
func (p Product) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("_id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(p.Price.String())) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("sizes", func(e *jx.Encoder) { encodeStrings(e, p.Sizes) })
		e.Field("colors", func(e *jx.Encoder) { encodeStrings(e, p.Colors) })
		e.Field("images", func(e *jx.Encoder) { encodeStrings(e, p.Images) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(p.Slug) })
	})
}

// Decode reads p from a JSON object. Unknown fields are skipped; prices may be
// numbers or numeric strings.
func (p *Product) Decode(d *jx.Decoder) error {
	if tt := d.Next(); tt != jx.Object {
		return errors.Errorf("product: expected object, got %s", tt)
	}

	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "_id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = decodeNullableStr(d)
		case "description":
			p.Description, err = decodeNullableStr(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "category":
			p.Category, err = decodeNullableStr(d)
		case "sizes":
			p.Sizes, err = decodeStrings(d)
		case "colors":
			p.Colors, err = decodeStrings(d)
		case "images":
			p.Images, err = decodeStrings(d)
		case "slug":
			p.Slug, err = decodeNullableStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "product %s", key)
		}
		return nil
	})
}

func encodeStrings(e *jx.Encoder, values []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, v := range values {
			e.Str(v)
		}
	})
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, errors.New("expected number")
	}
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func decodeNullableStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
