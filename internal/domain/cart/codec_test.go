package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A cart as written by the browser storefront.
const browserCart = `[
  {
    "product": {
      "_id": "66a1f0c2e4b0a1b2c3d4e5f6",
      "name": "Linen Dress",
      "description": "Summer dress",
      "price": 1299.5,
      "category": "Dresses",
      "sizes": ["S", "M"],
      "colors": ["Beige"],
      "images": ["https://cdn.example.com/dress.jpg"],
      "createdAt": "2024-07-25T10:00:00.000Z",
      "updatedAt": "2024-07-25T10:00:00.000Z",
      "slug": "linen-dress",
      "__v": 0
    },
    "quantity": 2,
    "selectedSize": "M",
    "selectedColor": "Beige"
  },
  {
    "product": {"_id": "p2", "name": "Tote", "price": 300, "category": "Bags", "sizes": [], "colors": [], "images": []},
    "quantity": 1,
    "note": ""
  }
]`

func TestDecode_BrowserFormat(t *testing.T) {
	items, err := Decode(browserCart)
	require.NoError(t, err)
	require.Len(t, items, 2)

	dress := items[0]
	assert.Equal(t, "66a1f0c2e4b0a1b2c3d4e5f6", dress.Product.ID)
	assert.Equal(t, "Linen Dress", dress.Product.Name)
	assert.True(t, decimal.RequireFromString("1299.5").Equal(dress.Product.Price))
	assert.Equal(t, []string{"S", "M"}, dress.Product.Sizes)
	assert.Equal(t, "linen-dress", dress.Product.Slug)
	assert.Equal(t, 2, dress.Quantity)
	assert.Equal(t, NewOptString("M"), dress.Size)
	assert.Equal(t, NewOptString("Beige"), dress.Color)
	assert.False(t, dress.Note.IsSet())

	tote := items[1]
	assert.False(t, tote.Size.IsSet())
	assert.False(t, tote.Color.IsSet())
	assert.True(t, tote.Note.IsSet(), "present empty note is a set label")
	assert.Equal(t, "", tote.Note.Value)
}

func TestDecode_PriceAsString(t *testing.T) {
	items, err := Decode(`[{"product":{"_id":"p1","price":"19.99"},"quantity":1}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, decimal.RequireFromString("19.99").Equal(items[0].Product.Price))
}

func TestDecode_NullLabelsAreAbsent(t *testing.T) {
	items, err := Decode(`[{"product":{"_id":"p1","price":1,"sizes":null},"quantity":1,"selectedSize":null}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Size.IsSet())
	assert.Nil(t, items[0].Product.Sizes)
}

func TestDecode_Errors(t *testing.T) {
	for _, raw := range []string{
		"not json",
		"{}",
		`"cart"`,
		`[{"quantity":1}]`,
		`[{"product":{"_id":"p1","price":1},"quantity":0}]`,
		`[{"product":{"_id":"p1","price":true},"quantity":1}]`,
		`[{"product":{"_id":"p1","price":1},"quantity":1,"selectedSize":3}]`,
		`[] trailing`,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Decode(raw)
			require.Error(t, err)
		})
	}
}

func TestDecode_KeepsWellFormedItems(t *testing.T) {
	items, err := Decode(`[
		{"product":{"_id":"p1","price":1},"quantity":2},
		{"product":{"_id":"p2","price":1},"quantity":0},
		{"quantity":1},
		{"product":{"_id":"p3","price":"4.5"},"quantity":1,"note":"gift"}
	]`)

	var skipped *SkippedItemsError
	require.ErrorAs(t, err, &skipped)
	assert.Equal(t, 2, skipped.Skipped)
	assert.Contains(t, skipped.Error(), "item 1")

	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].Product.ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "p3", items[1].Product.ID)
	assert.Equal(t, NewOptString("gift"), items[1].Note)
}

func TestEncode_WritesProductSnapshot(t *testing.T) {
	p := newTestProduct("p1", "12.5")
	p.Slug = "p-one"
	raw := Encode([]LineItem{{Product: p, Quantity: 2}})

	assert.Contains(t, raw, `"product":{"_id":"p1","name":"Product p1"`)
	assert.Contains(t, raw, `"slug":"p-one"`)
	assert.Contains(t, raw, `"quantity":2`)
}

func TestEncode_OmitsAbsentLabels(t *testing.T) {
	items := []LineItem{
		{
			Product:  newTestProduct("p1", "10"),
			Quantity: 1,
			Variant:  Variant{Size: NewOptString("M"), Note: NewOptString("")},
		},
	}

	raw := Encode(items)
	assert.Contains(t, raw, `"selectedSize":"M"`)
	assert.Contains(t, raw, `"note":""`)
	assert.NotContains(t, raw, "selectedColor")
	assert.Contains(t, raw, `"price":10`)
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "[]", Encode(nil))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	items := []LineItem{
		{Product: newTestProduct("p1", "10.25"), Quantity: 3, Variant: sized("M", "Red")},
		{Product: newTestProduct("p2", "0"), Quantity: 1, Variant: Variant{Note: NewOptString("fragile")}},
		{Product: newTestProduct("p1", "10.25"), Quantity: 1, Variant: Variant{}},
	}

	got, err := Decode(Encode(items))
	require.NoError(t, err)
	requireSameItems(t, items, got)
	assert.Equal(t, Encode(items), Encode(got))
}
