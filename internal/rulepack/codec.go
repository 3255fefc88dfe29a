package rulepack

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/product"
	"github.com/xenking/kart-discounts/internal/domain/rulespec"
)

// Decode reads a JSON pack object into p. Unknown fields are rejected at
// every level, nested rule specs included.
func (p *Pack) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "version":
			p.Version, err = d.Int()
		case "description":
			p.Description, err = d.Str()
		case "products":
			err = d.Arr(func(d *jx.Decoder) error {
				prod, err := decodeProduct(d)
				if err != nil {
					return err
				}
				p.Products = append(p.Products, prod)
				return nil
			})
		case "discounts":
			err = d.Arr(func(d *jx.Decoder) error {
				var spec rulespec.DiscountSpec
				if err := spec.Decode(d); err != nil {
					return err
				}
				p.Discounts = append(p.Discounts, spec)
				return nil
			})
		default:
			return errors.Errorf("unknown field %q", key)
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// Encode writes p as a JSON object.
func (p *Pack) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("version")
	e.Int(p.Version)
	if p.Description != "" {
		e.FieldStart("description")
		e.Str(p.Description)
	}
	if len(p.Products) > 0 {
		e.FieldStart("products")
		e.ArrStart()
		for _, prod := range p.Products {
			encodeProduct(e, prod)
		}
		e.ArrEnd()
	}
	if len(p.Discounts) > 0 {
		e.FieldStart("discounts")
		e.ArrStart()
		for _, spec := range p.Discounts {
			spec.Encode(e)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "storeId":
			p.StoreID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
		case "categories":
			err = d.Arr(func(d *jx.Decoder) error {
				c, err := d.Str()
				if err != nil {
					return err
				}
				p.Categories = append(p.Categories, c)
				return nil
			})
		default:
			return errors.Errorf("unknown product field %q", key)
		}
		if err != nil {
			return errors.Wrapf(err, "product field %q", key)
		}
		return nil
	})
	return p, err
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("storeId")
	e.Str(p.StoreID)
	if p.Name != "" {
		e.FieldStart("name")
		e.Str(p.Name)
	}
	e.FieldStart("price")
	e.Str(p.Price.String())
	if len(p.Categories) > 0 {
		e.FieldStart("categories")
		e.ArrStart()
		for _, c := range p.Categories {
			e.Str(c)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}
