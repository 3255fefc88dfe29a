package postgres

import (
	"fmt"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// Codec maps a record to and from its JSONB payload. The id and store id
// live in their own columns and are not repeated in the payload.
type Codec[R discount.Record] struct {
	Encode func(e *jx.Encoder, r R)
	Decode func(d *jx.Decoder, id, storeID string) (R, error)
}

// ConditionCodec encodes condition records.
var ConditionCodec = Codec[discount.ConditionRecord]{
	Encode: func(e *jx.Encoder, r discount.ConditionRecord) {
		e.ObjStart()
		e.FieldStart("type")
		e.Str(string(r.Type))
		if r.ProductID != "" {
			e.FieldStart("productId")
			e.Str(r.ProductID)
		}
		if !r.Threshold.IsZero() {
			e.FieldStart("threshold")
			e.Str(r.Threshold.String())
		}
		encodeIDs(e, "children", r.Children)
		e.ObjEnd()
	},
	Decode: func(d *jx.Decoder, id, storeID string) (discount.ConditionRecord, error) {
		r := discount.ConditionRecord{ID: id, StoreID: storeID}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "type":
				var v string
				v, err = d.Str()
				r.Type = discount.ConditionType(v)
			case "productId":
				r.ProductID, err = d.Str()
			case "threshold":
				r.Threshold, err = decodeDecimal(d)
			case "children":
				r.Children, err = decodeIDs(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			return nil
		})
		return r, err
	},
}

// DiscountCodec encodes discount records.
var DiscountCodec = Codec[discount.DiscountRecord]{
	Encode: func(e *jx.Encoder, r discount.DiscountRecord) {
		e.ObjStart()
		e.FieldStart("type")
		e.Str(string(r.Type))
		if r.Description != "" {
			e.FieldStart("description")
			e.Str(r.Description)
		}
		if r.ConditionID != "" {
			e.FieldStart("conditionId")
			e.Str(r.ConditionID)
		}
		if r.Type == discount.DiscountSimple {
			e.FieldStart("percentage")
			e.Str(r.Percentage.String())
			e.FieldStart("qualifierType")
			e.Str(string(r.QualifierType))
			if r.QualifierValue != "" {
				e.FieldStart("qualifierValue")
				e.Str(r.QualifierValue)
			}
		}
		encodeIDs(e, "children", r.Children)
		if r.Root {
			e.FieldStart("root")
			e.Bool(true)
		}
		e.ObjEnd()
	},
	Decode: func(d *jx.Decoder, id, storeID string) (discount.DiscountRecord, error) {
		r := discount.DiscountRecord{ID: id, StoreID: storeID}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "type":
				var v string
				v, err = d.Str()
				r.Type = discount.DiscountType(v)
			case "description":
				r.Description, err = d.Str()
			case "conditionId":
				r.ConditionID, err = d.Str()
			case "percentage":
				r.Percentage, err = decodeDecimal(d)
			case "qualifierType":
				var v string
				v, err = d.Str()
				r.QualifierType = discount.QualifierType(v)
			case "qualifierValue":
				r.QualifierValue, err = d.Str()
			case "children":
				r.Children, err = decodeIDs(d)
			case "root":
				r.Root, err = d.Bool()
			default:
				err = d.Skip()
			}
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			return nil
		})
		return r, err
	},
}

func encodeIDs(e *jx.Encoder, field string, ids []string) {
	if len(ids) == 0 {
		return
	}
	e.FieldStart(field)
	e.ArrStart()
	for _, id := range ids {
		e.Str(id)
	}
	e.ArrEnd()
}

func decodeIDs(d *jx.Decoder) ([]string, error) {
	var ids []string
	err := d.Arr(func(d *jx.Decoder) error {
		id, err := d.Str()
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}
