package rulespec

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// Encode writes s as a JSON object. Decimals are written as strings.
func (s ConditionSpec) Encode(e *jx.Encoder) {
	e.ObjStart()
	if s.ID != "" {
		e.FieldStart("id")
		e.Str(s.ID)
	}
	e.FieldStart("type")
	e.Str(string(s.Type))
	if s.ProductID != "" {
		e.FieldStart("productId")
		e.Str(s.ProductID)
	}
	if !s.Threshold.IsZero() {
		e.FieldStart("threshold")
		e.Str(s.Threshold.String())
	}
	if len(s.Conditions) > 0 {
		e.FieldStart("conditions")
		e.ArrStart()
		for _, c := range s.Conditions {
			c.Encode(e)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// Decode reads a JSON object into s. Unknown fields are rejected.
func (s *ConditionSpec) Decode(d *jx.Decoder) error {
	*s = ConditionSpec{}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "type":
			var v string
			v, err = d.Str()
			s.Type = discount.ConditionType(v)
		case "productId":
			s.ProductID, err = d.Str()
		case "threshold":
			s.Threshold, err = decodeDecimal(d)
		case "conditions":
			err = d.Arr(func(d *jx.Decoder) error {
				var c ConditionSpec
				if err := c.Decode(d); err != nil {
					return err
				}
				s.Conditions = append(s.Conditions, c)
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

// Encode writes s as a JSON object.
func (s QualifierSpec) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(s.Type))
	if s.Value != "" {
		e.FieldStart("value")
		e.Str(s.Value)
	}
	e.ObjEnd()
}

// Decode reads a JSON object into s. Unknown fields are rejected.
func (s *QualifierSpec) Decode(d *jx.Decoder) error {
	*s = QualifierSpec{}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			var v string
			v, err = d.Str()
			s.Type = discount.QualifierType(v)
		case "value":
			s.Value, err = d.Str()
		default:
			return errors.Errorf("unknown field %q", key)
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// Encode writes s as a JSON object, children included.
func (s DiscountSpec) Encode(e *jx.Encoder) {
	e.ObjStart()
	if s.ID != "" {
		e.FieldStart("id")
		e.Str(s.ID)
	}
	if s.StoreID != "" {
		e.FieldStart("storeId")
		e.Str(s.StoreID)
	}
	if s.Description != "" {
		e.FieldStart("description")
		e.Str(s.Description)
	}
	e.FieldStart("type")
	e.Str(string(s.Type))
	if s.Type == discount.DiscountSimple {
		e.FieldStart("percentage")
		e.Str(s.Percentage.String())
	}
	if s.Qualifier != nil {
		e.FieldStart("qualifier")
		s.Qualifier.Encode(e)
	}
	if s.Condition != nil {
		e.FieldStart("condition")
		s.Condition.Encode(e)
	}
	if len(s.Discounts) > 0 {
		e.FieldStart("discounts")
		e.ArrStart()
		for _, child := range s.Discounts {
			child.Encode(e)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// Decode reads a JSON object into s. Unknown fields are rejected.
func (s *DiscountSpec) Decode(d *jx.Decoder) error {
	*s = DiscountSpec{}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "storeId":
			s.StoreID, err = d.Str()
		case "description":
			s.Description, err = d.Str()
		case "type":
			var v string
			v, err = d.Str()
			s.Type = discount.DiscountType(v)
		case "percentage":
			s.Percentage, err = decodeDecimal(d)
		case "qualifier":
			if d.Next() == jx.Null {
				err = d.Null()
				break
			}
			s.Qualifier = new(QualifierSpec)
			err = s.Qualifier.Decode(d)
		case "condition":
			if d.Next() == jx.Null {
				err = d.Null()
				break
			}
			s.Condition = new(ConditionSpec)
			err = s.Condition.Decode(d)
		case "discounts":
			err = d.Arr(func(d *jx.Decoder) error {
				var child DiscountSpec
				if err := child.Decode(d); err != nil {
					return err
				}
				s.Discounts = append(s.Discounts, child)
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

// MarshalJSON implements json.Marshaler.
func (s DiscountSpec) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *DiscountSpec) UnmarshalJSON(data []byte) error {
	return s.Decode(jx.DecodeBytes(data))
}

// decodeDecimal accepts a JSON string or number.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(v)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("expected decimal, got %s", d.Next())
	}
}
