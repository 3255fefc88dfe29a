// Package rulespec turns external rule specifications into validated
// discount and condition trees.
package rulespec

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// ConditionSpec is the external form of a condition node.
type ConditionSpec struct {
	// ID is reused when set, otherwise the builder assigns one.
	ID        string                 `yaml:"id,omitempty"`
	Type      discount.ConditionType `yaml:"type"`
	ProductID string                 `yaml:"productId,omitempty"`
	// Threshold is a basket total for price conditions and a unit count for
	// quantity conditions.
	Threshold  decimal.Decimal `yaml:"threshold,omitempty"`
	Conditions []ConditionSpec `yaml:"conditions,omitempty"`
}

// QualifierSpec is the external form of a qualifier.
type QualifierSpec struct {
	Type  discount.QualifierType `yaml:"type"`
	Value string                 `yaml:"value,omitempty"`
}

// DiscountSpec is the external form of a discount node.
type DiscountSpec struct {
	ID string `yaml:"id,omitempty"`
	// StoreID is required on the root; children inherit it.
	StoreID     string                `yaml:"storeId,omitempty"`
	Description string                `yaml:"description,omitempty"`
	Type        discount.DiscountType `yaml:"type"`
	Percentage  decimal.Decimal       `yaml:"percentage,omitempty"`
	Qualifier   *QualifierSpec        `yaml:"qualifier,omitempty"`
	Condition   *ConditionSpec        `yaml:"condition,omitempty"`
	Discounts   []DiscountSpec        `yaml:"discounts,omitempty"`
}

// FromCondition maps a condition tree back to its external form.
func FromCondition(c discount.Condition) ConditionSpec {
	spec := ConditionSpec{ID: c.ConditionID(), Type: c.Kind()}
	switch c := c.(type) {
	case *discount.MinPriceCondition:
		spec.Threshold = c.Threshold
	case *discount.MaxPriceCondition:
		spec.Threshold = c.Threshold
	case *discount.MinQuantityCondition:
		spec.ProductID = c.ProductID
		spec.Threshold = decimal.NewFromInt(int64(c.Threshold))
	case *discount.MaxQuantityCondition:
		spec.ProductID = c.ProductID
		spec.Threshold = decimal.NewFromInt(int64(c.Threshold))
	}
	for _, child := range discount.ConditionChildren(c) {
		spec.Conditions = append(spec.Conditions, FromCondition(child))
	}
	return spec
}

// FromDiscount maps a discount tree back to its external form. Children
// sharing the root store omit their store id, and the implicit always-true
// condition is left out.
func FromDiscount(d discount.Discount) DiscountSpec {
	return fromDiscount(d, "")
}

func fromDiscount(d discount.Discount, parentStore string) DiscountSpec {
	meta := d.Metadata()
	spec := DiscountSpec{
		ID:          meta.ID,
		Description: meta.Description,
		Type:        d.Kind(),
	}
	if meta.StoreID != parentStore {
		spec.StoreID = meta.StoreID
	}
	if !discount.IsDefaultCondition(meta) {
		c := FromCondition(meta.Condition)
		spec.Condition = &c
	}
	if s, ok := d.(*discount.SimpleDiscount); ok {
		spec.Percentage = s.Percentage
		spec.Qualifier = &QualifierSpec{Type: s.Qualifier.Kind(), Value: s.Qualifier.Value()}
	}
	for _, child := range discount.Children(d) {
		spec.Discounts = append(spec.Discounts, fromDiscount(child, meta.StoreID))
	}
	return spec
}
