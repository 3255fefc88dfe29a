package rulespec

import (
	"github.com/google/uuid"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// Builder validates specs and constructs rule trees from them.
type Builder struct {
	newID func() string
}

// NewBuilder returns a Builder assigning random UUIDs to nodes without an id.
func NewBuilder() *Builder {
	return &Builder{newID: uuid.NewString}
}

// NewBuilderWithIDs returns a Builder drawing node ids from newID.
func NewBuilderWithIDs(newID func() string) *Builder {
	return &Builder{newID: newID}
}

// NewID returns a fresh node id.
func (b *Builder) NewID() string {
	return b.newID()
}

func (b *Builder) id(given string) string {
	if given != "" {
		return given
	}
	return b.newID()
}

// BuildCondition validates spec and builds its condition tree.
func (b *Builder) BuildCondition(spec ConditionSpec) (discount.Condition, error) {
	if err := ValidateCondition(spec); err != nil {
		return nil, err
	}
	return b.condition(spec)
}

// BuildDiscount validates spec and builds its discount tree. Sub-discounts
// are owned by the root's store.
func (b *Builder) BuildDiscount(spec DiscountSpec) (discount.Discount, error) {
	if err := ValidateDiscount(spec); err != nil {
		return nil, err
	}
	return b.discount(spec, spec.StoreID)
}

func (b *Builder) condition(spec ConditionSpec) (discount.Condition, error) {
	id := b.id(spec.ID)
	switch spec.Type {
	case discount.ConditionTrue:
		return discount.AsCondition(discount.NewTrueCondition(id))
	case discount.ConditionMinPrice:
		return discount.AsCondition(discount.NewMinPriceCondition(id, spec.Threshold))
	case discount.ConditionMaxPrice:
		return discount.AsCondition(discount.NewMaxPriceCondition(id, spec.Threshold))
	case discount.ConditionMinQuantity, discount.ConditionMaxQuantity:
		n, err := quantityThreshold(spec)
		if err != nil {
			return nil, err
		}
		if spec.Type == discount.ConditionMinQuantity {
			return discount.AsCondition(discount.NewMinQuantityCondition(id, spec.ProductID, n))
		}
		return discount.AsCondition(discount.NewMaxQuantityCondition(id, spec.ProductID, n))
	case discount.ConditionAnd, discount.ConditionOr:
		children := make([]discount.Condition, 0, len(spec.Conditions))
		for _, childSpec := range spec.Conditions {
			child, err := b.condition(childSpec)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if spec.Type == discount.ConditionAnd {
			return discount.AsCondition(discount.NewAndCondition(id, children...))
		}
		return discount.AsCondition(discount.NewOrCondition(id, children...))
	default:
		return nil, discount.Invalidf("unknown condition type %q", spec.Type)
	}
}

func (b *Builder) discount(spec DiscountSpec, storeID string) (discount.Discount, error) {
	meta := discount.Meta{
		ID:          b.id(spec.ID),
		StoreID:     storeID,
		Description: spec.Description,
	}
	if spec.Condition != nil {
		c, err := b.condition(*spec.Condition)
		if err != nil {
			return nil, err
		}
		meta.Condition = c
	}

	if spec.Type == discount.DiscountSimple {
		q, err := discount.NewQualifier(spec.Qualifier.Type, spec.Qualifier.Value)
		if err != nil {
			return nil, err
		}
		return discount.AsDiscount(discount.NewSimpleDiscount(meta, spec.Percentage, q))
	}

	children := make([]discount.Discount, 0, len(spec.Discounts))
	for _, childSpec := range spec.Discounts {
		child, err := b.discount(childSpec, storeID)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	switch spec.Type {
	case discount.DiscountAnd:
		return discount.AsDiscount(discount.NewAndDiscount(meta, children...))
	case discount.DiscountOr:
		return discount.AsDiscount(discount.NewOrDiscount(meta, children...))
	case discount.DiscountXor:
		return discount.AsDiscount(discount.NewXorDiscount(meta, children[0], children[1]))
	case discount.DiscountMax:
		return discount.AsDiscount(discount.NewMaxDiscount(meta, children...))
	case discount.DiscountDouble:
		return discount.AsDiscount(discount.NewDoubleDiscount(meta, children...))
	default:
		return nil, discount.Invalidf("unknown discount type %q", spec.Type)
	}
}
