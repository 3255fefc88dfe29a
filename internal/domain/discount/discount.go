package discount

import "github.com/shopspring/decimal"

// DiscountType enumerates the discount variants.
type DiscountType string

const (
	DiscountSimple DiscountType = "SIMPLE"
	DiscountAnd    DiscountType = "AND"
	DiscountOr     DiscountType = "OR"
	DiscountXor    DiscountType = "XOR"
	DiscountMax    DiscountType = "MAX"
	DiscountDouble DiscountType = "DOUBLE"
)

// Meta holds the fields every discount node carries.
type Meta struct {
	ID          string
	StoreID     string
	Description string
	// Condition gates the node. Never nil on a constructed node.
	Condition Condition
}

// Metadata returns the shared node fields.
func (m Meta) Metadata() Meta { return m }

// Discount is a percentage-off pricing rule.
//
// The set of variants is closed: SimpleDiscount, AndDiscount, OrDiscount,
// XorDiscount, MaxDiscount and DoubleDiscount.
type Discount interface {
	Metadata() Meta
	Kind() DiscountType
	isDiscount()
}

// SimpleDiscount takes Percentage off every product matching Qualifier
// while its condition holds.
type SimpleDiscount struct {
	Meta
	Percentage decimal.Decimal
	Qualifier  Qualifier
}

// AndDiscount stacks its children multiplicatively on products every child
// qualifies.
type AndDiscount struct {
	Meta
	Children []Discount
}

// OrDiscount applies the best child among those qualifying a product.
type OrDiscount struct {
	Meta
	Children []Discount
}

// XorDiscount applies a child only when it is the sole one qualifying a
// product.
type XorDiscount struct {
	Meta
	Left  Discount
	Right Discount
}

// MaxDiscount applies the largest qualifying child fraction.
type MaxDiscount struct {
	Meta
	Children []Discount
}

// DoubleDiscount stacks every qualifying child multiplicatively.
type DoubleDiscount struct {
	Meta
	Children []Discount
}

func (*SimpleDiscount) Kind() DiscountType { return DiscountSimple }
func (*AndDiscount) Kind() DiscountType    { return DiscountAnd }
func (*OrDiscount) Kind() DiscountType     { return DiscountOr }
func (*XorDiscount) Kind() DiscountType    { return DiscountXor }
func (*MaxDiscount) Kind() DiscountType    { return DiscountMax }
func (*DoubleDiscount) Kind() DiscountType { return DiscountDouble }

func (*SimpleDiscount) isDiscount() {}
func (*AndDiscount) isDiscount()    {}
func (*OrDiscount) isDiscount()     {}
func (*XorDiscount) isDiscount()    {}
func (*MaxDiscount) isDiscount()    {}
func (*DoubleDiscount) isDiscount() {}

// DefaultConditionID returns the id given to the implicit always-true
// condition of a discount created without one.
func DefaultConditionID(discountID string) string {
	return discountID + "#true"
}

func (m Meta) normalize() (Meta, error) {
	if m.ID == "" {
		return m, Invalidf("discount id is required")
	}
	if m.StoreID == "" {
		return m, Invalidf("discount %s: store id is required", m.ID)
	}
	if m.Condition == nil {
		m.Condition = &TrueCondition{ID: DefaultConditionID(m.ID)}
	}
	return m, nil
}

// NewSimpleDiscount validates and builds a leaf discount. Percentage must lie
// in [0, 1].
func NewSimpleDiscount(meta Meta, percentage decimal.Decimal, q Qualifier) (*SimpleDiscount, error) {
	meta, err := meta.normalize()
	if err != nil {
		return nil, err
	}
	if percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(1)) {
		return nil, Invalidf("discount %s: percentage must be in [0, 1], got %s", meta.ID, percentage)
	}
	if q == nil {
		return nil, Invalidf("discount %s: qualifier is required", meta.ID)
	}
	return &SimpleDiscount{Meta: meta, Percentage: percentage, Qualifier: q}, nil
}

// NewAndDiscount builds an AND composite.
func NewAndDiscount(meta Meta, children ...Discount) (*AndDiscount, error) {
	meta, err := checkDiscountComposite(meta, DiscountAnd, children)
	if err != nil {
		return nil, err
	}
	return &AndDiscount{Meta: meta, Children: children}, nil
}

// NewOrDiscount builds an OR composite.
func NewOrDiscount(meta Meta, children ...Discount) (*OrDiscount, error) {
	meta, err := checkDiscountComposite(meta, DiscountOr, children)
	if err != nil {
		return nil, err
	}
	return &OrDiscount{Meta: meta, Children: children}, nil
}

// NewXorDiscount builds an XOR composite of exactly two children.
func NewXorDiscount(meta Meta, left, right Discount) (*XorDiscount, error) {
	meta, err := checkDiscountComposite(meta, DiscountXor, []Discount{left, right})
	if err != nil {
		return nil, err
	}
	return &XorDiscount{Meta: meta, Left: left, Right: right}, nil
}

// NewMaxDiscount builds a MAX composite.
func NewMaxDiscount(meta Meta, children ...Discount) (*MaxDiscount, error) {
	meta, err := checkDiscountComposite(meta, DiscountMax, children)
	if err != nil {
		return nil, err
	}
	return &MaxDiscount{Meta: meta, Children: children}, nil
}

// NewDoubleDiscount builds a DOUBLE composite.
func NewDoubleDiscount(meta Meta, children ...Discount) (*DoubleDiscount, error) {
	meta, err := checkDiscountComposite(meta, DiscountDouble, children)
	if err != nil {
		return nil, err
	}
	return &DoubleDiscount{Meta: meta, Children: children}, nil
}

// Children returns the direct children of a composite discount in
// evaluation order. Leaves have none.
func Children(d Discount) []Discount {
	switch d := d.(type) {
	case *AndDiscount:
		return d.Children
	case *OrDiscount:
		return d.Children
	case *XorDiscount:
		return []Discount{d.Left, d.Right}
	case *MaxDiscount:
		return d.Children
	case *DoubleDiscount:
		return d.Children
	default:
		return nil
	}
}

func checkDiscountComposite(meta Meta, kind DiscountType, children []Discount) (Meta, error) {
	meta, err := meta.normalize()
	if err != nil {
		return meta, err
	}
	if len(children) == 0 {
		return meta, Invalidf("discount %s: %s requires at least one child", meta.ID, kind)
	}
	for i, c := range children {
		if c == nil {
			return meta, Invalidf("discount %s: %s child %d is nil", meta.ID, kind, i)
		}
	}
	return meta, nil
}
