package discount

import "github.com/shopspring/decimal"

// ConditionType enumerates the condition variants. Values double as the
// external rule specification type tags.
type ConditionType string

const (
	ConditionTrue        ConditionType = "TRUE"
	ConditionMinPrice    ConditionType = "MIN_PRICE"
	ConditionMaxPrice    ConditionType = "MAX_PRICE"
	ConditionMinQuantity ConditionType = "MIN_QUANTITY"
	ConditionMaxQuantity ConditionType = "MAX_QUANTITY"
	ConditionAnd         ConditionType = "AND"
	ConditionOr          ConditionType = "OR"
)

// Condition is a boolean predicate over a basket gating a discount.
//
// The set of variants is closed: TrueCondition, MinPriceCondition,
// MaxPriceCondition, MinQuantityCondition, MaxQuantityCondition,
// AndCondition and OrCondition.
type Condition interface {
	ConditionID() string
	Kind() ConditionType
	isCondition()
}

// TrueCondition is always satisfied.
type TrueCondition struct {
	ID string
}

// MinPriceCondition holds when the basket total is at least Threshold.
type MinPriceCondition struct {
	ID        string
	Threshold decimal.Decimal
}

// MaxPriceCondition holds when the basket total is at most Threshold.
type MaxPriceCondition struct {
	ID        string
	Threshold decimal.Decimal
}

// MinQuantityCondition holds when the basket has at least Threshold units
// of ProductID.
type MinQuantityCondition struct {
	ID        string
	ProductID string
	Threshold int
}

// MaxQuantityCondition holds when the basket has at most Threshold units
// of ProductID.
type MaxQuantityCondition struct {
	ID        string
	ProductID string
	Threshold int
}

// AndCondition holds when every child holds.
type AndCondition struct {
	ID       string
	Children []Condition
}

// OrCondition holds when at least one child holds.
type OrCondition struct {
	ID       string
	Children []Condition
}

func (c *TrueCondition) ConditionID() string        { return c.ID }
func (c *MinPriceCondition) ConditionID() string    { return c.ID }
func (c *MaxPriceCondition) ConditionID() string    { return c.ID }
func (c *MinQuantityCondition) ConditionID() string { return c.ID }
func (c *MaxQuantityCondition) ConditionID() string { return c.ID }
func (c *AndCondition) ConditionID() string         { return c.ID }
func (c *OrCondition) ConditionID() string          { return c.ID }

func (c *TrueCondition) Kind() ConditionType        { return ConditionTrue }
func (c *MinPriceCondition) Kind() ConditionType    { return ConditionMinPrice }
func (c *MaxPriceCondition) Kind() ConditionType    { return ConditionMaxPrice }
func (c *MinQuantityCondition) Kind() ConditionType { return ConditionMinQuantity }
func (c *MaxQuantityCondition) Kind() ConditionType { return ConditionMaxQuantity }
func (c *AndCondition) Kind() ConditionType         { return ConditionAnd }
func (c *OrCondition) Kind() ConditionType          { return ConditionOr }

func (*TrueCondition) isCondition()        {}
func (*MinPriceCondition) isCondition()    {}
func (*MaxPriceCondition) isCondition()    {}
func (*MinQuantityCondition) isCondition() {}
func (*MaxQuantityCondition) isCondition() {}
func (*AndCondition) isCondition()         {}
func (*OrCondition) isCondition()          {}

// NewTrueCondition returns an always-true condition.
func NewTrueCondition(id string) (*TrueCondition, error) {
	if id == "" {
		return nil, Invalidf("condition id is required")
	}
	return &TrueCondition{ID: id}, nil
}

// NewMinPriceCondition returns a minimum basket total condition. The
// threshold must be strictly positive.
func NewMinPriceCondition(id string, threshold decimal.Decimal) (*MinPriceCondition, error) {
	if err := checkPrice(id, threshold); err != nil {
		return nil, err
	}
	return &MinPriceCondition{ID: id, Threshold: threshold}, nil
}

// NewMaxPriceCondition returns a maximum basket total condition. The
// threshold must be strictly positive.
func NewMaxPriceCondition(id string, threshold decimal.Decimal) (*MaxPriceCondition, error) {
	if err := checkPrice(id, threshold); err != nil {
		return nil, err
	}
	return &MaxPriceCondition{ID: id, Threshold: threshold}, nil
}

// NewMinQuantityCondition returns a minimum product quantity condition.
func NewMinQuantityCondition(id, productID string, threshold int) (*MinQuantityCondition, error) {
	if err := checkQuantity(id, productID, threshold); err != nil {
		return nil, err
	}
	return &MinQuantityCondition{ID: id, ProductID: productID, Threshold: threshold}, nil
}

// NewMaxQuantityCondition returns a maximum product quantity condition.
func NewMaxQuantityCondition(id, productID string, threshold int) (*MaxQuantityCondition, error) {
	if err := checkQuantity(id, productID, threshold); err != nil {
		return nil, err
	}
	return &MaxQuantityCondition{ID: id, ProductID: productID, Threshold: threshold}, nil
}

// NewAndCondition returns a conjunction of at least one child.
func NewAndCondition(id string, children ...Condition) (*AndCondition, error) {
	if err := checkComposite(id, ConditionAnd, children); err != nil {
		return nil, err
	}
	return &AndCondition{ID: id, Children: children}, nil
}

// NewOrCondition returns a disjunction of at least one child.
func NewOrCondition(id string, children ...Condition) (*OrCondition, error) {
	if err := checkComposite(id, ConditionOr, children); err != nil {
		return nil, err
	}
	return &OrCondition{ID: id, Children: children}, nil
}

// ConditionChildren returns the direct children of a composite condition.
func ConditionChildren(c Condition) []Condition {
	switch c := c.(type) {
	case *AndCondition:
		return c.Children
	case *OrCondition:
		return c.Children
	default:
		return nil
	}
}

func checkPrice(id string, threshold decimal.Decimal) error {
	if id == "" {
		return Invalidf("condition id is required")
	}
	if !threshold.IsPositive() {
		return Invalidf("price threshold must be greater than 0, got %s", threshold)
	}
	return nil
}

func checkQuantity(id, productID string, threshold int) error {
	if id == "" {
		return Invalidf("condition id is required")
	}
	if productID == "" {
		return Invalidf("quantity condition requires a product id")
	}
	if threshold <= 0 {
		return Invalidf("quantity threshold must be greater than 0, got %d", threshold)
	}
	return nil
}

func checkComposite(id string, kind ConditionType, children []Condition) error {
	if id == "" {
		return Invalidf("condition id is required")
	}
	if len(children) == 0 {
		return Invalidf("%s condition requires at least one child", kind)
	}
	for i, c := range children {
		if c == nil {
			return Invalidf("%s condition child %d is nil", kind, i)
		}
	}
	return nil
}
