package discount

import (
	"context"
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ConditionRecord is the flat form of one condition node. Children hold
// condition ids.
type ConditionRecord struct {
	ID        string
	StoreID   string
	Type      ConditionType
	ProductID string
	Threshold decimal.Decimal
	Children  []string
}

func (r ConditionRecord) RecordID() string      { return r.ID }
func (r ConditionRecord) RecordStoreID() string { return r.StoreID }

// DiscountRecord is the flat form of one discount node. ConditionID is empty
// for the implicit always-true condition. Children hold discount ids.
type DiscountRecord struct {
	ID             string
	StoreID        string
	Description    string
	Type           DiscountType
	ConditionID    string
	Percentage     decimal.Decimal
	QualifierType  QualifierType
	QualifierValue string
	Children       []string
	// Root marks a top-level rule of its store. Only roots are evaluated
	// when pricing a basket.
	Root bool
}

func (r DiscountRecord) RecordID() string      { return r.ID }
func (r DiscountRecord) RecordStoreID() string { return r.StoreID }

// ConditionRecords flattens a condition tree owned by storeID. Shared nodes
// are emitted once.
func ConditionRecords(storeID string, c Condition) []ConditionRecord {
	f := flattener{seenCond: map[string]bool{}, seenDisc: map[string]bool{}}
	f.condition(storeID, c)
	return f.conds
}

// Flatten returns the records of every condition and discount node reachable
// from d. Shared nodes are emitted once and the record of d comes first.
// Root is left unset on every record.
func Flatten(d Discount) ([]ConditionRecord, []DiscountRecord) {
	f := flattener{seenCond: map[string]bool{}, seenDisc: map[string]bool{}}
	f.discount(d)
	return f.conds, f.discs
}

type flattener struct {
	seenCond map[string]bool
	seenDisc map[string]bool
	conds    []ConditionRecord
	discs    []DiscountRecord
}

func (f *flattener) condition(storeID string, c Condition) {
	if c == nil || f.seenCond[c.ConditionID()] {
		return
	}
	f.seenCond[c.ConditionID()] = true

	r := ConditionRecord{ID: c.ConditionID(), StoreID: storeID, Type: c.Kind()}
	switch c := c.(type) {
	case *MinPriceCondition:
		r.Threshold = c.Threshold
	case *MaxPriceCondition:
		r.Threshold = c.Threshold
	case *MinQuantityCondition:
		r.ProductID = c.ProductID
		r.Threshold = decimal.NewFromInt(int64(c.Threshold))
	case *MaxQuantityCondition:
		r.ProductID = c.ProductID
		r.Threshold = decimal.NewFromInt(int64(c.Threshold))
	}
	children := ConditionChildren(c)
	for _, child := range children {
		r.Children = append(r.Children, child.ConditionID())
	}
	f.conds = append(f.conds, r)
	for _, child := range children {
		f.condition(storeID, child)
	}
}

func (f *flattener) discount(d Discount) {
	if d == nil {
		return
	}
	meta := d.Metadata()
	if f.seenDisc[meta.ID] {
		return
	}
	f.seenDisc[meta.ID] = true

	r := DiscountRecord{
		ID:          meta.ID,
		StoreID:     meta.StoreID,
		Description: meta.Description,
		Type:        d.Kind(),
	}
	if !IsDefaultCondition(meta) {
		r.ConditionID = meta.Condition.ConditionID()
		f.condition(meta.StoreID, meta.Condition)
	}
	if s, ok := d.(*SimpleDiscount); ok {
		r.Percentage = s.Percentage
		r.QualifierType = s.Qualifier.Kind()
		r.QualifierValue = s.Qualifier.Value()
	}
	children := Children(d)
	for _, child := range children {
		r.Children = append(r.Children, child.Metadata().ID)
	}
	f.discs = append(f.discs, r)
	for _, child := range children {
		f.discount(child)
	}
}

// IsDefaultCondition reports whether the node carries the implicit
// always-true condition assigned at construction.
func IsDefaultCondition(m Meta) bool {
	t, ok := m.Condition.(*TrueCondition)
	return m.Condition == nil || (ok && t.ID == DefaultConditionID(m.ID))
}

// Assembler rebuilds rule trees from flat records.
type Assembler struct {
	Conditions ConditionStore
	Discounts  DiscountStore
}

// Condition loads the condition tree rooted at id.
func (a Assembler) Condition(ctx context.Context, id string) (Condition, error) {
	return a.condition(ctx, id, map[string]bool{})
}

// Discount loads the discount tree rooted at id together with every
// condition it references.
func (a Assembler) Discount(ctx context.Context, id string) (Discount, error) {
	return a.discount(ctx, id, map[string]bool{})
}

func (a Assembler) condition(ctx context.Context, id string, path map[string]bool) (Condition, error) {
	if path[id] {
		return nil, Invalidf("condition cycle through %s", id)
	}
	r, err := a.Conditions.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "find condition %s", id)
	}

	var children []Condition
	if len(r.Children) > 0 {
		path[id] = true
		defer delete(path, id)
		children = make([]Condition, 0, len(r.Children))
		for _, childID := range r.Children {
			child, err := a.condition(ctx, childID, path)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
	}
	return ConditionFromRecord(r, children)
}

// ConditionFromRecord builds a condition node from its record and already
// assembled children.
func ConditionFromRecord(r ConditionRecord, children []Condition) (Condition, error) {
	quantity := func() (int, error) {
		if !r.Threshold.IsInteger() {
			return 0, Invalidf("condition %s: quantity threshold %s is not an integer", r.ID, r.Threshold)
		}
		if r.Threshold.GreaterThan(MaxQuantityThreshold) {
			return 0, Invalidf("condition %s: quantity threshold %s is out of range", r.ID, r.Threshold)
		}
		return int(r.Threshold.IntPart()), nil
	}

	switch r.Type {
	case ConditionTrue:
		return AsCondition(NewTrueCondition(r.ID))
	case ConditionMinPrice:
		return AsCondition(NewMinPriceCondition(r.ID, r.Threshold))
	case ConditionMaxPrice:
		return AsCondition(NewMaxPriceCondition(r.ID, r.Threshold))
	case ConditionMinQuantity:
		q, err := quantity()
		if err != nil {
			return nil, err
		}
		return AsCondition(NewMinQuantityCondition(r.ID, r.ProductID, q))
	case ConditionMaxQuantity:
		q, err := quantity()
		if err != nil {
			return nil, err
		}
		return AsCondition(NewMaxQuantityCondition(r.ID, r.ProductID, q))
	case ConditionAnd:
		return AsCondition(NewAndCondition(r.ID, children...))
	case ConditionOr:
		return AsCondition(NewOrCondition(r.ID, children...))
	default:
		return nil, Invalidf("condition %s: unknown type %q", r.ID, r.Type)
	}
}

func (a Assembler) discount(ctx context.Context, id string, path map[string]bool) (Discount, error) {
	if path[id] {
		return nil, Invalidf("discount cycle through %s", id)
	}
	r, err := a.Discounts.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "find discount %s", id)
	}

	meta := Meta{ID: r.ID, StoreID: r.StoreID, Description: r.Description}
	if r.ConditionID != "" {
		if meta.Condition, err = a.Condition(ctx, r.ConditionID); err != nil {
			return nil, errors.Wrapf(err, "condition of discount %s", id)
		}
	}

	path[id] = true
	defer delete(path, id)
	children := make([]Discount, 0, len(r.Children))
	for _, childID := range r.Children {
		child, err := a.discount(ctx, childID, path)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return DiscountFromRecord(r, meta, children)
}

// DiscountFromRecord builds a discount node from its record, resolved meta
// and already assembled children.
func DiscountFromRecord(r DiscountRecord, meta Meta, children []Discount) (Discount, error) {
	switch r.Type {
	case DiscountSimple:
		q, err := NewQualifier(r.QualifierType, r.QualifierValue)
		if err != nil {
			return nil, errors.Wrapf(err, "discount %s", r.ID)
		}
		return AsDiscount(NewSimpleDiscount(meta, r.Percentage, q))
	case DiscountAnd:
		return AsDiscount(NewAndDiscount(meta, children...))
	case DiscountOr:
		return AsDiscount(NewOrDiscount(meta, children...))
	case DiscountXor:
		if len(children) != 2 {
			return nil, Invalidf("discount %s: XOR requires exactly two children, got %d", r.ID, len(children))
		}
		return AsDiscount(NewXorDiscount(meta, children[0], children[1]))
	case DiscountMax:
		return AsDiscount(NewMaxDiscount(meta, children...))
	case DiscountDouble:
		return AsDiscount(NewDoubleDiscount(meta, children...))
	default:
		return nil, Invalidf("discount %s: unknown type %q", r.ID, r.Type)
	}
}

// MaxQuantityThreshold is the largest quantity threshold a condition can
// hold.
var MaxQuantityThreshold = decimal.NewFromInt(math.MaxInt)

// AsCondition widens a constructor result to Condition, keeping a failed
// construction a nil interface.
func AsCondition[C Condition](c C, err error) (Condition, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AsDiscount widens a constructor result to Discount, keeping a failed
// construction a nil interface.
func AsDiscount[D Discount](d D, err error) (Discount, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}
