package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// outcome is the per-product result of evaluating one discount node.
type outcome struct {
	applied  bool
	fraction decimal.Decimal
	trail    []string
}

type outcomes map[string]outcome

type evaluator struct {
	cart *cart
}

// IsSatisfied reports whether c holds for the basket. A nil condition holds.
func IsSatisfied(ctx context.Context, c Condition, b *Basket, lookup ItemLookup) (bool, error) {
	ct, err := resolve(ctx, b, lookup)
	if err != nil {
		return false, err
	}
	return evaluator{cart: ct}.satisfied(c)
}

// ConditionApplies reports whether the condition attached to d holds for the
// basket.
func ConditionApplies(ctx context.Context, d Discount, b *Basket, lookup ItemLookup) (bool, error) {
	if d == nil {
		return false, Invalidf("discount is required")
	}
	return IsSatisfied(ctx, d.Metadata().Condition, b, lookup)
}

// Evaluate computes a price breakdown for every basket product under d. A nil
// discount yields undiscounted breakdowns.
func Evaluate(ctx context.Context, d Discount, b *Basket, lookup ItemLookup) (map[string]ItemPriceBreakdown, error) {
	var roots []Discount
	if d != nil {
		roots = []Discount{d}
	}
	return EvaluateBest(ctx, roots, b, lookup)
}

// EvaluateBest evaluates several independent root discounts and keeps, per
// product, the largest applied fraction. Ties go to the earlier root.
func EvaluateBest(ctx context.Context, roots []Discount, b *Basket, lookup ItemLookup) (map[string]ItemPriceBreakdown, error) {
	ct, err := resolve(ctx, b, lookup)
	if err != nil {
		return nil, err
	}
	e := evaluator{cart: ct}

	results := make([]outcomes, 0, len(roots))
	for _, d := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d == nil {
			return nil, Invalidf("root discount is nil")
		}
		out, err := e.discount(d)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluate discount %s", d.Metadata().ID)
		}
		results = append(results, out)
	}
	best := e.best(results)

	breakdowns := make(map[string]ItemPriceBreakdown, len(ct.lines))
	for _, l := range ct.lines {
		bd := ItemPriceBreakdown{
			ProductID:     l.item.ID,
			Quantity:      l.quantity,
			UnitPrice:     l.item.Price,
			OriginalPrice: l.total(),
			Discount:      decimal.Zero,
		}
		if o := best[l.item.ID]; o.applied {
			bd.Discount = o.fraction
			bd.Descriptions = o.trail
		}
		breakdowns[l.item.ID] = bd
	}
	return breakdowns, nil
}

func (e evaluator) satisfied(c Condition) (bool, error) {
	switch c := c.(type) {
	case nil:
		return true, nil
	case *TrueCondition:
		return true, nil
	case *MinPriceCondition:
		return e.cart.subtotal().GreaterThanOrEqual(c.Threshold), nil
	case *MaxPriceCondition:
		return e.cart.subtotal().LessThanOrEqual(c.Threshold), nil
	case *MinQuantityCondition:
		return e.cart.quantity(c.ProductID) >= c.Threshold, nil
	case *MaxQuantityCondition:
		return e.cart.quantity(c.ProductID) <= c.Threshold, nil
	case *AndCondition:
		for _, child := range c.Children {
			ok, err := e.satisfied(child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *OrCondition:
		for _, child := range c.Children {
			ok, err := e.satisfied(child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.Errorf("unsupported condition type %T", c)
	}
}

func (e evaluator) discount(d Discount) (outcomes, error) {
	meta := d.Metadata()
	ok, err := e.satisfied(meta.Condition)
	if err != nil {
		return nil, errors.Wrapf(err, "condition of %s", meta.ID)
	}
	if !ok {
		return outcomes{}, nil
	}

	if s, isSimple := d.(*SimpleDiscount); isSimple {
		out := make(outcomes, len(e.cart.lines))
		for _, l := range e.cart.lines {
			if s.Qualifier.Qualifies(l.item.Product) {
				out[l.item.ID] = outcome{
					applied:  true,
					fraction: s.Percentage,
					trail:    appendDescription(nil, meta.Description),
				}
			}
		}
		return out, nil
	}

	children := Children(d)
	childOut := make([]outcomes, 0, len(children))
	for _, child := range children {
		out, err := e.discount(child)
		if err != nil {
			return nil, err
		}
		childOut = append(childOut, out)
	}

	var merge func(parts []outcome) outcome
	switch d.(type) {
	case *AndDiscount:
		merge = mergeAll
	case *OrDiscount, *MaxDiscount:
		merge = mergeBest
	case *XorDiscount:
		merge = mergeExclusive
	case *DoubleDiscount:
		merge = mergeStack
	default:
		return nil, errors.Errorf("unsupported discount type %T", d)
	}

	out := make(outcomes, len(e.cart.lines))
	for _, l := range e.cart.lines {
		parts := make([]outcome, len(childOut))
		for i, co := range childOut {
			parts[i] = co[l.item.ID]
		}
		o := merge(parts)
		if !o.applied {
			continue
		}
		o.trail = appendDescription(o.trail, meta.Description)
		out[l.item.ID] = o
	}
	return out, nil
}

func (e evaluator) best(results []outcomes) outcomes {
	out := make(outcomes, len(e.cart.lines))
	for _, l := range e.cart.lines {
		parts := make([]outcome, len(results))
		for i, r := range results {
			parts[i] = r[l.item.ID]
		}
		if o := mergeBest(parts); o.applied {
			out[l.item.ID] = o
		}
	}
	return out
}

// mergeAll stacks every part, and applies only when all of them applied.
func mergeAll(parts []outcome) outcome {
	if len(parts) == 0 {
		return outcome{}
	}
	for _, p := range parts {
		if !p.applied {
			return outcome{}
		}
	}
	return stack(parts)
}

// mergeStack stacks the applied parts.
func mergeStack(parts []outcome) outcome {
	applied := make([]outcome, 0, len(parts))
	for _, p := range parts {
		if p.applied {
			applied = append(applied, p)
		}
	}
	if len(applied) == 0 {
		return outcome{}
	}
	return stack(applied)
}

// mergeBest picks the applied part with the largest fraction, first wins on
// ties.
func mergeBest(parts []outcome) outcome {
	var best outcome
	for _, p := range parts {
		if !p.applied {
			continue
		}
		if !best.applied || p.fraction.GreaterThan(best.fraction) {
			best = p
		}
	}
	if best.applied {
		best.trail = append([]string(nil), best.trail...)
	}
	return best
}

// mergeExclusive applies the single applied part; both or neither yields
// nothing.
func mergeExclusive(parts []outcome) outcome {
	var (
		hit   outcome
		count int
	)
	for _, p := range parts {
		if p.applied {
			hit = p
			count++
		}
	}
	if count != 1 {
		return outcome{}
	}
	hit.trail = append([]string(nil), hit.trail...)
	return hit
}

// stack combines fractions as 1 - prod(1 - f).
func stack(parts []outcome) outcome {
	remaining := one
	var trail []string
	for _, p := range parts {
		remaining = remaining.Mul(one.Sub(p.fraction))
		trail = append(trail, p.trail...)
	}
	return outcome{applied: true, fraction: one.Sub(remaining), trail: trail}
}

func appendDescription(trail []string, desc string) []string {
	if desc == "" {
		return trail
	}
	return append(trail, desc)
}
