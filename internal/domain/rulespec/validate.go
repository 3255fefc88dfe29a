package rulespec

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// ValidateCondition checks spec and all of its children without building
// anything. Failures wrap discount.ErrInvalidArgument.
func ValidateCondition(spec ConditionSpec) error {
	return newIDSet().validateCondition(spec, "condition")
}

// ValidateDiscount checks spec and all of its children without building
// anything. Failures wrap discount.ErrInvalidArgument.
func ValidateDiscount(spec DiscountSpec) error {
	return newIDSet().validateRoot(spec)
}

// ValidateAll checks a batch of discount specs and reports every failing one.
// An explicit id may appear only once across the whole batch.
func ValidateAll(specs []DiscountSpec) error {
	var (
		err  error
		seen = newIDSet()
	)
	for i, spec := range specs {
		if e := seen.validateRoot(spec); e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "spec %d", i))
		}
	}
	return err
}

// idSet records the explicit node ids met during one validation run. Ids
// the builder generates are not tracked.
type idSet struct {
	conditions map[string]string
	discounts  map[string]string
}

func newIDSet() *idSet {
	return &idSet{conditions: map[string]string{}, discounts: map[string]string{}}
}

func (s *idSet) add(kind string, seen map[string]string, id, path string) error {
	if id == "" {
		return nil
	}
	if first, ok := seen[id]; ok {
		return discount.Invalidf("%s: duplicate %s id %q, already used by %s", path, kind, id, first)
	}
	seen[id] = path
	return nil
}

func (s *idSet) validateRoot(spec DiscountSpec) error {
	if spec.StoreID == "" {
		return discount.Invalidf("discount: store id is required")
	}
	return s.validateDiscount(spec, spec.StoreID, "discount")
}

func (s *idSet) validateCondition(spec ConditionSpec, path string) error {
	if err := s.add("condition", s.conditions, spec.ID, path); err != nil {
		return err
	}
	switch spec.Type {
	case discount.ConditionTrue:
		return nil
	case discount.ConditionMinPrice, discount.ConditionMaxPrice:
		if !spec.Threshold.IsPositive() {
			return discount.Invalidf("%s: %s threshold must be greater than 0, got %s", path, spec.Type, spec.Threshold)
		}
		return nil
	case discount.ConditionMinQuantity, discount.ConditionMaxQuantity:
		if spec.ProductID == "" {
			return discount.Invalidf("%s: %s requires productId", path, spec.Type)
		}
		if _, err := quantityThreshold(spec); err != nil {
			return errors.Wrap(err, path)
		}
		return nil
	case discount.ConditionAnd, discount.ConditionOr:
		if len(spec.Conditions) == 0 {
			return discount.Invalidf("%s: %s requires at least one sub-condition", path, spec.Type)
		}
		for i, child := range spec.Conditions {
			if err := s.validateCondition(child, fmt.Sprintf("%s.conditions[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case "":
		return discount.Invalidf("%s: type is required", path)
	default:
		return discount.Invalidf("%s: unknown condition type %q", path, spec.Type)
	}
}

func (s *idSet) validateDiscount(spec DiscountSpec, storeID, path string) error {
	if err := s.add("discount", s.discounts, spec.ID, path); err != nil {
		return err
	}
	if spec.StoreID != "" && spec.StoreID != storeID {
		return discount.Invalidf("%s: store id %q does not match %q", path, spec.StoreID, storeID)
	}
	if spec.Condition != nil {
		if err := s.validateCondition(*spec.Condition, path+".condition"); err != nil {
			return err
		}
	}

	switch spec.Type {
	case discount.DiscountSimple:
		if spec.Percentage.IsNegative() || spec.Percentage.GreaterThan(decimal.NewFromInt(1)) {
			return discount.Invalidf("%s: percentage must be in [0, 1], got %s", path, spec.Percentage)
		}
		if spec.Qualifier == nil {
			return discount.Invalidf("%s: qualifier is required", path)
		}
		if _, err := discount.NewQualifier(spec.Qualifier.Type, spec.Qualifier.Value); err != nil {
			return errors.Wrap(err, path)
		}
		return nil
	case discount.DiscountXor:
		if len(spec.Discounts) != 2 {
			return discount.Invalidf("%s: XOR requires exactly two sub-discounts, got %d", path, len(spec.Discounts))
		}
	case discount.DiscountAnd, discount.DiscountOr, discount.DiscountMax, discount.DiscountDouble:
		if len(spec.Discounts) == 0 {
			return discount.Invalidf("%s: %s requires at least one sub-discount", path, spec.Type)
		}
	case "":
		return discount.Invalidf("%s: type is required", path)
	default:
		return discount.Invalidf("%s: unknown discount type %q", path, spec.Type)
	}

	for i, child := range spec.Discounts {
		if err := s.validateDiscount(child, storeID, fmt.Sprintf("%s.discounts[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func quantityThreshold(spec ConditionSpec) (int, error) {
	if !spec.Threshold.IsInteger() {
		return 0, discount.Invalidf("%s threshold must be a whole number, got %s", spec.Type, spec.Threshold)
	}
	if !spec.Threshold.IsPositive() {
		return 0, discount.Invalidf("%s threshold must be greater than 0, got %s", spec.Type, spec.Threshold)
	}
	if spec.Threshold.GreaterThan(discount.MaxQuantityThreshold) {
		return 0, discount.Invalidf("%s threshold %s is out of range", spec.Type, spec.Threshold)
	}
	return int(spec.Threshold.IntPart()), nil
}
