package pricing

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-discounts/internal/domain/discount"
	"github.com/xenking/kart-discounts/internal/domain/rulespec"
)

// DiscountParams carries the fields shared by the discount factories.
type DiscountParams struct {
	StoreID     string
	Description string
	// ConditionID references a stored condition of the same store. Empty
	// means always applicable.
	ConditionID string
}

// CreateCondition builds a condition tree from spec, persists every node
// under storeID and returns the tree.
func (s *Service) CreateCondition(ctx context.Context, storeID string, spec rulespec.ConditionSpec) (discount.Condition, error) {
	if storeID == "" {
		return nil, discount.Invalidf("store id is required")
	}
	c, err := s.builder.BuildCondition(spec)
	if err != nil {
		return nil, err
	}
	if err := s.saveConditions(ctx, discount.ConditionRecords(storeID, c)); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateDiscount builds a discount tree from spec and persists every node.
// The root becomes a top-level rule of its store. A stored tree under the
// same root id is replaced.
func (s *Service) CreateDiscount(ctx context.Context, spec rulespec.DiscountSpec) (discount.Discount, error) {
	d, err := s.builder.BuildDiscount(spec)
	if err != nil {
		return nil, err
	}
	if err := s.install(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ReplaceDiscount rebuilds the stored discount id from spec. The new tree
// keeps the id, the owning store and the top-level status of the replaced
// one. Nodes of the old tree that the new one no longer reaches are deleted
// unless another rule still uses them.
func (s *Service) ReplaceDiscount(ctx context.Context, id string, spec rulespec.DiscountSpec) (discount.Discount, error) {
	if id == "" {
		return nil, discount.Invalidf("discount id is required")
	}
	existing, err := s.discounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if spec.StoreID == "" {
		spec.StoreID = existing.StoreID
	}
	if spec.StoreID != existing.StoreID {
		return nil, discount.Invalidf("discount %s belongs to store %s, not %s", id, existing.StoreID, spec.StoreID)
	}
	spec.ID = id
	return s.CreateDiscount(ctx, spec)
}

func (s *Service) CreateTrueCondition(ctx context.Context, storeID string) (discount.Condition, error) {
	return s.CreateCondition(ctx, storeID, rulespec.ConditionSpec{Type: discount.ConditionTrue})
}

func (s *Service) CreateMinPriceCondition(ctx context.Context, storeID string, threshold decimal.Decimal) (discount.Condition, error) {
	return s.CreateCondition(ctx, storeID, rulespec.ConditionSpec{Type: discount.ConditionMinPrice, Threshold: threshold})
}

func (s *Service) CreateMaxPriceCondition(ctx context.Context, storeID string, threshold decimal.Decimal) (discount.Condition, error) {
	return s.CreateCondition(ctx, storeID, rulespec.ConditionSpec{Type: discount.ConditionMaxPrice, Threshold: threshold})
}

func (s *Service) CreateMinQuantityCondition(ctx context.Context, storeID, productID string, threshold int) (discount.Condition, error) {
	return s.CreateCondition(ctx, storeID, rulespec.ConditionSpec{
		Type:      discount.ConditionMinQuantity,
		ProductID: productID,
		Threshold: decimal.NewFromInt(int64(threshold)),
	})
}

func (s *Service) CreateMaxQuantityCondition(ctx context.Context, storeID, productID string, threshold int) (discount.Condition, error) {
	return s.CreateCondition(ctx, storeID, rulespec.ConditionSpec{
		Type:      discount.ConditionMaxQuantity,
		ProductID: productID,
		Threshold: decimal.NewFromInt(int64(threshold)),
	})
}

// CreateAndCondition combines stored conditions of a store into a new AND
// node.
func (s *Service) CreateAndCondition(ctx context.Context, storeID string, childIDs ...string) (discount.Condition, error) {
	return s.composeCondition(ctx, storeID, childIDs, func(id string, children []discount.Condition) (discount.Condition, error) {
		return discount.AsCondition(discount.NewAndCondition(id, children...))
	})
}

// CreateOrCondition combines stored conditions of a store into a new OR
// node.
func (s *Service) CreateOrCondition(ctx context.Context, storeID string, childIDs ...string) (discount.Condition, error) {
	return s.composeCondition(ctx, storeID, childIDs, func(id string, children []discount.Condition) (discount.Condition, error) {
		return discount.AsCondition(discount.NewOrCondition(id, children...))
	})
}

// CreateSimpleDiscount persists a leaf discount.
func (s *Service) CreateSimpleDiscount(ctx context.Context, p DiscountParams, percentage decimal.Decimal, q discount.Qualifier) (discount.Discount, error) {
	meta, err := s.meta(ctx, p)
	if err != nil {
		return nil, err
	}
	d, err := discount.NewSimpleDiscount(meta, percentage, q)
	if err != nil {
		return nil, err
	}
	if err := s.saveNode(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateAndDiscount combines stored discounts into a new AND node.
func (s *Service) CreateAndDiscount(ctx context.Context, p DiscountParams, childIDs ...string) (discount.Discount, error) {
	return s.composeDiscount(ctx, p, childIDs, func(meta discount.Meta, children []discount.Discount) (discount.Discount, error) {
		return discount.AsDiscount(discount.NewAndDiscount(meta, children...))
	})
}

// CreateOrDiscount combines stored discounts into a new OR node.
func (s *Service) CreateOrDiscount(ctx context.Context, p DiscountParams, childIDs ...string) (discount.Discount, error) {
	return s.composeDiscount(ctx, p, childIDs, func(meta discount.Meta, children []discount.Discount) (discount.Discount, error) {
		return discount.AsDiscount(discount.NewOrDiscount(meta, children...))
	})
}

// CreateXorDiscount combines exactly two stored discounts into a new XOR
// node.
func (s *Service) CreateXorDiscount(ctx context.Context, p DiscountParams, leftID, rightID string) (discount.Discount, error) {
	return s.composeDiscount(ctx, p, []string{leftID, rightID}, func(meta discount.Meta, children []discount.Discount) (discount.Discount, error) {
		return discount.AsDiscount(discount.NewXorDiscount(meta, children[0], children[1]))
	})
}

// CreateMaxDiscount combines stored discounts into a new MAX node.
func (s *Service) CreateMaxDiscount(ctx context.Context, p DiscountParams, childIDs ...string) (discount.Discount, error) {
	return s.composeDiscount(ctx, p, childIDs, func(meta discount.Meta, children []discount.Discount) (discount.Discount, error) {
		return discount.AsDiscount(discount.NewMaxDiscount(meta, children...))
	})
}

// CreateDoubleDiscount combines stored discounts into a new DOUBLE node.
func (s *Service) CreateDoubleDiscount(ctx context.Context, p DiscountParams, childIDs ...string) (discount.Discount, error) {
	return s.composeDiscount(ctx, p, childIDs, func(meta discount.Meta, children []discount.Discount) (discount.Discount, error) {
		return discount.AsDiscount(discount.NewDoubleDiscount(meta, children...))
	})
}

func (s *Service) composeCondition(
	ctx context.Context,
	storeID string,
	childIDs []string,
	build func(string, []discount.Condition) (discount.Condition, error),
) (discount.Condition, error) {
	if storeID == "" {
		return nil, discount.Invalidf("store id is required")
	}
	if len(childIDs) == 0 {
		return nil, discount.Invalidf("composite condition requires at least one child")
	}
	children := make([]discount.Condition, 0, len(childIDs))
	for _, id := range childIDs {
		r, err := s.conditions.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if r.StoreID != storeID {
			return nil, discount.Invalidf("condition %s belongs to store %s, not %s", id, r.StoreID, storeID)
		}
		c, err := s.assembler.Condition(ctx, id)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	c, err := build(s.builder.NewID(), children)
	if err != nil {
		return nil, err
	}
	if err := s.saveConditions(ctx, discount.ConditionRecords(storeID, c)[:1]); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) composeDiscount(
	ctx context.Context,
	p DiscountParams,
	childIDs []string,
	build func(discount.Meta, []discount.Discount) (discount.Discount, error),
) (discount.Discount, error) {
	meta, err := s.meta(ctx, p)
	if err != nil {
		return nil, err
	}
	children := make([]discount.Discount, 0, len(childIDs))
	for _, id := range childIDs {
		if id == "" {
			return nil, discount.Invalidf("child discount id is required")
		}
		child, err := s.assembler.Discount(ctx, id)
		if err != nil {
			return nil, err
		}
		if child.Metadata().StoreID != p.StoreID {
			return nil, discount.Invalidf("discount %s belongs to store %s, not %s", id, child.Metadata().StoreID, p.StoreID)
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil, discount.Invalidf("composite discount requires at least one child")
	}

	d, err := build(meta, children)
	if err != nil {
		return nil, err
	}
	if err := s.saveNode(ctx, d); err != nil {
		return nil, err
	}
	// Composed children are only evaluated through their new parent.
	for _, id := range childIDs {
		if err := s.demote(ctx, id); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// meta resolves the shared node fields and assigns a fresh id.
func (s *Service) meta(ctx context.Context, p DiscountParams) (discount.Meta, error) {
	if p.StoreID == "" {
		return discount.Meta{}, discount.Invalidf("store id is required")
	}
	meta := discount.Meta{
		ID:          s.builder.NewID(),
		StoreID:     p.StoreID,
		Description: p.Description,
	}
	if p.ConditionID == "" {
		return meta, nil
	}
	r, err := s.conditions.FindByID(ctx, p.ConditionID)
	if err != nil {
		return discount.Meta{}, err
	}
	if r.StoreID != p.StoreID {
		return discount.Meta{}, discount.Invalidf("condition %s belongs to store %s, not %s", p.ConditionID, r.StoreID, p.StoreID)
	}
	if meta.Condition, err = s.assembler.Condition(ctx, p.ConditionID); err != nil {
		return discount.Meta{}, err
	}
	return meta, nil
}

// saveNode persists the record of d as a top-level rule. Its condition and
// children are already stored.
func (s *Service) saveNode(ctx context.Context, d discount.Discount) error {
	_, discs := discount.Flatten(d)
	discs[0].Root = true
	return s.saveDiscounts(ctx, discs[:1])
}

// demote clears the top-level flag of a stored discount.
func (s *Service) demote(ctx context.Context, id string) error {
	r, err := s.discounts.FindByID(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "find discount %s", id)
	}
	if !r.Root {
		return nil
	}
	r.Root = false
	return s.saveDiscounts(ctx, []discount.DiscountRecord{r})
}

// install persists every node of d. A new root is a top-level rule; a root
// that replaces a stored node keeps that node's flag, and the old tree is
// pruned afterwards.
func (s *Service) install(ctx context.Context, d discount.Discount) error {
	meta := d.Metadata()
	root := true

	var stale nodeSet
	existing, err := s.discounts.FindByID(ctx, meta.ID)
	switch {
	case err == nil:
		if existing.StoreID != meta.StoreID {
			return discount.Invalidf("discount %s belongs to store %s, not %s", meta.ID, existing.StoreID, meta.StoreID)
		}
		root = existing.Root
		if stale, err = s.reachable(ctx, meta.ID); err != nil {
			return err
		}
	case errors.Is(err, discount.ErrNotFound):
	default:
		return errors.Wrapf(err, "find discount %s", meta.ID)
	}

	conds, discs := discount.Flatten(d)
	discs[0].Root = root
	if err := s.saveConditions(ctx, conds); err != nil {
		return err
	}
	if err := s.saveDiscounts(ctx, discs); err != nil {
		return err
	}
	if stale.empty() {
		return nil
	}

	keep := nodeSet{}
	for _, r := range conds {
		keep.conditions = append(keep.conditions, r.ID)
	}
	for _, r := range discs {
		keep.discounts = append(keep.discounts, r.ID)
	}
	return s.prune(ctx, meta.StoreID, stale, keep)
}

// nodeSet lists the ids of stored rule nodes.
type nodeSet struct {
	conditions []string
	discounts  []string
}

func (n nodeSet) empty() bool {
	return len(n.conditions) == 0 && len(n.discounts) == 0
}

// reachable walks the stored records below the discount id. Missing nodes
// are skipped.
func (s *Service) reachable(ctx context.Context, id string) (nodeSet, error) {
	var (
		out      nodeSet
		seenCond = map[string]bool{}
		seenDisc = map[string]bool{}
	)

	var condition func(id string) error
	condition = func(id string) error {
		if seenCond[id] {
			return nil
		}
		seenCond[id] = true
		r, err := s.conditions.FindByID(ctx, id)
		if errors.Is(err, discount.ErrNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "find condition %s", id)
		}
		out.conditions = append(out.conditions, id)
		for _, child := range r.Children {
			if err := condition(child); err != nil {
				return err
			}
		}
		return nil
	}

	var walk func(id string) error
	walk = func(id string) error {
		if seenDisc[id] {
			return nil
		}
		seenDisc[id] = true
		r, err := s.discounts.FindByID(ctx, id)
		if errors.Is(err, discount.ErrNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "find discount %s", id)
		}
		out.discounts = append(out.discounts, id)
		if r.ConditionID != "" {
			if err := condition(r.ConditionID); err != nil {
				return err
			}
		}
		for _, child := range r.Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(id); err != nil {
		return nodeSet{}, err
	}
	return out, nil
}

// prune deletes the stale nodes of a store that are not in keep, not a
// top-level rule and not referenced by any remaining node. Deleting a parent
// can release its children, so passes repeat until nothing changes.
func (s *Service) prune(ctx context.Context, storeID string, stale, keep nodeSet) error {
	kept := make(map[string]bool, len(keep.conditions)+len(keep.discounts))
	for _, id := range keep.conditions {
		kept["c/"+id] = true
	}
	for _, id := range keep.discounts {
		kept["d/"+id] = true
	}

	var removed []string
	for {
		discs, err := s.discounts.FindByStore(ctx, storeID)
		if err != nil {
			return errors.Wrapf(err, "find discounts of store %s", storeID)
		}
		conds, err := s.conditions.FindByStore(ctx, storeID)
		if err != nil {
			return errors.Wrapf(err, "find conditions of store %s", storeID)
		}

		used := make(map[string]bool)
		for _, r := range discs {
			if r.Root {
				used["d/"+r.ID] = true
			}
			if r.ConditionID != "" {
				used["c/"+r.ConditionID] = true
			}
			for _, child := range r.Children {
				used["d/"+child] = true
			}
		}
		for _, r := range conds {
			for _, child := range r.Children {
				used["c/"+child] = true
			}
		}

		n := len(removed)
		for _, id := range stale.discounts {
			key := "d/" + id
			if kept[key] || used[key] || slices.Contains(removed, key) {
				continue
			}
			if err := s.discounts.DeleteByID(ctx, id); err != nil && !errors.Is(err, discount.ErrNotFound) {
				return errors.Wrapf(err, "delete discount %s", id)
			}
			removed = append(removed, key)
		}
		for _, id := range stale.conditions {
			key := "c/" + id
			if kept[key] || used[key] || slices.Contains(removed, key) {
				continue
			}
			if err := s.conditions.DeleteByID(ctx, id); err != nil && !errors.Is(err, discount.ErrNotFound) {
				return errors.Wrapf(err, "delete condition %s", id)
			}
			removed = append(removed, key)
		}
		if len(removed) == n {
			break
		}
	}

	if len(removed) > 0 {
		zctx.From(ctx).Debug("Pruned replaced rule nodes",
			zap.String("store_id", storeID),
			zap.Strings("nodes", removed),
		)
	}
	return nil
}

func (s *Service) saveConditions(ctx context.Context, records []discount.ConditionRecord) error {
	for _, r := range records {
		if err := s.conditions.Save(ctx, r); err != nil {
			return errors.Wrapf(err, "save condition %s", r.ID)
		}
	}
	return nil
}

func (s *Service) saveDiscounts(ctx context.Context, records []discount.DiscountRecord) error {
	for _, r := range records {
		if err := s.discounts.Save(ctx, r); err != nil {
			return errors.Wrapf(err, "save discount %s", r.ID)
		}
	}
	return nil
}
