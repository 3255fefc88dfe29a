// Package pricing is the entry point of the discount engine: rule factories,
// rule CRUD and basket price computation.
package pricing

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-discounts/internal/domain/discount"
	"github.com/xenking/kart-discounts/internal/domain/rulespec"
)

const instrumentationName = "github.com/xenking/kart-discounts/internal/domain/pricing"

// Service orchestrates rule persistence and evaluation for all stores.
type Service struct {
	conditions discount.ConditionStore
	discounts  discount.DiscountStore
	catalog    discount.ItemLookup
	builder    *rulespec.Builder
	assembler  discount.Assembler

	tracer      trace.Tracer
	evaluations metric.Int64Counter
}

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	builder        *rulespec.Builder
}

// Option configures a Service.
type Option func(*options)

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithBuilder sets the rule builder, e.g. to control id generation.
func WithBuilder(b *rulespec.Builder) Option {
	return func(o *options) { o.builder = b }
}

// NewService creates a pricing Service over the rule stores and the catalog
// used to resolve basket items.
func NewService(
	conditions discount.ConditionStore,
	discounts discount.DiscountStore,
	catalog discount.ItemLookup,
	opts ...Option,
) (*Service, error) {
	o := options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		builder:        rulespec.NewBuilder(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	evaluations, err := o.meterProvider.Meter(instrumentationName).Int64Counter(
		"discount.evaluations",
		metric.WithDescription("Number of basket price computations"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create evaluations counter")
	}

	return &Service{
		conditions:  conditions,
		discounts:   discounts,
		catalog:     catalog,
		builder:     o.builder,
		assembler:   discount.Assembler{Conditions: conditions, Discounts: discounts},
		tracer:      o.tracerProvider.Tracer(instrumentationName),
		evaluations: evaluations,
	}, nil
}

// StoreDiscounts returns the top-level discounts of a store. Nodes that are
// only reachable as children of another rule are not included.
func (s *Service) StoreDiscounts(ctx context.Context, storeID string) ([]discount.Discount, error) {
	if storeID == "" {
		return nil, discount.Invalidf("store id is required")
	}
	records, err := s.discounts.FindByStore(ctx, storeID)
	if err != nil {
		return nil, errors.Wrapf(err, "find discounts of store %s", storeID)
	}

	var roots []discount.Discount
	for _, r := range records {
		if !r.Root {
			continue
		}
		d, err := s.assembler.Discount(ctx, r.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "assemble discount %s", r.ID)
		}
		roots = append(roots, d)
	}
	return roots, nil
}

// ComputePrice evaluates every top-level discount of the basket's store and
// returns, per product, the best resulting breakdown.
func (s *Service) ComputePrice(ctx context.Context, b *discount.Basket) (_ map[string]discount.ItemPriceBreakdown, rerr error) {
	if b == nil {
		return nil, discount.Invalidf("basket is required")
	}

	ctx, span := s.tracer.Start(ctx, "pricing.ComputePrice",
		trace.WithAttributes(
			attribute.String("store.id", b.StoreID),
			attribute.Int("basket.lines", len(b.Orders)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	roots, err := s.StoreDiscounts(ctx, b.StoreID)
	if err != nil {
		return nil, err
	}

	breakdowns, err := discount.EvaluateBest(ctx, roots, b, s.catalog)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}

	discounted := 0
	for _, bd := range breakdowns {
		if bd.Discount.IsPositive() {
			discounted++
		}
	}
	s.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store.id", b.StoreID),
		attribute.Bool("discounted", discounted > 0),
	))
	zctx.From(ctx).Debug("Computed basket price",
		zap.String("store_id", b.StoreID),
		zap.Int("roots", len(roots)),
		zap.Int("lines", len(breakdowns)),
		zap.Int("discounted", discounted),
	)
	return breakdowns, nil
}

// FindConditionByID loads a stored condition tree.
func (s *Service) FindConditionByID(ctx context.Context, id string) (discount.Condition, error) {
	if id == "" {
		return nil, discount.Invalidf("condition id is required")
	}
	return s.assembler.Condition(ctx, id)
}

// FindDiscountByID loads a stored discount tree.
func (s *Service) FindDiscountByID(ctx context.Context, id string) (discount.Discount, error) {
	if id == "" {
		return nil, discount.Invalidf("discount id is required")
	}
	return s.assembler.Discount(ctx, id)
}

// DeleteCondition removes a condition node. Children and referencing
// discounts are left in place.
func (s *Service) DeleteCondition(ctx context.Context, id string) error {
	if id == "" {
		return discount.Invalidf("condition id is required")
	}
	return s.conditions.DeleteByID(ctx, id)
}

// DeleteDiscount removes a discount node. Its children stay stored but are
// not promoted to top-level rules.
func (s *Service) DeleteDiscount(ctx context.Context, id string) error {
	if id == "" {
		return discount.Invalidf("discount id is required")
	}
	return s.discounts.DeleteByID(ctx, id)
}

// ConditionExists reports whether a condition node is stored.
func (s *Service) ConditionExists(ctx context.Context, id string) (bool, error) {
	return s.conditions.ExistsByID(ctx, id)
}

// DiscountExists reports whether a discount node is stored.
func (s *Service) DiscountExists(ctx context.Context, id string) (bool, error) {
	return s.discounts.ExistsByID(ctx, id)
}

// CountDiscounts returns the number of stored discount nodes.
func (s *Service) CountDiscounts(ctx context.Context) (int, error) {
	return s.discounts.Size(ctx)
}

// ListDiscounts returns every stored discount node as a tree, ordered by id.
func (s *Service) ListDiscounts(ctx context.Context) ([]discount.Discount, error) {
	records, err := s.discounts.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "find discounts")
	}
	out := make([]discount.Discount, 0, len(records))
	for _, r := range records {
		d, err := s.assembler.Discount(ctx, r.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "assemble discount %s", r.ID)
		}
		out = append(out, d)
	}
	return out, nil
}

// StoreConditions returns every condition node owned by a store, ordered by
// id.
func (s *Service) StoreConditions(ctx context.Context, storeID string) ([]discount.Condition, error) {
	if storeID == "" {
		return nil, discount.Invalidf("store id is required")
	}
	records, err := s.conditions.FindByStore(ctx, storeID)
	if err != nil {
		return nil, errors.Wrapf(err, "find conditions of store %s", storeID)
	}
	slices.SortFunc(records, func(a, b discount.ConditionRecord) int {
		return strings.Compare(a.ID, b.ID)
	})

	out := make([]discount.Condition, 0, len(records))
	for _, r := range records {
		c, err := s.assembler.Condition(ctx, r.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "assemble condition %s", r.ID)
		}
		out = append(out, c)
	}
	return out, nil
}
