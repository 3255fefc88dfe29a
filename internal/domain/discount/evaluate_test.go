package discount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalItems = catalog{
	"P1": item("P1", "10.00", "cat1"),
	"P2": item("P2", "4.00", "cat2"),
	"P3": item("P3", "2.50", "cat1", "cat2"),
}

func TestSimpleDiscountScenario(t *testing.T) {
	ctx := context.Background()
	b := basket(map[string]int{"P1": 3})

	tests := []struct {
		name         string
		minQty       int
		wantDiscount string
		wantFinal    string
		wantTrail    []string
	}{
		{name: "condition satisfied", minQty: 2, wantDiscount: "0.2", wantFinal: "24", wantTrail: []string{"twenty off"}},
		{name: "condition unsatisfied", minQty: 5, wantDiscount: "0", wantFinal: "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSimpleDiscount(
				Meta{ID: "s1", StoreID: "S", Description: "twenty off", Condition: mustMinQty("c1", "P1", tt.minQty)},
				d("0.2"), ProductQualifier{ProductID: "P1"},
			)
			require.NoError(t, err)

			got, err := Evaluate(ctx, s, b, evalItems)
			require.NoError(t, err)
			require.Contains(t, got, "P1")

			bd := got["P1"]
			assert.Equal(t, 3, bd.Quantity)
			assert.True(t, d("30").Equal(bd.OriginalPrice), "expected original 30, got %s", bd.OriginalPrice)
			assert.True(t, d(tt.wantDiscount).Equal(bd.Discount), "expected discount %s, got %s", tt.wantDiscount, bd.Discount)
			assert.True(t, d(tt.wantFinal).Equal(bd.FinalPrice()), "expected final %s, got %s", tt.wantFinal, bd.FinalPrice())
			assert.True(t, d("30").Sub(d(tt.wantFinal)).Equal(bd.Saved()), "saved %s", bd.Saved())
			assert.Equal(t, tt.wantTrail, bd.Descriptions)
		})
	}
}

func TestSimpleDiscountPercentageBounds(t *testing.T) {
	meta := Meta{ID: "s", StoreID: "S"}
	for _, pct := range []string{"-0.1", "1.1"} {
		t.Run(pct, func(t *testing.T) {
			_, err := NewSimpleDiscount(meta, d(pct), StoreQualifier{})
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
	for _, pct := range []string{"0", "1"} {
		t.Run(pct, func(t *testing.T) {
			_, err := NewSimpleDiscount(meta, d(pct), StoreQualifier{})
			require.NoError(t, err)
		})
	}
}

func TestDiscountConstructors(t *testing.T) {
	child := mustSimple("c", "0.1", StoreQualifier{}, nil)

	tests := []struct {
		name  string
		build func() error
	}{
		{name: "missing id", build: func() error {
			_, err := NewSimpleDiscount(Meta{StoreID: "S"}, d("0.1"), StoreQualifier{})
			return err
		}},
		{name: "missing store", build: func() error {
			_, err := NewSimpleDiscount(Meta{ID: "x"}, d("0.1"), StoreQualifier{})
			return err
		}},
		{name: "missing qualifier", build: func() error {
			_, err := NewSimpleDiscount(Meta{ID: "x", StoreID: "S"}, d("0.1"), nil)
			return err
		}},
		{name: "and without children", build: func() error {
			_, err := NewAndDiscount(Meta{ID: "x", StoreID: "S"})
			return err
		}},
		{name: "xor with nil right", build: func() error {
			_, err := NewXorDiscount(Meta{ID: "x", StoreID: "S"}, child, nil)
			return err
		}},
		{name: "double with nil child", build: func() error {
			_, err := NewDoubleDiscount(Meta{ID: "x", StoreID: "S"}, child, nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.build(), ErrInvalidArgument)
		})
	}
}

func TestDefaultCondition(t *testing.T) {
	s := mustSimple("s1", "0.1", StoreQualifier{}, nil)

	require.IsType(t, &TrueCondition{}, s.Condition)
	assert.Equal(t, "s1#true", s.Condition.ConditionID())
	assert.True(t, IsDefaultCondition(s.Meta))
}

func TestCompositeDiscounts(t *testing.T) {
	ctx := context.Background()
	b := basket(map[string]int{"P1": 1, "P2": 1, "P3": 1})

	tenP1 := mustSimple("tenP1", "0.1", ProductQualifier{ProductID: "P1"}, nil)
	twentyCat1 := mustSimple("twentyCat1", "0.2", CategoryQualifier{Category: "cat1"}, nil)
	thirtyCat2 := mustSimple("thirtyCat2", "0.3", CategoryQualifier{Category: "cat2"}, nil)
	never := mustSimple("never", "0.5", StoreQualifier{}, mustMinQty("big", "P1", 100))

	meta := Meta{ID: "root", StoreID: "S"}
	mustAnd := func(children ...Discount) Discount {
		r, err := NewAndDiscount(meta, children...)
		require.NoError(t, err)
		return r
	}
	mustOr := func(children ...Discount) Discount {
		r, err := NewOrDiscount(meta, children...)
		require.NoError(t, err)
		return r
	}
	mustXor := func(l, r Discount) Discount {
		x, err := NewXorDiscount(meta, l, r)
		require.NoError(t, err)
		return x
	}
	mustMax := func(children ...Discount) Discount {
		r, err := NewMaxDiscount(meta, children...)
		require.NoError(t, err)
		return r
	}
	mustDouble := func(children ...Discount) Discount {
		r, err := NewDoubleDiscount(meta, children...)
		require.NoError(t, err)
		return r
	}

	tests := []struct {
		name string
		d    Discount
		want map[string]string
	}{
		{
			name: "and stacks when all qualify",
			d:    mustAnd(twentyCat1, thirtyCat2),
			// P3 is in both categories: 1 - 0.8*0.7
			want: map[string]string{"P1": "0", "P2": "0", "P3": "0.44"},
		},
		{
			name: "and with unsatisfied child",
			d:    mustAnd(twentyCat1, never),
			want: map[string]string{"P1": "0", "P2": "0", "P3": "0"},
		},
		{
			name: "or picks best qualifying",
			d:    mustOr(tenP1, twentyCat1, thirtyCat2),
			want: map[string]string{"P1": "0.2", "P2": "0.3", "P3": "0.3"},
		},
		{
			name: "or with none qualifying",
			d:    mustOr(never),
			want: map[string]string{"P1": "0", "P2": "0", "P3": "0"},
		},
		{
			name: "xor both qualify yields zero",
			d:    mustXor(tenP1, twentyCat1),
			want: map[string]string{"P1": "0", "P2": "0", "P3": "0.2"},
		},
		{
			name: "xor exactly one",
			d:    mustXor(twentyCat1, thirtyCat2),
			want: map[string]string{"P1": "0.2", "P2": "0.3", "P3": "0"},
		},
		{
			name: "max",
			d:    mustMax(tenP1, twentyCat1),
			want: map[string]string{"P1": "0.2", "P2": "0", "P3": "0.2"},
		},
		{
			name: "double stacks qualifying children only",
			d:    mustDouble(tenP1, twentyCat1, never),
			// P1: 1 - 0.9*0.8
			want: map[string]string{"P1": "0.28", "P2": "0", "P3": "0.2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(ctx, tt.d, b, evalItems)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.True(t, d(want).Equal(got[id].Discount), "%s: expected %s, got %s", id, want, got[id].Discount)
			}
		})
	}
}

func TestCompositeConditionGatesNode(t *testing.T) {
	child := mustSimple("child", "0.25", StoreQualifier{}, nil)
	or, err := NewOrDiscount(Meta{ID: "or", StoreID: "S", Condition: mustMinQty("gate", "P1", 2)}, child)
	require.NoError(t, err)

	got, err := Evaluate(context.Background(), or, basket(map[string]int{"P1": 1}), evalItems)
	require.NoError(t, err)
	assert.True(t, got["P1"].Discount.IsZero())
	assert.Empty(t, got["P1"].Descriptions)

	ok, err := ConditionApplies(context.Background(), or, basket(map[string]int{"P1": 2}), evalItems)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDescriptionTrail(t *testing.T) {
	a := mustSimple("a", "0.1", StoreQualifier{}, nil)
	b := mustSimple("b", "0.1", StoreQualifier{}, nil)
	double, err := NewDoubleDiscount(Meta{ID: "dbl", StoreID: "S", Description: "combo"}, a, b)
	require.NoError(t, err)
	quiet, err := NewOrDiscount(Meta{ID: "quiet", StoreID: "S"}, double)
	require.NoError(t, err)

	got, err := Evaluate(context.Background(), quiet, basket(map[string]int{"P2": 2}), evalItems)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "combo"}, got["P2"].Descriptions)
	assert.True(t, d("0.19").Equal(got["P2"].Discount))
	assert.True(t, d("6.48").Equal(got["P2"].FinalPrice()), "got %s", got["P2"].FinalPrice())
}

func TestEvaluateBest(t *testing.T) {
	ctx := context.Background()
	b := basket(map[string]int{"P1": 2, "P2": 1})
	roots := []Discount{
		mustSimple("ten", "0.1", StoreQualifier{}, nil),
		mustSimple("forty", "0.4", ProductQualifier{ProductID: "P2"}, nil),
	}

	got, err := EvaluateBest(ctx, roots, b, evalItems)
	require.NoError(t, err)
	assert.True(t, d("0.1").Equal(got["P1"].Discount))
	assert.Equal(t, []string{"ten"}, got["P1"].Descriptions)
	assert.True(t, d("0.4").Equal(got["P2"].Discount))
	assert.Equal(t, []string{"forty"}, got["P2"].Descriptions)

	none, err := EvaluateBest(ctx, nil, b, evalItems)
	require.NoError(t, err)
	assert.True(t, none["P1"].Discount.IsZero())
	assert.True(t, d("20").Equal(none["P1"].FinalPrice()))
}

func TestEvaluateNilRoot(t *testing.T) {
	_, err := EvaluateBest(context.Background(), []Discount{nil}, basket(nil), evalItems)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEvaluateBatchLookup(t *testing.T) {
	ctx := context.Background()
	lookup := &batchCatalog{catalog: catalog{
		"P1": item("P1", "10"),
		"P2": item("P2", "4", "bakery"),
	}}
	root := mustSimple("bakery", "0.5", CategoryQualifier{Category: "bakery"}, nil)

	got, err := Evaluate(ctx, root, basket(map[string]int{"P1": 1, "P2": 2}), lookup)
	require.NoError(t, err)
	assert.True(t, d("0.5").Equal(got["P2"].Discount))
	assert.True(t, d("10").Equal(got["P1"].FinalPrice()))
	assert.Equal(t, 1, lookup.batch)
	assert.Zero(t, lookup.single)

	_, err = Evaluate(ctx, root, basket(map[string]int{"P1": 1, "P9": 1}), lookup)
	require.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, KindProduct, nf.Kind)
	assert.Equal(t, "P9", nf.ID)
}
