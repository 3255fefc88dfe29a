package main

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-discounts/internal/domain/pricing"
)

// parseOrders reads PRODUCT=QTY arguments. A repeated product adds up.
func parseOrders(args []string) (map[string]int, error) {
	if len(args) == 0 {
		return nil, errors.New("basket is empty")
	}
	orders := make(map[string]int, len(args))
	for _, arg := range args {
		id, qty, ok := strings.Cut(arg, "=")
		if !ok || id == "" {
			return nil, errors.Errorf("item %q: want PRODUCT=QTY", arg)
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, errors.Wrapf(err, "item %q", arg)
		}
		orders[id] += n
	}
	return orders, nil
}

func encodeQuote(e *jx.Encoder, q *pricing.Quote) {
	e.ObjStart()
	e.FieldStart("storeId")
	e.Str(q.StoreID)
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range q.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		e.Str(l.UnitPrice.StringFixed(2))
		e.FieldStart("originalPrice")
		e.Str(l.OriginalPrice.StringFixed(2))
		e.FieldStart("discount")
		e.Str(l.Discount.String())
		e.FieldStart("finalPrice")
		e.Str(l.FinalPrice().StringFixed(2))
		e.FieldStart("descriptions")
		e.ArrStart()
		for _, d := range l.Descriptions {
			e.Str(d)
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	e.Str(q.Subtotal.StringFixed(2))
	e.FieldStart("discount")
	e.Str(q.Discount.StringFixed(2))
	e.FieldStart("total")
	e.Str(q.Total.StringFixed(2))
	e.ObjEnd()
}
