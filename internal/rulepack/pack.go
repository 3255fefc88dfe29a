// Package rulepack loads rule packs: files bundling catalog products and
// discount specifications for seeding a rule store.
package rulepack

import (
	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/xenking/kart-discounts/internal/domain/product"
	"github.com/xenking/kart-discounts/internal/domain/rulespec"
)

// Version is the only pack format version understood by the loader.
const Version = 1

// Pack is the content of one rule-pack file.
type Pack struct {
	// Source is the file the pack was read from.
	Source      string                  `yaml:"-"`
	Version     int                     `yaml:"version"`
	Description string                  `yaml:"description,omitempty"`
	Products    []product.Product       `yaml:"products,omitempty"`
	Discounts   []rulespec.DiscountSpec `yaml:"discounts,omitempty"`
}

// Validate checks the pack version, every product and every discount spec,
// reporting all failures at once.
func (p *Pack) Validate() error {
	var err error
	if p.Version != Version {
		err = multierr.Append(err, errors.Errorf("unsupported pack version %d", p.Version))
	}
	for i, prod := range p.Products {
		if e := prod.Validate(); e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "product %d", i))
		}
	}
	if e := rulespec.ValidateAll(p.Discounts); e != nil {
		err = multierr.Append(err, e)
	}
	if err != nil && p.Source != "" {
		return errors.Wrapf(err, "pack %s", p.Source)
	}
	return err
}
