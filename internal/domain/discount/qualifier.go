package discount

import "strings"

// QualifierType enumerates the discount scopes.
type QualifierType string

const (
	// QualifierProduct scopes a discount to one product id.
	QualifierProduct QualifierType = "PRODUCT"
	// QualifierCategory scopes a discount to products of a category.
	QualifierCategory QualifierType = "CATEGORY"
	// QualifierStore scopes a discount to every product of the store.
	QualifierStore QualifierType = "STORE"
)

// Qualifier decides whether a discount may touch a product.
type Qualifier interface {
	Kind() QualifierType
	// Value returns the match key: product id, category name, or "" for store.
	Value() string
	Qualifies(p Product) bool
}

// ProductQualifier matches a single product id.
type ProductQualifier struct {
	ProductID string
}

func (q ProductQualifier) Kind() QualifierType { return QualifierProduct }
func (q ProductQualifier) Value() string       { return q.ProductID }

// Qualifies reports whether p is the qualified product.
func (q ProductQualifier) Qualifies(p Product) bool {
	return p.ID == q.ProductID
}

// CategoryQualifier matches products in a category. Names compare
// case-insensitively.
type CategoryQualifier struct {
	Category string
}

func (q CategoryQualifier) Kind() QualifierType { return QualifierCategory }
func (q CategoryQualifier) Value() string       { return q.Category }

// Qualifies reports whether any of p's categories is q.Category.
func (q CategoryQualifier) Qualifies(p Product) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, q.Category) {
			return true
		}
	}
	return false
}

// StoreQualifier matches every product.
type StoreQualifier struct{}

func (StoreQualifier) Kind() QualifierType      { return QualifierStore }
func (StoreQualifier) Value() string            { return "" }
func (StoreQualifier) Qualifies(_ Product) bool { return true }

// NewQualifier validates and builds a qualifier of the given kind.
func NewQualifier(kind QualifierType, value string) (Qualifier, error) {
	switch kind {
	case QualifierProduct:
		if value == "" {
			return nil, Invalidf("product qualifier requires a product id")
		}
		return ProductQualifier{ProductID: value}, nil
	case QualifierCategory:
		if value == "" {
			return nil, Invalidf("category qualifier requires a category")
		}
		return CategoryQualifier{Category: value}, nil
	case QualifierStore:
		return StoreQualifier{}, nil
	case "":
		return nil, Invalidf("qualifier type is required")
	default:
		return nil, Invalidf("unknown qualifier type %q", kind)
	}
}
