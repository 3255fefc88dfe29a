package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifiers(t *testing.T) {
	p := Product{ID: "P1", Categories: []string{"Dairy", "fresh"}}

	tests := []struct {
		name string
		q    Qualifier
		want bool
	}{
		{name: "product match", q: ProductQualifier{ProductID: "P1"}, want: true},
		{name: "product mismatch", q: ProductQualifier{ProductID: "P2"}, want: false},
		{name: "category exact", q: CategoryQualifier{Category: "fresh"}, want: true},
		{name: "category case insensitive", q: CategoryQualifier{Category: "dairy"}, want: true},
		{name: "category absent", q: CategoryQualifier{Category: "meat"}, want: false},
		{name: "store", q: StoreQualifier{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Qualifies(p))
		})
	}
}

func TestNewQualifier(t *testing.T) {
	tests := []struct {
		name    string
		kind    QualifierType
		value   string
		wantErr bool
	}{
		{name: "product", kind: QualifierProduct, value: "P1"},
		{name: "category", kind: QualifierCategory, value: "cat"},
		{name: "store ignores value", kind: QualifierStore, value: "whatever"},
		{name: "product without id", kind: QualifierProduct, wantErr: true},
		{name: "category without name", kind: QualifierCategory, wantErr: true},
		{name: "missing type", wantErr: true},
		{name: "unknown type", kind: "BRAND", value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQualifier(tt.kind, tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, q.Kind())
		})
	}
}
