package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/seller-rotation/internal/model"
)

func busy() *model.CustomerAssignment {
	return &model.CustomerAssignment{ID: "client-x", StartDate: "01/01/2025", StartTime: "10:00:00"}
}

func TestNextSeller(t *testing.T) {
	tests := []struct {
		name     string
		sellers  []model.Seller
		want     string
		wantSome bool
	}{
		{name: "empty roster"},
		{
			name:     "all zero picks first",
			sellers:  []model.Seller{{Name: "Alice"}, {Name: "Bob"}, {Name: "Charlie"}},
			want:     "Alice",
			wantSome: true,
		},
		{
			name:     "lowest count wins",
			sellers:  []model.Seller{{Name: "Alice", SaleCount: 2}, {Name: "Bob", SaleCount: 1}, {Name: "Charlie", SaleCount: 1}},
			want:     "Bob",
			wantSome: true,
		},
		{
			name:     "busy seller skipped",
			sellers:  []model.Seller{{Name: "Alice", ActiveCustomer: busy()}, {Name: "Bob"}},
			want:     "Bob",
			wantSome: true,
		},
		{
			name: "busy seller does not lower the minimum",
			sellers: []model.Seller{
				{Name: "Alice", SaleCount: 0, ActiveCustomer: busy()},
				{Name: "Bob", SaleCount: 3},
				{Name: "Charlie", SaleCount: 2},
			},
			want:     "Charlie",
			wantSome: true,
		},
		{
			name:    "everyone busy",
			sellers: []model.Seller{{Name: "Alice", ActiveCustomer: busy()}, {Name: "Bob", ActiveCustomer: busy()}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NextSeller(tc.sellers)
			assert.Equal(t, tc.wantSome, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextSellerDoesNotMutateInput(t *testing.T) {
	sellers := []model.Seller{{Name: "Bob", SaleCount: 1}, {Name: "Alice"}}
	before := append([]model.Seller(nil), sellers...)

	got, ok := NextSeller(sellers)

	assert.True(t, ok)
	assert.Equal(t, "Alice", got)
	assert.Equal(t, before, sellers)
}
