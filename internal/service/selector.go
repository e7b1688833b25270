package service

import "github.com/iliyamo/seller-rotation/internal/model"

// NextSeller picks the seller who should receive the next customer:
// among sellers without an active customer, the first one in roster
// order whose sale count equals the lowest count of that subset.  Busy
// sellers do not take part in the minimum.  It reports false when the
// roster is empty or everyone is busy.
func NextSeller(sellers []model.Seller) (string, bool) {
	best := -1
	for i := range sellers {
		if !sellers[i].Available() {
			continue
		}
		if best < 0 || sellers[i].SaleCount < sellers[best].SaleCount {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return sellers[best].Name, true
}

func nextSellerPtr(sellers []model.Seller) *string {
	name, ok := NextSeller(sellers)
	if !ok {
		return nil
	}
	return &name
}
