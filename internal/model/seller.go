package model

// CustomerAssignment is the walk-in customer a seller is currently
// serving.  It is owned by exactly one seller and disappears when the
// seller abandons the customer or completes the sale.
//
// Fields:
//  ID        – opaque identifier ("client-" + time ordered UUID).
//  StartDate – display date the customer was taken (dd/mm/yyyy).
//  StartTime – display time the customer was taken (HH:MM:SS).
type CustomerAssignment struct {
	ID        string `json:"id"`         // sellers.customer_id
	StartDate string `json:"start_date"` // sellers.customer_start_date
	StartTime string `json:"start_time"` // sellers.customer_start_time
}

// Seller is one participant of the day's rotation.  Sellers are kept in
// insertion order; Position is assigned by storage and is the tie-break
// used when several available sellers share the lowest sale count.
//
// Fields:
//  Name           – unique, trimmed seller name.
//  SaleCount      – completed sales for the current day.
//  ActiveCustomer – customer being served, nil when available.
//  Position       – insertion sequence, never exposed over the API.
type Seller struct {
	Name           string              `json:"name"`            // sellers.name
	SaleCount      int                 `json:"sale_count"`      // sellers.sale_count
	ActiveCustomer *CustomerAssignment `json:"active_customer"` // nil when sellers.customer_id IS NULL
	Position       int64               `json:"-"`               // sellers.position
}

// Available reports whether the seller can receive the next customer.
func (s Seller) Available() bool { return s.ActiveCustomer == nil }
