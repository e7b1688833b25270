package model

// EventKind classifies an entry of the session event log.  Consumers
// switch on the kind; Message is for humans only.
type EventKind string

const (
	EventDayStarted         EventKind = "day_started"
	EventSellerAdded        EventKind = "seller_added"
	EventCustomerTaken      EventKind = "customer_taken"
	EventCustomerAbandoned  EventKind = "customer_abandoned"
	EventSaleRecorded       EventKind = "sale_recorded"
	EventDirectSaleRecorded EventKind = "direct_sale_recorded"
)

// IsSale reports whether the event increased a seller's sale count.
func (k EventKind) IsSale() bool {
	return k == EventSaleRecorded || k == EventDirectSaleRecorded
}

// Event is an immutable entry of the session event log.  Seller holds a
// name only; events of a seller that no longer exists stay valid text.
//
// Fields:
//  ID         – storage sequence, defines log order.
//  Kind       – structured classification.
//  Message    – free text description.
//  Date, Time – display date and time of the action.
//  Seller     – acting seller, empty for session-wide events.
//  CustomerID – customer concerned, if any.
//  Timestamp  – unix milliseconds, strictly increasing per engine.
type Event struct {
	ID         int64     `json:"id"`                    // session_events.id
	Kind       EventKind `json:"kind"`                  // session_events.kind
	Message    string    `json:"message"`               // session_events.message
	Date       string    `json:"date"`                  // session_events.event_date
	Time       string    `json:"time"`                  // session_events.event_time
	Seller     string    `json:"seller,omitempty"`      // session_events.seller (nullable)
	CustomerID string    `json:"customer_id,omitempty"` // session_events.customer_id (nullable)
	Timestamp  int64     `json:"timestamp"`             // session_events.ts_ms
}
