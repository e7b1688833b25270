package model

// SessionState is the explicit lifecycle tag of the working day.
type SessionState string

const (
	SessionInactive SessionState = "inactive"
	SessionActive   SessionState = "active"
)

// State is the aggregate returned to polling clients.
type State struct {
	Session    SessionState `json:"session"`
	StartedAt  string       `json:"started_at,omitempty"`
	NextSeller *string      `json:"next_seller"`
	Sellers    []Seller     `json:"sellers"`
	Events     []Event      `json:"events"`
}

// Stats summarises the roster for dashboards.
type Stats struct {
	TotalSellers     int      `json:"total_sellers"`
	OccupiedSellers  int      `json:"occupied_sellers"`
	AvailableSellers int      `json:"available_sellers"`
	TotalSales       int      `json:"total_sales"`
	NextSeller       *string  `json:"next_seller"`
	Sellers          []Seller `json:"sellers"`
}

// DayStatistics holds the closing figures of a day.  AverageSales is
// rendered with two decimals.
type DayStatistics struct {
	TotalSellers int    `json:"total_sellers"`
	TotalSales   int    `json:"total_sales"`
	AverageSales string `json:"average_sales"`
}

// DayExport is the snapshot produced when a day is closed: final
// statistics, the roster as it stood (including customers still being
// served) and the full event history, oldest first.
type DayExport struct {
	ClosedDate string        `json:"closed_date"`
	ClosedTime string        `json:"closed_time"`
	Timestamp  string        `json:"timestamp"`
	Statistics DayStatistics `json:"statistics"`
	Sellers    []Seller      `json:"sellers"`
	History    []Event       `json:"history"`
}
