// Package queue defines message payloads exchanged over the message broker
// and the consumer that archives them.
package queue

import "github.com/iliyamo/seller-rotation/internal/model"

// DefaultDayClosedQueue is the durable queue closed-day exports are sent to.
const DefaultDayClosedQueue = "day.closed"

// DayClosedEvent is published when a day is closed.  It carries the
// complete export so downstream consumers can archive, mail or analyse
// the day without access to the (now wiped) roster database.
type DayClosedEvent struct {
	ClosedAt     string          `json:"closed_at"`
	ClosedDate   string          `json:"closed_date"`
	ClosedTime   string          `json:"closed_time"`
	TotalSellers int             `json:"total_sellers"`
	TotalSales   int             `json:"total_sales"`
	AverageSales string          `json:"average_sales"`
	Export       model.DayExport `json:"export"`
}

// NewDayClosedEvent wraps an export into its broker payload.
func NewDayClosedEvent(export model.DayExport) DayClosedEvent {
	return DayClosedEvent{
		ClosedAt:     export.Timestamp,
		ClosedDate:   export.ClosedDate,
		ClosedTime:   export.ClosedTime,
		TotalSellers: export.Statistics.TotalSellers,
		TotalSales:   export.Statistics.TotalSales,
		AverageSales: export.Statistics.AverageSales,
		Export:       export,
	}
}
