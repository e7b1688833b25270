package service

import (
	"sync/atomic"
	"time"
)

// DisplayOffset is added to the wall clock before formatting the dates
// and times shown to users and stored on events and customers.  It is
// applied here and nowhere else.
const DisplayOffset = 2 * time.Hour

const (
	displayDateLayout = "02/01/2006"
	displayTimeLayout = "15:04:05"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Stamp renders t as the display date and time.
func Stamp(t time.Time) (date, clock string) {
	shifted := t.UTC().Add(DisplayOffset)
	return shifted.Format(displayDateLayout), shifted.Format(displayTimeLayout)
}

// monotonic hands out strictly increasing unix millisecond timestamps,
// even when the wall clock stalls or steps backwards.
type monotonic struct {
	last atomic.Int64
}

func (m *monotonic) next(t time.Time) int64 {
	ms := t.UnixMilli()
	for {
		prev := m.last.Load()
		if ms <= prev {
			ms = prev + 1
		}
		if m.last.CompareAndSwap(prev, ms) {
			return ms
		}
		ms = t.UnixMilli()
	}
}
