package matching

import (
	"sort"

	model "github.com/okian/epocher/internal/domain/model"
)

// timeIndex is a per-invocation view of one response timestamp column,
// sorted by time, used for range queries. Rows without the timestamp
// (unknown offsets) are left out.
type timeIndex struct {
	times []int64
	rows  []int
}

func newTimeIndex(events []model.Event, field model.TimeField) *timeIndex {
	ix := &timeIndex{
		times: make([]int64, 0, len(events)),
		rows:  make([]int, 0, len(events)),
	}
	for i, e := range events {
		if field == model.FieldOffset && !e.HasOffset() {
			continue
		}
		ix.times = append(ix.times, field.Of(e))
		ix.rows = append(ix.rows, i)
	}
	sort.Stable(ix)
	return ix
}

func (ix *timeIndex) Len() int           { return len(ix.times) }
func (ix *timeIndex) Less(i, j int) bool { return ix.times[i] < ix.times[j] }
func (ix *timeIndex) Swap(i, j int) {
	ix.times[i], ix.times[j] = ix.times[j], ix.times[i]
	ix.rows[i], ix.rows[j] = ix.rows[j], ix.rows[i]
}

// lowerBound returns the first position whose time is >= t.
func (ix *timeIndex) lowerBound(t int64) int {
	return sort.Search(len(ix.times), func(i int) bool { return ix.times[i] >= t })
}

// inclusive returns the rows with time in [from, to], in time order.
func (ix *timeIndex) inclusive(from, to int64) []int {
	lo := ix.lowerBound(from)
	hi := sort.Search(len(ix.times), func(i int) bool { return ix.times[i] > to })
	if lo >= hi {
		return nil
	}
	out := make([]int, hi-lo)
	copy(out, ix.rows[lo:hi])
	return out
}

// halfOpen returns the rows with time in [from, to), in time order.
func (ix *timeIndex) halfOpen(from, to int64) []int {
	lo := ix.lowerBound(from)
	hi := ix.lowerBound(to)
	if lo >= hi {
		return nil
	}
	out := make([]int, hi-lo)
	copy(out, ix.rows[lo:hi])
	return out
}
