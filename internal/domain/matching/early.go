package matching

import "sort"

// earlyDetector finds responses that started or ended between a marker and
// the opening of its window.
type earlyDetector struct {
	onsets  *timeIndex
	offsets *timeIndex
	ids     []int
	policy  EarlyPolicy
}

// find returns the response rows in [markerTime, windowStart) whose onset or
// offset falls there, minus ignored ids, in row order. Nil means the marker
// is not too early.
func (d *earlyDetector) find(markerTime, windowStart int64) []int {
	if d.policy.Disabled() || windowStart <= markerTime {
		return nil
	}
	seen := make(map[int]struct{})
	var out []int
	for _, ix := range []*timeIndex{d.onsets, d.offsets} {
		for _, row := range ix.halfOpen(markerTime, windowStart) {
			if _, ok := seen[row]; ok {
				continue
			}
			seen[row] = struct{}{}
			if d.policy.Ignores(d.ids[row]) {
				continue
			}
			out = append(out, row)
		}
	}
	sort.Ints(out)
	return out
}
