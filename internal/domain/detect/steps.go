package detect

import model "github.com/okian/epocher/internal/domain/model"

type run struct {
	value int64
	start int
	n     int
}

// Steps turns a trigger channel into events. An event opens at every
// transition to a non-zero value and closes at the next transition away from
// that value; Offset stays 0 when the channel never leaves it. The state at
// sample 0 is the baseline and never opens an event. Values are masked with
// andMask when it is non-zero, and plateaus shorter than minTicks are merged
// into the preceding level.
func Steps(samples []int64, andMask int64, minTicks int) []model.Event {
	runs := toRuns(samples, andMask)
	if minTicks > 1 {
		runs = mergeShort(runs, minTicks)
	}
	var (
		out  []model.Event
		open = -1
	)
	for i := 1; i < len(runs); i++ {
		prev, cur := runs[i-1], runs[i]
		if prev.value != 0 && open >= 0 {
			out[open].Offset = int64(cur.start)
			open = -1
		}
		if cur.value != 0 {
			out = append(out, model.Event{ID: int(cur.value), Onset: int64(cur.start)})
			open = len(out) - 1
		}
	}
	return out
}

func toRuns(samples []int64, andMask int64) []run {
	var runs []run
	for i, v := range samples {
		if andMask != 0 {
			v &= andMask
		}
		if len(runs) > 0 && runs[len(runs)-1].value == v {
			runs[len(runs)-1].n++
			continue
		}
		runs = append(runs, run{value: v, start: i, n: 1})
	}
	return runs
}

// mergeShort folds runs shorter than minTicks into the previous run. The
// first and last runs are kept since their true length is unknown.
func mergeShort(runs []run, minTicks int) []run {
	out := make([]run, 0, len(runs))
	for i, r := range runs {
		if len(out) > 0 && i < len(runs)-1 && r.n < minTicks {
			out[len(out)-1].n += r.n
			continue
		}
		if len(out) > 0 && out[len(out)-1].value == r.value {
			out[len(out)-1].n += r.n
			continue
		}
		out = append(out, r)
	}
	return out
}
