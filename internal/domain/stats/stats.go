// Package stats summarises matching output tables.
package stats

import (
	"math"

	matching "github.com/okian/epocher/internal/domain/matching"
)

// Divergence describes |divergence| over rows with a non-zero divergence.
// Std is the sample standard deviation.
type Divergence struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Summary is the statistics record of one output table.
type Summary struct {
	Rows int `json:"rows"`
	// Outcomes is indexed by outcome ordinal.
	Outcomes [matching.NumOutcomes]int `json:"outcomes"`
	// Bad counts rows with zero divergence.
	Bad            int        `json:"bad"`
	DivergenceTSL  Divergence `json:"divergence_tsl"`
	DivergenceSecs Divergence `json:"divergence_s"`
}

// Count returns the number of rows with outcome o.
func (s Summary) Count(o matching.Outcome) int {
	if o < 0 || int(o) >= matching.NumOutcomes {
		return 0
	}
	return s.Outcomes[o]
}

// ByName returns the outcome counts keyed by outcome name.
func (s Summary) ByName() map[string]int {
	out := make(map[string]int, matching.NumOutcomes)
	for _, o := range matching.Outcomes() {
		out[o.String()] = s.Outcomes[o]
	}
	return out
}

// Summarize computes the summary of t. sfreq converts ticks to seconds and
// may be zero, in which case the seconds view stays empty.
func Summarize(t *matching.Table, sfreq float64) Summary {
	var s Summary
	if t == nil {
		return s
	}
	s.Rows = t.Len()
	var abs []float64
	for i := range t.Records {
		rec := &t.Records[i]
		if rec.Outcome >= 0 && int(rec.Outcome) < matching.NumOutcomes {
			s.Outcomes[rec.Outcome]++
		}
		if rec.Divergence == 0 {
			s.Bad++
			continue
		}
		abs = append(abs, math.Abs(float64(rec.Divergence)))
	}
	s.DivergenceTSL = describe(abs)
	if sfreq > 0 {
		d := s.DivergenceTSL
		s.DivergenceSecs = Divergence{Mean: d.Mean / sfreq, Std: d.Std / sfreq, Min: d.Min / sfreq, Max: d.Max / sfreq}
	}
	return s
}

func describe(v []float64) Divergence {
	if len(v) == 0 {
		return Divergence{}
	}
	d := Divergence{Min: v[0], Max: v[0]}
	var sum float64
	for _, x := range v {
		sum += x
		d.Min = math.Min(d.Min, x)
		d.Max = math.Max(d.Max, x)
	}
	d.Mean = sum / float64(len(v))
	if len(v) > 1 {
		var sq float64
		for _, x := range v {
			sq += (x - d.Mean) * (x - d.Mean)
		}
		d.Std = math.Sqrt(sq / float64(len(v)-1))
	}
	return d
}
