package matching

// Range is an absolute, inclusive tick range.
type Range struct {
	Start int64
	End   int64
}

// Resolve places w around the marker time t.
func Resolve(t int64, w Window) Range {
	return Range{Start: t + w.Start, End: t + w.End}
}

// InBounds reports whether neither bound lies before sample 0.
func (r Range) InBounds() bool { return r.Start >= 0 && r.End >= 0 }

// Contains reports whether t lies in [Start, End].
func (r Range) Contains(t int64) bool { return t >= r.Start && t <= r.End }
