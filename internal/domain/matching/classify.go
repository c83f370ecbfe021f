package matching

// verdict is one response row chosen by the classifier with its outcome.
type verdict struct {
	row     int
	outcome Outcome
}

// classify applies the counting policy to the in-window response rows
// (non-empty, in time order). ids maps a response row to its event id.
func classify(cfg *Config, found []int, ids []int) []verdict {
	switch cfg.counts.kind {
	case CountsAllKind:
		var out []verdict
		for _, row := range found {
			if cfg.IsTarget(ids[row]) {
				out = append(out, verdict{row: row, outcome: Hit})
			}
		}
		return out
	case CountsFirstKind:
		row := found[0]
		if cfg.IsTarget(ids[row]) {
			return []verdict{{row: row, outcome: Hit}}
		}
		return []verdict{{row: row, outcome: Wrong}}
	case CountsLimitKind:
		return classifyLimit(cfg, found, ids, cfg.counts.limit)
	default:
		return classifyLimit(cfg, found, ids, len(found))
	}
}

// classifyLimit marks every found row HIT when there are at most limit of
// them and all are targets, otherwise every found row is WRONG.
func classifyLimit(cfg *Config, found []int, ids []int, limit int) []verdict {
	outcome := Hit
	if len(found) > limit {
		outcome = Wrong
	} else {
		for _, row := range found {
			if !cfg.IsTarget(ids[row]) {
				outcome = Wrong
				break
			}
		}
	}
	out := make([]verdict, len(found))
	for i, row := range found {
		out[i] = verdict{row: row, outcome: outcome}
	}
	return out
}
