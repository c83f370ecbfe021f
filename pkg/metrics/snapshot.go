package metrics

import (
	"fmt"
	"strings"
	"time"
)

// RefreshInterval is how often callers should refresh the service gauges.
func RefreshInterval() time.Duration {
	if globalManager == nil {
		return defaultRefreshInterval
	}
	return globalManager.refreshInterval
}

// OutcomeTotals gathers the custom registry and returns the outcome counter
// values keyed by outcome label.
func OutcomeTotals() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGather, err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "outcomes_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" {
					out[lp.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	return out, nil
}
