package matching

import model "github.com/okian/epocher/internal/domain/model"

// Record is one output row: a marker paired with at most one response.
type Record struct {
	Marker     model.Event `json:"marker"`
	MarkerTime int64       `json:"marker_time"`
	// Upstream is the stage-one row a stage-two marker was taken from.
	Upstream *Record `json:"upstream,omitempty"`

	Response      model.Event `json:"response"`
	ResponseIndex int         `json:"response_index"`
	HasResponse   bool        `json:"has_response"`

	Outcome    Outcome `json:"outcome"`
	Divergence int64   `json:"divergence"`
	MatchCount int     `json:"match_count"`

	Bad              bool `json:"bads"`
	Selected         bool `json:"selected"`
	WeightedSelected bool `json:"weighted_selected"`
}

// Table is the output of one matching invocation.
type Table struct {
	MarkerLabel    string   `json:"marker_label"`
	MarkerPrefix   string   `json:"marker_prefix"`
	ResponseLabel  string   `json:"response_label,omitempty"`
	ResponsePrefix string   `json:"response_prefix,omitempty"`
	Upstream       *Table   `json:"-"`
	Records        []Record `json:"records"`
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Count returns how many records carry outcome o.
func (t *Table) Count(o Outcome) int {
	n := 0
	for i := range t.Records {
		if t.Records[i].Outcome == o {
			n++
		}
	}
	return n
}

// HasResponses reports whether the table came from response matching rather
// than from tagging markers.
func (t *Table) HasResponses() bool { return t.ResponseLabel != "" || t.ResponsePrefix != "" }

// Columns returns the flattened column names, matching Rows.
func (t *Table) Columns() []string {
	cols := t.dataColumns()
	return append(cols, "bads", "selected", "weighted_selected")
}

// Rows flattens every record into int64 cells in Columns order. Outcomes are
// written as ordinals and booleans as 0/1.
func (t *Table) Rows() [][]int64 {
	out := make([][]int64, len(t.Records))
	for i := range t.Records {
		rec := &t.Records[i]
		row := t.dataRow(rec)
		out[i] = append(row, b2i(rec.Bad), b2i(rec.Selected), b2i(rec.WeightedSelected))
	}
	return out
}

func (t *Table) dataColumns() []string {
	var cols []string
	if t.Upstream != nil {
		cols = t.Upstream.dataColumns()
	} else {
		p := t.MarkerPrefix
		cols = []string{model.PrefixedColumn(p, "id"), model.PrefixedColumn(p, "onset"), model.PrefixedColumn(p, "offset")}
	}
	if !t.HasResponses() {
		return append(cols, model.PrefixedColumn(t.MarkerPrefix, "type"))
	}
	p := t.ResponsePrefix
	return append(cols,
		model.PrefixedColumn(p, "id"),
		model.PrefixedColumn(p, "onset"),
		model.PrefixedColumn(p, "offset"),
		model.PrefixedColumn(p, "div"),
		model.PrefixedColumn(p, "type"),
		model.PrefixedColumn(p, "index"),
		model.PrefixedColumn(p, "counts"),
	)
}

func (t *Table) dataRow(rec *Record) []int64 {
	var row []int64
	switch {
	case t.Upstream != nil && rec.Upstream != nil:
		row = t.Upstream.dataRow(rec.Upstream)
	case t.Upstream != nil:
		row = make([]int64, len(t.Upstream.dataColumns()))
	default:
		row = []int64{int64(rec.Marker.ID), rec.Marker.Onset, rec.Marker.Offset}
	}
	if !t.HasResponses() {
		return append(row, int64(rec.Outcome))
	}
	return append(row,
		int64(rec.Response.ID),
		rec.Response.Onset,
		rec.Response.Offset,
		rec.Divergence,
		int64(rec.Outcome),
		int64(rec.ResponseIndex),
		int64(rec.MatchCount),
	)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// materialize builds one record. A negative row means no response.
func materialize(m Stimulus, responses []model.Event, field model.TimeField, row int, outcome Outcome, count int) Record {
	rec := Record{
		Marker:     m.Event,
		MarkerTime: m.Time,
		Upstream:   m.Upstream,
		Outcome:    outcome,
		MatchCount: count,
	}
	if row >= 0 {
		rec.Response = responses[row]
		rec.ResponseIndex = row
		rec.HasResponse = true
		rec.Divergence = field.Of(rec.Response) - m.Time
	}
	return rec
}
