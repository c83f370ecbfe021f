package matching

import model "github.com/okian/epocher/internal/domain/model"

// Stimulus is one marker occurrence with the timestamp used for matching.
type Stimulus struct {
	Event    model.Event
	Time     int64
	Upstream *Record
}

// Markers is the marker input of one matching invocation.
type Markers struct {
	Label    string
	Prefix   string
	Items    []Stimulus
	Upstream *Table
	// Dropped counts source rows that carried no usable marker time.
	Dropped int
}

// Len returns the number of markers.
func (m *Markers) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Items)
}

// FromEvents uses every event of t as a marker, timed by field. Events
// without the selected timestamp are dropped.
func FromEvents(t *model.EventTable, field model.TimeField) *Markers {
	m := &Markers{Label: t.Label, Prefix: t.Prefix, Items: make([]Stimulus, 0, t.Len())}
	for _, e := range t.Events {
		if field == model.FieldOffset && !e.HasOffset() {
			m.Dropped++
			continue
		}
		m.Items = append(m.Items, Stimulus{Event: e, Time: field.Of(e)})
	}
	return m
}

// FromRecords turns the HIT rows of a stage-one table into stage-two markers
// timed by the response field of each row. Other outcomes carry no usable
// response time and are left out.
func FromRecords(t *Table, field model.TimeField) *Markers {
	m := &Markers{Label: t.ResponseLabel, Prefix: t.ResponsePrefix, Upstream: t, Items: make([]Stimulus, 0, t.Len())}
	for i := range t.Records {
		rec := &t.Records[i]
		if rec.Outcome != Hit || !rec.HasResponse {
			continue
		}
		if field == model.FieldOffset && !rec.Response.HasOffset() {
			m.Dropped++
			continue
		}
		m.Items = append(m.Items, Stimulus{Event: rec.Response, Time: field.Of(rec.Response), Upstream: rec})
	}
	return m
}

// Tag turns markers into an output table without response matching: every
// row gets outcome o.
func Tag(m *Markers, o Outcome) *Table {
	t := &Table{MarkerLabel: m.Label, MarkerPrefix: m.Prefix, Upstream: m.Upstream, Records: make([]Record, len(m.Items))}
	for i, s := range m.Items {
		t.Records[i] = Record{Marker: s.Event, MarkerTime: s.Time, Upstream: s.Upstream, Outcome: o}
	}
	return t
}
