package matching

import (
	"fmt"
	"strings"
)

// Outcome classifies one output record. The ordinals are part of the output
// format: downstream statistics index arrays by them.
type Outcome int

const (
	Missed Outcome = iota
	TooEarly
	Wrong
	Hit
)

// NumOutcomes is the size of an ordinal-indexed outcome array.
const NumOutcomes = 4

var outcomeNames = [NumOutcomes]string{"MISSED", "TOEARLY", "WRONG", "HIT"}

// outcomeAliases maps normalized alternate names to outcomes.
var outcomeAliases = map[string]Outcome{"TOOEARLY": TooEarly}

// Outcomes lists every outcome in ordinal order.
func Outcomes() []Outcome { return []Outcome{Missed, TooEarly, Wrong, Hit} }

func (o Outcome) String() string {
	if o < 0 || int(o) >= NumOutcomes {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// ParseOutcome accepts the outcome names case-insensitively, including the
// "TOO-EARLY" and "TOO_EARLY" spellings.
func ParseOutcome(s string) (Outcome, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "").Replace(norm)
	for i, name := range outcomeNames {
		if norm == name {
			return Outcome(i), nil
		}
	}
	if o, ok := outcomeAliases[norm]; ok {
		return o, nil
	}
	return Missed, fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= NumOutcomes {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOutcome, int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
