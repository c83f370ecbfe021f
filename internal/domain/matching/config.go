package matching

import (
	"fmt"
	"strconv"
	"strings"

	model "github.com/okian/epocher/internal/domain/model"
)

// Window is a relative tick range around a marker time. Start may be
// negative to search before the marker.
type Window struct {
	Start int64 `json:"tsl_start"`
	End   int64 `json:"tsl_end"`
}

// Validate reports ErrInvalidWindow unless Start < End.
func (w Window) Validate() error {
	if w.Start >= w.End {
		return fmt.Errorf("%w: tsl_start %d must be below tsl_end %d", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// CountsKind tags the Counts variant.
type CountsKind int

const (
	// CountsUnset is the zero value: no policy was configured.
	CountsUnset CountsKind = iota
	CountsAllKind
	CountsFirstKind
	CountsLimitKind
)

// Counts is the response counting policy: all, first, or an integer limit.
type Counts struct {
	kind  CountsKind
	limit int
}

// CountsAll keeps every in-window target response as its own HIT.
func CountsAll() Counts { return Counts{kind: CountsAllKind} }

// CountsFirst judges only the earliest in-window response.
func CountsFirst() Counts { return Counts{kind: CountsFirstKind} }

// CountsLimit accepts up to n in-window responses, all of which must be targets.
func CountsLimit(n int) (Counts, error) {
	if n < 1 {
		return Counts{}, fmt.Errorf("%w: limit %d", ErrInvalidCounts, n)
	}
	return Counts{kind: CountsLimitKind, limit: n}, nil
}

// Kind returns the variant tag.
func (c Counts) Kind() CountsKind { return c.kind }

// Limit returns the limit and whether the policy is CountsLimitKind.
func (c Counts) Limit() (int, bool) { return c.limit, c.kind == CountsLimitKind }

// IsSet reports whether a policy was configured.
func (c Counts) IsSet() bool { return c.kind != CountsUnset }

func (c Counts) String() string {
	switch c.kind {
	case CountsAllKind:
		return "all"
	case CountsFirstKind:
		return "first"
	case CountsLimitKind:
		return fmt.Sprintf("%d", c.limit)
	}
	return "unset"
}

// ParseCounts converts a configured value: "all", "first", a positive integer,
// or nil/0 for unset.
func ParseCounts(v any) (Counts, error) {
	switch x := v.(type) {
	case nil:
		return Counts{}, nil
	case string:
		switch x {
		case "all":
			return CountsAll(), nil
		case "first":
			return CountsFirst(), nil
		case "":
			return Counts{}, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return Counts{}, fmt.Errorf("%w: %q", ErrInvalidCounts, x)
		}
		return ParseCounts(n)
	case int:
		if x == 0 {
			return Counts{}, nil
		}
		return CountsLimit(x)
	case int64:
		return ParseCounts(int(x))
	case float64:
		if x != float64(int(x)) {
			return Counts{}, fmt.Errorf("%w: %v", ErrInvalidCounts, x)
		}
		return ParseCounts(int(x))
	}
	return Counts{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidCounts, v)
}

// EarlyPolicy selects which responses are ignored by the too-early check.
type EarlyPolicy struct {
	all bool
	ids model.IDSet
}

// EarlyIgnoreNone considers every early response.
func EarlyIgnoreNone() EarlyPolicy { return EarlyPolicy{} }

// EarlyIgnoreAll disables the too-early check.
func EarlyIgnoreAll() EarlyPolicy { return EarlyPolicy{all: true} }

// EarlyIgnoreIDs skips early responses whose id is in ids.
func EarlyIgnoreIDs(ids model.IDSet) EarlyPolicy { return EarlyPolicy{ids: ids} }

// Disabled reports whether the check is switched off.
func (p EarlyPolicy) Disabled() bool { return p.all }

// Ignores reports whether an early response with id is ignored.
func (p EarlyPolicy) Ignores(id int) bool { return p.all || p.ids.Contains(id) }

func (p EarlyPolicy) String() string {
	switch {
	case p.all:
		return "all"
	case p.ids.Len() == 0:
		return "none"
	}
	return p.ids.String()
}

// ParseEarlyPolicy accepts nil, "all", or any id form understood by model.ParseIDs.
func ParseEarlyPolicy(v any) (EarlyPolicy, error) {
	if s, ok := v.(string); ok && s == "all" {
		return EarlyIgnoreAll(), nil
	}
	ids, err := model.ParseIDs(v)
	if err != nil {
		return EarlyPolicy{}, err
	}
	if ids.Len() == 0 {
		return EarlyIgnoreNone(), nil
	}
	return EarlyIgnoreIDs(ids), nil
}

// Config is the resolved matching configuration for one channel role.
// It is validated once by NewConfig and never changes afterwards.
type Config struct {
	window  Window
	counts  Counts
	targets model.IDSet
	early   EarlyPolicy
}

// ConfigOption configures a Config.
type ConfigOption func(*Config)

// WithWindow sets the relative window in ticks.
func WithWindow(w Window) ConfigOption {
	return func(c *Config) { c.window = w }
}

// WithCounts sets the counting policy.
func WithCounts(counts Counts) ConfigOption {
	return func(c *Config) { c.counts = counts }
}

// WithTargetIDs sets the response ids counted as correct.
func WithTargetIDs(ids model.IDSet) ConfigOption {
	return func(c *Config) {
		c.targets = make(model.IDSet, len(ids))
		for id := range ids {
			c.targets[id] = struct{}{}
		}
	}
}

// WithEarlyIgnore sets the too-early ignore policy.
func WithEarlyIgnore(p EarlyPolicy) ConfigOption {
	return func(c *Config) { c.early = p }
}

// NewConfig builds and validates a Config.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.window.Validate(); err != nil {
		return nil, err
	}
	if c.targets.Len() == 0 {
		return nil, fmt.Errorf("%w: target ids must not be empty", ErrInvalidIDs)
	}
	if lim, ok := c.counts.Limit(); ok && lim < 1 {
		return nil, fmt.Errorf("%w: limit %d", ErrInvalidCounts, lim)
	}
	return c, nil
}

func (c *Config) Window() Window           { return c.window }
func (c *Config) Counts() Counts           { return c.counts }
func (c *Config) EarlyPolicy() EarlyPolicy { return c.early }

// IsTarget reports whether id is a target response id.
func (c *Config) IsTarget(id int) bool { return c.targets.Contains(id) }

// TargetIDs returns a copy of the target id set.
func (c *Config) TargetIDs() model.IDSet {
	out := make(model.IDSet, len(c.targets))
	for id := range c.targets {
		out[id] = struct{}{}
	}
	return out
}
