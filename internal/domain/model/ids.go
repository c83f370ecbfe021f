package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IDSet is a set of integer event codes.
type IDSet map[int]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set. A nil set contains nothing.
func (s IDSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// Len returns the set size.
func (s IDSet) Len() int { return len(s) }

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// String renders the set in range notation, e.g. "1,3-5".
func (s IDSet) String() string {
	ids := s.Sorted()
	var b strings.Builder
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(ids[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(ids[j]))
		}
		i = j + 1
	}
	return b.String()
}

// ParseIDs converts a configured id value into a set. Accepted forms are an
// integer, a float with an integral value, a list of those, or a range string
// such as "1,3,5-8". Zero codes are dropped: a trigger value of 0 is "no event".
// A nil value yields an empty set.
func ParseIDs(v any) (IDSet, error) {
	s := make(IDSet)
	if err := addIDs(s, v); err != nil {
		return nil, err
	}
	delete(s, 0)
	return s, nil
}

func addIDs(s IDSet, v any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		s[x] = struct{}{}
	case int64:
		s[int(x)] = struct{}{}
	case float64:
		if x != float64(int(x)) {
			return fmt.Errorf("%w: %v is not integral", ErrInvalidIDRange, x)
		}
		s[int(x)] = struct{}{}
	case string:
		return addRangeString(s, x)
	case []int:
		for _, id := range x {
			s[id] = struct{}{}
		}
	case []any:
		for _, item := range x {
			if err := addIDs(s, item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidIDRange, v)
	}
	return nil
}

func addRangeString(s IDSet, list string) error {
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidIDRange, part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return fmt.Errorf("%w: %q", ErrInvalidIDRange, part)
			}
		}
		for id := from; id <= to; id++ {
			s[id] = struct{}{}
		}
	}
	return nil
}
