package migspec

import (
	"fmt"
	"strings"
)

// Wildcard is the selector value that matches every entry.
const Wildcard = "*"

// MaxSelectorEntries is the largest set a source selector may hold.
const MaxSelectorEntries = 10

type selectorKind int

const (
	selectorAbsent selectorKind = iota
	selectorWildcard
	selectorSet
)

// Selector is a source-side filter: absent, the wildcard, or a set of
// explicit values. The zero value is absent.
type Selector struct {
	kind   selectorKind
	values []string
}

// ParseSelector parses the comma-separated form used on the command line.
// An empty string yields an absent selector. Any "*" entry makes the whole
// selector a wildcard.
func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selector{}, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) > MaxSelectorEntries {
		return Selector{}, fmt.Errorf("%w: %d entries, at most %d allowed", ErrTooManyEntries, len(parts), MaxSelectorEntries)
	}

	values := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == Wildcard {
			return AnyValue(), nil
		}
		if p == "" {
			return Selector{}, fmt.Errorf("empty entry in %q", raw)
		}
		values = append(values, p)
	}
	return Selector{kind: selectorSet, values: values}, nil
}

// AnyValue returns the wildcard selector.
func AnyValue() Selector {
	return Selector{kind: selectorWildcard}
}

// OneOf returns a selector over the given values. It does not enforce
// MaxSelectorEntries; use ParseSelector for untrusted input.
func OneOf(values ...string) Selector {
	if len(values) == 0 {
		return Selector{}
	}
	return Selector{kind: selectorSet, values: append([]string(nil), values...)}
}

func (s Selector) IsAbsent() bool   { return s.kind == selectorAbsent }
func (s Selector) IsWildcard() bool { return s.kind == selectorWildcard }

// MatchesAll reports whether the selector places no constraint.
func (s Selector) MatchesAll() bool { return s.kind != selectorSet }

// Contains reports whether v is selected. Absent and wildcard selectors
// contain everything.
func (s Selector) Contains(v string) bool {
	if s.MatchesAll() {
		return true
	}
	return s.ContainsExplicit(v)
}

// ContainsExplicit reports whether v is listed by value.
func (s Selector) ContainsExplicit(v string) bool {
	for _, sv := range s.values {
		if sv == v {
			return true
		}
	}
	return false
}

// Values returns a copy of the explicit values.
func (s Selector) Values() []string {
	return append([]string(nil), s.values...)
}

// Single returns the only explicit value when the selector lists exactly one.
func (s Selector) Single() (string, bool) {
	if s.kind != selectorSet || len(s.values) != 1 {
		return "", false
	}
	return s.values[0], true
}

// String renders the command-line form; absent renders as "".
func (s Selector) String() string {
	switch s.kind {
	case selectorWildcard:
		return Wildcard
	case selectorSet:
		return strings.Join(s.values, ",")
	default:
		return ""
	}
}
