package service

import (
	"fmt"

	"github.com/gobwas/glob"
)

type selectorKind int

const (
	selectNone selectorKind = iota
	selectName
	selectAll
	selectMatch
)

// Selector picks the manifest entries a run synchronizes. The zero value
// selects nothing and is rejected by Run with ErrNoSelector.
type Selector struct {
	kind    selectorKind
	value   string
	pattern glob.Glob
}

// ByName selects the single entry called name.
func ByName(name string) Selector {
	return Selector{kind: selectName, value: name}
}

// All selects every entry.
func All() Selector {
	return Selector{kind: selectAll}
}

// Match selects the entries whose name matches the glob pattern.
func Match(pattern string) (Selector, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return Selector{kind: selectMatch, value: pattern, pattern: g}, nil
}

func (s Selector) IsZero() bool {
	return s.kind == selectNone
}

func (s Selector) String() string {
	switch s.kind {
	case selectName:
		return "name"
	case selectAll:
		return "all"
	case selectMatch:
		return "match"
	default:
		return "none"
	}
}

func (s Selector) matches(name string) bool {
	switch s.kind {
	case selectAll:
		return true
	case selectName:
		return name == s.value
	case selectMatch:
		return s.pattern.Match(name)
	default:
		return false
	}
}
