package config

import (
	"maps"
	"reflect"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/util"
)

// Merge folds l into the manifest and reports whether anything changed. A new
// name is inserted as is. For an existing name only the fields that differ are
// updated: the pinned hash always follows l, the source and credentials only
// when l sets them. Every other key of the existing entry, including keys
// added by hand, is left alone.
func (m *Manifest) Merge(l *Language) bool {
	existing, ok := m.Languages[l.Name]
	if !ok {
		m.Languages[l.Name] = l.Clone()
		return true
	}

	var changed bool

	if !util.PtrEqual(existing.Hash, l.Hash) {
		existing.Hash = l.Clone().Hash
		changed = true
	}

	if l.Git != "" && existing.Git != l.Git {
		existing.Git = l.Git
		changed = true
	}

	if l.Credentials != nil && !util.PtrEqual(existing.Credentials, l.Credentials) {
		existing.Credentials = util.Ptr(*l.Credentials)
		changed = true
	}

	for key, value := range l.Extra {
		if current, ok := existing.Extra[key]; ok && reflect.DeepEqual(current, value) {
			continue
		}
		if existing.Extra == nil {
			existing.Extra = make(map[string]any, len(l.Extra))
		}
		existing.Extra[key] = value
		changed = true
	}

	return changed
}

// Clone returns a deep enough copy of the manifest that merging into it leaves
// m untouched.
func (m *Manifest) Clone() *Manifest {
	c := New()
	for name, l := range m.Languages {
		c.Languages[name] = l.Clone()
	}
	for name, s := range m.Secrets {
		c.Secrets[name] = &Secret{Name: s.Name, Value: maps.Clone(s.Value)}
	}
	maps.Copy(c.extra, m.extra)
	return c
}
