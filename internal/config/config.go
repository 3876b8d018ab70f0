package config

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/util"
)

// Header is written at the top of every persisted manifest.
const Header = "# Automatically generated, DO NOT EDIT! Use `tree-sitter-grammars add` to modify.\n\n"

const (
	languagesKey = "languages"
	secretsKey   = "secrets"
)

var (
	ErrManifestUnreadable  = errors.New("manifest unreadable")
	ErrManifestMalformed   = errors.New("manifest malformed")
	ErrManifestWriteFailed = errors.New("manifest write failed")
	ErrInvalidName         = errors.New("invalid language name")
	ErrInvalidEntry        = errors.New("invalid language entry")
)

// Manifest is the registry of grammar repositories, keyed by language name.
// Top-level tables other than languages and secrets are carried through
// unchanged.
type Manifest struct {
	Languages map[string]*Language `json:"languages,omitempty"`
	Secrets   map[string]*Secret   `json:"secrets,omitempty"`

	extra map[string]any
}

// Language is a single registry entry.
type Language struct {
	Name string `json:"name,omitempty" toml:"name"`
	Git  string `json:"git" toml:"git" required:"true" minLength:"1"`

	// Hash pins a commit; nil tracks the default branch.
	Hash *string `json:"hash,omitempty" toml:"hash,omitempty" minLength:"1"`

	// Credentials names an entry in Manifest.Secrets.
	Credentials *string `json:"credentials,omitempty" toml:"credentials,omitempty" minLength:"1"`

	// Extra holds keys added to the entry by hand. They survive merges.
	Extra map[string]any `json:"-" toml:",remain"`
}

func New() *Manifest {
	return &Manifest{
		Languages: make(map[string]*Language),
		Secrets:   make(map[string]*Secret),
		extra:     make(map[string]any),
	}
}

// Parse decodes a TOML manifest. All errors wrap ErrManifestMalformed.
func Parse(bs []byte) (*Manifest, error) {
	var doc map[string]any
	if err := toml.Unmarshal(bs, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestMalformed, err)
	}

	if err := validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestMalformed, err)
	}

	m := New()
	for key, value := range doc {
		switch key {
		case languagesKey:
			tables, _ := value.(map[string]any)
			for name, raw := range tables {
				l, err := decodeLanguage(name, raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrManifestMalformed, err)
				}
				m.Languages[name] = l
			}
		case secretsKey:
			tables, _ := value.(map[string]any)
			for name, raw := range tables {
				v, _ := raw.(map[string]any)
				m.Secrets[name] = &Secret{Name: name, Value: v}
			}
		default:
			m.extra[key] = value
		}
	}

	return m, nil
}

func decodeLanguage(key string, raw any) (*Language, error) {
	var l Language
	if err := decode(raw, &l); err != nil {
		return nil, fmt.Errorf("language %q: %w", key, err)
	}

	l.Name = cmp.Or(l.Name, key)
	if l.Name != key {
		return nil, fmt.Errorf("language %q: name %q does not match its table key", key, l.Name)
	}

	if err := ValidateName(key); err != nil {
		return nil, err
	}

	if len(l.Extra) == 0 {
		l.Extra = nil
	}

	return &l, nil
}

// decode maps a generic TOML table onto a struct using its toml tags, so that
// unknown keys land in the ",remain" field.
func decode(input any, output any) error {
	config := &mapstructure.DecoderConfig{
		TagName: "toml",
		Result:  output,
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// Marshal serializes the manifest with the generated header. Keys and tables
// are written in sorted order, so marshaling an unchanged manifest always
// yields the same bytes.
func (m *Manifest) Marshal() ([]byte, error) {
	doc := make(map[string]any, len(m.extra)+2)
	maps.Copy(doc, m.extra)

	if len(m.Languages) > 0 {
		languages := make(map[string]any, len(m.Languages))
		for name, l := range m.Languages {
			languages[name] = l.table()
		}
		doc[languagesKey] = languages
	}

	if len(m.Secrets) > 0 {
		secrets := make(map[string]any, len(m.Secrets))
		for name, s := range m.Secrets {
			if s.Value == nil {
				secrets[name] = map[string]any{}
				continue
			}
			secrets[name] = s.Value
		}
		doc[secretsKey] = secrets
	}

	buf := bytes.NewBufferString(Header)
	if err := toml.NewEncoder(buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	return buf.Bytes(), nil
}

func (l *Language) table() map[string]any {
	t := make(map[string]any, len(l.Extra)+4)
	maps.Copy(t, l.Extra)
	t["name"] = l.Name
	t["git"] = l.Git
	if l.Hash != nil {
		t["hash"] = *l.Hash
	}
	if l.Credentials != nil {
		t["credentials"] = *l.Credentials
	}
	return t
}

// Language looks up an entry by name.
func (m *Manifest) Language(name string) (*Language, bool) {
	l, ok := m.Languages[name]
	return l, ok
}

// SortedLanguages iterates over the entries in name order.
func (m *Manifest) SortedLanguages() iter.Seq2[string, *Language] {
	return util.Sorted(m.Languages)
}

// Credentials returns the secret referenced by l, or nil if l uses none.
func (m *Manifest) Credentials(l *Language) (*Secret, error) {
	if l.Credentials == nil {
		return nil, nil
	}

	s, ok := m.Secrets[*l.Credentials]
	if !ok {
		return nil, fmt.Errorf("secret %q not found", *l.Credentials)
	}

	return s, nil
}

// ValidateName checks that name can be used as a single directory name below
// the grammar base directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Validate reports the fields of l that the manifest schema would reject once
// written. All errors wrap ErrInvalidEntry.
func (l *Language) Validate() error {
	if err := ValidateName(l.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	switch {
	case l.Git == "":
		return fmt.Errorf("%w: language %q: git must not be empty", ErrInvalidEntry, l.Name)
	case l.Hash != nil && *l.Hash == "":
		return fmt.Errorf("%w: language %q: hash must not be empty", ErrInvalidEntry, l.Name)
	case l.Credentials != nil && *l.Credentials == "":
		return fmt.Errorf("%w: language %q: credentials must not be empty", ErrInvalidEntry, l.Name)
	}

	return nil
}

func (l *Language) Clone() *Language {
	c := *l
	if l.Hash != nil {
		c.Hash = util.Ptr(*l.Hash)
	}
	if l.Credentials != nil {
		c.Credentials = util.Ptr(*l.Credentials)
	}
	c.Extra = maps.Clone(l.Extra)
	return &c
}

func (l *Language) Equal(other *Language) bool {
	return util.FastEqual(l, other, func(l, other *Language) bool {
		return l.Name == other.Name &&
			l.Git == other.Git &&
			util.PtrEqual(l.Hash, other.Hash) &&
			util.PtrEqual(l.Credentials, other.Credentials)
	})
}
