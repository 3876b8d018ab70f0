package config_test

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/util"
)

const sample = `# Automatically generated, DO NOT EDIT! Use ` + "`tree-sitter-grammars add`" + ` to modify.

[languages.ocaml]
git = "https://github.com/tree-sitter/tree-sitter-ocaml.git"
name = "ocaml"
maintainer = "alice"
queries = ["highlights", "locals"]

[languages.rust]
git = "https://github.com/tree-sitter/tree-sitter-rust.git"
hash = "0a1b2c3d"
name = "rust"
`

func TestParse(t *testing.T) {
	m, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	exp := map[string]*config.Language{
		"ocaml": {
			Name: "ocaml",
			Git:  "https://github.com/tree-sitter/tree-sitter-ocaml.git",
			Extra: map[string]any{
				"maintainer": "alice",
				"queries":    []any{"highlights", "locals"},
			},
		},
		"rust": {
			Name: "rust",
			Git:  "https://github.com/tree-sitter/tree-sitter-rust.git",
			Hash: util.Ptr("0a1b2c3d"),
		},
	}

	if diff := cmp.Diff(exp, m.Languages); diff != "" {
		t.Fatalf("unexpected languages (-want, +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, input := range []string{"", config.Header, "# just a comment\n"} {
		m, err := config.Parse([]byte(input))
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if len(m.Languages) != 0 {
			t.Fatalf("%q: expected no languages, got %v", input, m.Languages)
		}
	}
}

func TestParseNameDefaultsToKey(t *testing.T) {
	m, err := config.Parse([]byte(`
[languages.zig]
git = "https://github.com/maxxnino/tree-sitter-zig.git"
`))
	if err != nil {
		t.Fatal(err)
	}

	l, ok := m.Language("zig")
	if !ok || l.Name != "zig" {
		t.Fatalf("expected language zig, got %v", l)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		note  string
		input string
	}{
		{
			note:  "not toml",
			input: `[languages.rust`,
		},
		{
			note:  "git is not a string",
			input: "[languages.rust]\ngit = 42\n",
		},
		{
			note:  "git missing",
			input: "[languages.rust]\nhash = \"abc\"\n",
		},
		{
			note:  "git empty",
			input: "[languages.rust]\ngit = \"\"\n",
		},
		{
			note:  "languages is not a table",
			input: "languages = \"rust\"\n",
		},
		{
			note:  "entry is not a table",
			input: "[languages]\nrust = \"https://example.com/tree-sitter-rust.git\"\n",
		},
		{
			note:  "name differs from key",
			input: "[languages.rust]\nname = \"go\"\ngit = \"https://example.com/tree-sitter-rust.git\"\n",
		},
		{
			note:  "key is not a directory name",
			input: "[languages.\"..\"]\ngit = \"https://example.com/tree-sitter-rust.git\"\n",
		},
		{
			note:  "secret is not a table",
			input: "[secrets]\nexample = \"hunter2\"\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			_, err := config.Parse([]byte(tc.input))
			if !errors.Is(err, config.ErrManifestMalformed) {
				t.Fatalf("expected malformed manifest error, got %v", err)
			}
		})
	}
}

func TestMarshalRoundtrip(t *testing.T) {
	m, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	first, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(first, []byte(config.Header)) {
		t.Fatalf("expected generated header, got:\n%s", first)
	}

	if i, j := bytes.Index(first, []byte("[languages.ocaml]")), bytes.Index(first, []byte("[languages.rust]")); i == -1 || j == -1 || i > j {
		t.Fatalf("expected languages in name order, got:\n%s", first)
	}

	for range 3 {
		again, err := config.Parse(first)
		if err != nil {
			t.Fatal(err)
		}

		second, err := again.Marshal()
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(first, second) {
			t.Fatalf("expected identical output:\n%s\n\ngot:\n%s", first, second)
		}
	}
}

func TestMarshalLayout(t *testing.T) {
	m := config.New()
	m.Merge(&config.Language{Name: "rust", Git: "https://github.com/tree-sitter/tree-sitter-rust.git", Hash: util.Ptr("abc123")})

	bs, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	for _, exp := range []string{
		"[languages.rust]\n",
		"git = 'https://github.com/tree-sitter/tree-sitter-rust.git'\n",
		"hash = 'abc123'\n",
		"name = 'rust'\n",
	} {
		if !strings.Contains(string(bs), exp) {
			t.Errorf("expected %q in:\n%s", exp, bs)
		}
	}
}

func TestMarshalKeepsUnknownTopLevelTables(t *testing.T) {
	m, err := config.Parse([]byte(`
[tool]
version = 2

[languages.rust]
git = "https://github.com/tree-sitter/tree-sitter-rust.git"
`))
	if err != nil {
		t.Fatal(err)
	}

	bs, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(bs), "[tool]") || !strings.Contains(string(bs), "version = 2") {
		t.Fatalf("expected tool table to survive, got:\n%s", bs)
	}
}

func TestMergeNewEntry(t *testing.T) {
	m, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	before := m.Clone()

	changed := m.Merge(&config.Language{Name: "zig", Git: "https://github.com/maxxnino/tree-sitter-zig.git"})
	if !changed {
		t.Fatal("expected a change")
	}

	if exp, act := len(before.Languages)+1, len(m.Languages); exp != act {
		t.Fatalf("expected %d languages, got %d", exp, act)
	}

	for name, l := range before.Languages {
		if diff := cmp.Diff(l, m.Languages[name]); diff != "" {
			t.Errorf("language %q changed (-want, +got):\n%s", name, diff)
		}
	}
}

func TestMergeExistingEntryUpdatesOnlyHash(t *testing.T) {
	m, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	before, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	changed := m.Merge(&config.Language{
		Name: "ocaml",
		Git:  "https://github.com/tree-sitter/tree-sitter-ocaml.git",
		Hash: util.Ptr("deadbeef"),
	})
	if !changed {
		t.Fatal("expected a change")
	}

	after, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	// The ocaml table gains a hash line, every other line is kept as is.
	afterLines := strings.Split(string(after), "\n")
	i := slices.Index(afterLines, "hash = 'deadbeef'")
	if i == -1 {
		t.Fatalf("expected a hash line, got:\n%s", after)
	}
	afterLines = slices.Delete(afterLines, i, i+1)

	if diff := cmp.Diff(strings.Split(string(before), "\n"), afterLines); diff != "" {
		t.Fatalf("expected only the hash line to be added (-before, +after):\n%s", diff)
	}

	reparsed, err := config.Parse(after)
	if err != nil {
		t.Fatal(err)
	}

	expOCaml := &config.Language{
		Name: "ocaml",
		Git:  "https://github.com/tree-sitter/tree-sitter-ocaml.git",
		Hash: util.Ptr("deadbeef"),
		Extra: map[string]any{
			"maintainer": "alice",
			"queries":    []any{"highlights", "locals"},
		},
	}
	if diff := cmp.Diff(expOCaml, reparsed.Languages["ocaml"]); diff != "" {
		t.Fatalf("unexpected ocaml entry (-want, +got):\n%s", diff)
	}

	original, _ := config.Parse([]byte(sample))
	if diff := cmp.Diff(original.Languages["rust"], reparsed.Languages["rust"]); diff != "" {
		t.Fatalf("rust entry changed (-want, +got):\n%s", diff)
	}
}

func TestMergeUnchanged(t *testing.T) {
	m, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	if m.Merge(&config.Language{Name: "rust", Hash: util.Ptr("0a1b2c3d")}) {
		t.Fatal("expected no change")
	}
}

func TestMergeClearsHash(t *testing.T) {
	m, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	if !m.Merge(&config.Language{Name: "rust"}) {
		t.Fatal("expected a change")
	}

	if h := m.Languages["rust"].Hash; h != nil {
		t.Fatalf("expected hash to be cleared, got %q", *h)
	}

	if exp, act := "https://github.com/tree-sitter/tree-sitter-rust.git", m.Languages["rust"].Git; exp != act {
		t.Fatalf("expected git %q to be kept, got %q", exp, act)
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"rust", "c-sharp", "ocaml_interface", "tree-sitter.v2"} {
		if err := config.ValidateName(name); err != nil {
			t.Errorf("%q: unexpected error %v", name, err)
		}
	}

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := config.ValidateName(name); !errors.Is(err, config.ErrInvalidName) {
			t.Errorf("%q: expected invalid name error, got %v", name, err)
		}
	}
}

func TestReflectSchema(t *testing.T) {
	bs, err := config.ReflectSchema()
	if err != nil {
		t.Fatal(err)
	}

	for _, exp := range []string{`"languages"`, `"git"`, `"hash"`} {
		if !bytes.Contains(bs, []byte(exp)) {
			t.Errorf("expected %s in schema:\n%s", exp, bs)
		}
	}
}

func TestSortedLanguages(t *testing.T) {
	m := config.New()
	for _, name := range []string{"zig", "c", "rust", "ocaml"} {
		m.Merge(&config.Language{Name: name, Git: "https://example.com/" + name + ".git"})
	}

	var names []string
	for name := range m.SortedLanguages() {
		names = append(names, name)
	}

	if diff := cmp.Diff([]string{"c", "ocaml", "rust", "zig"}, names, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected order (-want, +got):\n%s", diff)
	}
}

func TestLanguageValidate(t *testing.T) {
	valid := &config.Language{Name: "rust", Git: "https://github.com/tree-sitter/tree-sitter-rust.git", Hash: util.Ptr("0a1b2c3d"), Credentials: util.Ptr("example")}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	for note, l := range map[string]*config.Language{
		"empty name":        {Git: "https://example.com/x.git"},
		"empty git":         {Name: "rust"},
		"empty hash":        {Name: "rust", Git: "https://example.com/x.git", Hash: util.Ptr("")},
		"empty credentials": {Name: "rust", Git: "https://example.com/x.git", Credentials: util.Ptr("")},
	} {
		t.Run(note, func(t *testing.T) {
			if err := l.Validate(); !errors.Is(err, config.ErrInvalidEntry) {
				t.Fatalf("expected invalid entry error, got %v", err)
			}
		})
	}
}
