package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/report"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/service"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/util"
)

var sample = &service.Report{
	Selector: "all",
	Outcomes: []service.Outcome{
		{Name: "c", Source: "https://example.com/c.git", State: service.StateSucceeded, Head: "0123456789abcdef0123456789abcdef01234567", Removal: "absent"},
		{Name: "rust", Source: "https://example.com/rust.git", Pinned: "abc", State: service.StateFailed, Reason: "checkout_failed", Error: "checkout failed: abc: reference not found", Removal: "removed"},
	},
}

func TestOutcomesTable(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Outcomes(&buf, report.FormatTable, sample); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, exp := range []string{"NAME", "STATUS", "HEAD", "DETAIL", "0123456789ab", "default branch", "checkout failed: abc"} {
		if !strings.Contains(out, exp) {
			t.Errorf("expected %q in:\n%s", exp, out)
		}
	}

	if strings.Contains(out, "0123456789abcdef0") {
		t.Errorf("expected abbreviated head in:\n%s", out)
	}
}

func TestOutcomesJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Outcomes(&buf, report.FormatJSON, sample); err != nil {
		t.Fatal(err)
	}

	var act struct {
		Outcomes []struct {
			Name   string `json:"name"`
			State  string `json:"state"`
			Reason string `json:"reason"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &act); err != nil {
		t.Fatal(err)
	}

	var failed []string
	for _, o := range act.Outcomes {
		if o.State == "failed" {
			failed = append(failed, o.Name+":"+o.Reason)
		}
	}

	if diff := cmp.Diff([]string{"rust:checkout_failed"}, failed); diff != "" {
		t.Fatalf("unexpected failed entries (-want, +got):\n%s", diff)
	}
}

func TestOutcomesYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Outcomes(&buf, report.FormatYAML, sample); err != nil {
		t.Fatal(err)
	}

	var act map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &act); err != nil {
		t.Fatal(err)
	}

	if exp := "all"; act["selector"] != exp {
		t.Fatalf("expected selector %q, got:\n%s", exp, buf.String())
	}

	outcomes, ok := act["outcomes"].([]any)
	if !ok || len(outcomes) != 2 {
		t.Fatalf("expected two outcomes, got:\n%s", buf.String())
	}
}

func TestLanguages(t *testing.T) {
	m := config.New()
	m.Merge(&config.Language{Name: "rust", Git: "https://example.com/rust.git", Hash: util.Ptr("abc")})
	m.Merge(&config.Language{Name: "c", Git: "https://example.com/c.git"})

	var buf bytes.Buffer
	if err := report.Languages(&buf, report.FormatJSON, m); err != nil {
		t.Fatal(err)
	}

	var act []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &act); err != nil {
		t.Fatal(err)
	}

	exp := []map[string]string{
		{"name": "c", "git": "https://example.com/c.git"},
		{"name": "rust", "git": "https://example.com/rust.git", "hash": "abc"},
	}
	if diff := cmp.Diff(exp, act); diff != "" {
		t.Fatalf("unexpected listing (-want, +got):\n%s", diff)
	}

	buf.Reset()
	if err := report.Languages(&buf, report.FormatTable, m); err != nil {
		t.Fatal(err)
	}
	if i, j := strings.Index(buf.String(), "example.com/c.git"), strings.Index(buf.String(), "example.com/rust.git"); i == -1 || j == -1 || i > j {
		t.Fatalf("expected languages in name order:\n%s", buf.String())
	}
}
