// Package report renders run outcomes and the manifest for the terminal or for
// machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/service"
)

type Format int

const (
	FormatTable Format = iota
	FormatJSON
	FormatYAML
)

// FormatIds maps formats to their flag values.
var FormatIds = map[Format][]string{
	FormatTable: {"table"},
	FormatJSON:  {"json"},
	FormatYAML:  {"yaml", "yml"},
}

// Outcomes writes one row or record per outcome. Failed entries carry their
// error, so the set of names to retry can be read off the output.
func Outcomes(w io.Writer, format Format, r *service.Report) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	}

	table := tablewriter.NewWriter(w)
	table.Header("NAME", "STATUS", "HEAD", "DETAIL")
	for _, o := range r.Outcomes {
		if err := table.Append([]string{o.Name, string(o.State), shortSHA(o.Head), detail(o)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func detail(o service.Outcome) string {
	switch {
	case o.Failed():
		return o.Error
	case o.Pinned != "":
		return "pinned at " + o.Pinned
	default:
		return "default branch"
	}
}

// language is the listing shape of a manifest entry.
type language struct {
	Name        string `json:"name"`
	Git         string `json:"git"`
	Hash        string `json:"hash,omitempty"`
	Credentials string `json:"credentials,omitempty"`
}

// Languages lists the manifest entries in name order.
func Languages(w io.Writer, format Format, m *config.Manifest) error {
	languages := make([]language, 0, len(m.Languages))
	for _, l := range m.SortedLanguages() {
		entry := language{Name: l.Name, Git: l.Git}
		if l.Hash != nil {
			entry.Hash = *l.Hash
		}
		if l.Credentials != nil {
			entry.Credentials = *l.Credentials
		}
		languages = append(languages, entry)
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, languages)
	case FormatYAML:
		return writeYAML(w, languages)
	}

	table := tablewriter.NewWriter(w)
	table.Header("NAME", "GIT", "HASH", "CREDENTIALS")
	for _, l := range languages {
		if err := table.Append([]string{l.Name, l.Git, l.Hash, l.Credentials}); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	bs, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	_, err = w.Write(bs)
	return err
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
