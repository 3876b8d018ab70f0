package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/report"
)

func newListCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the languages in the languages file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := config.Load(root.file)
			if err != nil {
				return err
			}
			return report.Languages(root.stdout, root.format, m)
		},
	}
}
