package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
)

func newSchemaCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema the languages file is validated against",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			bs, err := config.ReflectSchema()
			if err != nil {
				return err
			}
			_, err = root.stdout.Write(append(bs, '\n'))
			return err
		},
	}
}
