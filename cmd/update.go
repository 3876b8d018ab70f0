package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/service"
)

type updateOptions struct {
	name  string
	all   bool
	match string
}

func newUpdateCommand(root *rootOptions) *cobra.Command {
	opts := &updateOptions{}

	c := &cobra.Command{
		Use:   "update",
		Short: "Update the tree-sitter grammar(s)",
		Long: `Update the tree-sitter grammar(s) by replacing their working copies with
fresh clones. Pinned languages are checked out at their hash.

With --all or --match, every selected grammar is synchronized even when some
fail; the command then exits with status 2 and names the failed languages.`,
		Example: `  tree-sitter-grammars update --name rust
  tree-sitter-grammars update --all -j 4
  tree-sitter-grammars update --match 'c*' --format json`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			var sel service.Selector
			var target string

			switch {
			case c.Flags().Changed("name"):
				sel, target = service.ByName(opts.name), opts.name
			case opts.all:
				sel = service.All()
			case c.Flags().Changed("match"):
				var err error
				if sel, err = service.Match(opts.match); err != nil {
					return err
				}
				target = opts.match
			default:
				return service.ErrNoSelector
			}

			ctx, cancel := root.withTimeout(c.Context())
			defer cancel()

			r, err := root.service().Run(ctx, sel)
			if err != nil {
				return root.notFound(err, target)
			}

			return root.finish(r)
		},
	}

	opts.addFlags(c.Flags())
	c.MarkFlagsMutuallyExclusive("name", "all", "match")

	return c
}

func (opts *updateOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&opts.name, "name", "n", "", "name of the language grammar to update, e.g. 'rust'")
	flags.BoolVar(&opts.all, "all", false, "update all grammars listed in the languages file")
	flags.StringVar(&opts.match, "match", "", "update the grammars whose name matches this glob, e.g. 'c*'")
}
