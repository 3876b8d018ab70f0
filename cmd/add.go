package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/util"
)

type addOptions struct {
	name        string
	git         string
	hash        string
	credentials string
	dryRun      bool
}

func newAddCommand(root *rootOptions) *cobra.Command {
	opts := &addOptions{}

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a new tree-sitter grammar to the languages file",
		Long: `Add a new tree-sitter grammar to the languages file and clone it.

An existing language of the same name is updated in place: its pinned hash is
replaced (or cleared, without --hash) and every other key is kept.`,
		Example: `  # track the default branch
  tree-sitter-grammars add --name rust --git https://github.com/tree-sitter/tree-sitter-rust.git

  # pin a commit
  tree-sitter-grammars add -n ocaml -g https://github.com/tree-sitter/tree-sitter-ocaml.git --hash 1f2b0c6`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := opts.validate(c.Flags()); err != nil {
				return err
			}

			l := &config.Language{Name: opts.name, Git: opts.git}
			if c.Flags().Changed("hash") {
				l.Hash = util.Ptr(opts.hash)
			}
			if c.Flags().Changed("credentials") {
				l.Credentials = util.Ptr(opts.credentials)
			}

			if opts.dryRun {
				diff, err := config.Preview(root.file, l)
				if err != nil {
					return err
				}
				fmt.Fprint(root.stdout, diff)
				return nil
			}

			ctx, cancel := root.withTimeout(c.Context())
			defer cancel()

			r, err := root.service().Register(ctx, l)
			if err != nil {
				return err
			}

			return root.finish(r)
		},
	}

	opts.addFlags(c.Flags())
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("git")

	return c
}

// validate rejects flags that were given an empty value. Required flags only
// need to be present, so --git "" gets past cobra.
func (opts *addOptions) validate(flags *pflag.FlagSet) error {
	for _, f := range []struct{ name, value string }{
		{"name", opts.name},
		{"git", opts.git},
		{"hash", opts.hash},
		{"credentials", opts.credentials},
	} {
		if flags.Changed(f.name) && f.value == "" {
			return fmt.Errorf("--%s must not be empty", f.name)
		}
	}
	return nil
}

func (opts *addOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&opts.name, "name", "n", "", "name of the language being added, e.g. 'rust'")
	flags.StringVarP(&opts.git, "git", "g", "", "URL to the tree-sitter grammar, e.g. 'git@github.com:tree-sitter/tree-sitter-rust.git'")
	flags.StringVar(&opts.hash, "hash", "", "git hash to check out from the grammar repository")
	flags.StringVar(&opts.credentials, "credentials", "", "name of the secret used to clone the grammar repository")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the change to the languages file without writing it or cloning")
}
