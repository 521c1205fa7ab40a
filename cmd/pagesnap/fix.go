package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/use-agent/pagesnap/audit"
	"github.com/use-agent/pagesnap/snapshot"
)

func newFixCmd(a *app) *cobra.Command {
	var (
		output string
		lang   string
		rules  []string
	)

	cmd := &cobra.Command{
		Use:   "fix <snapshot>",
		Short: "Apply accessibility fixes to a saved snapshot",
		Long: "fix repairs what it can without outside services: missing language and\n" +
			"title, image alt text, duplicate ids, unnamed links, buttons and fields,\n" +
			"and similar. Every change is listed on stdout. The fixed document goes\n" +
			"next to the input as <name>.fixed.html unless -o is given, ready for\n" +
			"'pagesnap diff'.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := snapshot.NewWriter(afero.NewOsFs())
			markup, err := store.Read(args[0])
			if err != nil {
				return err
			}

			res, err := audit.Fix(markup, audit.Options{Lang: lang, Rules: rules})
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), audit.FixedName(filepath.Base(args[0])))
			}
			if err := store.Write(output, res.Markup); err != nil {
				return err
			}

			for _, f := range res.Findings {
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", f.Rule, f.Element, f.Action)
			}
			fmt.Fprintf(a.stdout, "fixed snapshot saved: %s\n", output)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&output, "output", "o", "", "write the fixed snapshot to this file")
	fl.StringVar(&lang, "lang", audit.DefaultLang, "language tag for documents without a valid lang")
	fl.StringArrayVar(&rules, "rule", nil, "run only this rule (repeatable)")
	return cmd
}
