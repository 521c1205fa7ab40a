package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/use-agent/pagesnap/diff"
	"github.com/use-agent/pagesnap/snapshot"
)

func newDiffCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Compare two snapshots and write an annotated report page",
		Long: "diff escapes both snapshots into source text, marks removed runs in red\n" +
			"and added runs in green, and writes a standalone HTML page. Without -o\n" +
			"the page goes to stdout.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := snapshot.NewWriter(afero.NewOsFs())
			before, err := store.Read(args[0])
			if err != nil {
				return err
			}
			after, err := store.Read(args[1])
			if err != nil {
				return err
			}

			report := diff.Compare(before, after)
			slog.Info("snapshots compared",
				"deletions", report.Deletions,
				"insertions", report.Insertions,
				"contentDistance", report.ContentDistance,
				"structuralDistance", report.StructuralDistance,
			)

			var page bytes.Buffer
			if err := diff.WritePage(&page, report, filepath.Base(args[0]), filepath.Base(args[1])); err != nil {
				return err
			}
			if output == "" {
				_, err := a.stdout.Write(page.Bytes())
				return err
			}
			if err := store.Write(output, page.String()); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "report saved: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report page to this file")
	return cmd
}
