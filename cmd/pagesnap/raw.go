package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/use-agent/pagesnap/fetch"
	"github.com/use-agent/pagesnap/snapshot"
)

func newRawCmd(a *app) *cobra.Command {
	var (
		name    = fetch.DefaultFileName
		headers []string
		parents = a.cfg.Capture.CreateDirs
		timeout = durationFlag(a.cfg.Capture.NavigationTimeout)
	)

	cmd := &cobra.Command{
		Use:   "raw <targetAddress> [<outputDirectory>]",
		Short: "Save the page as served, without rendering it",
		Long: "raw fetches the target with a single GET and writes the transport bytes\n" +
			"to <outputDirectory>/raw.html. Diff it against a rendered capture to see\n" +
			"what client-side scripts changed.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			dir := ""
			if len(args) > 1 {
				dir = args[1]
			}
			path, err := snapshot.Path(dir, name)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout.Duration())
			defer cancel()

			client := fetch.NewClient(a.cfg.Browser.Proxy)
			defer client.CloseIdleConnections()
			resp, err := client.Fetch(ctx, args[0], hdrs)
			if err != nil {
				return err
			}
			if resp.NeedsRendering() {
				slog.Warn("served document looks like a script shell, a rendered capture will differ",
					"url", args[0],
				)
			}

			writer := snapshot.NewWriter(afero.NewOsFs(), snapshot.WithCreateDirs(parents))
			if err := writer.Write(path, resp.Body); err != nil {
				return err
			}
			slog.Info("raw snapshot written",
				"url", args[0],
				"status", resp.StatusCode,
				"bytes", len(resp.Body),
				"path", path,
			)
			fmt.Fprintf(a.stdout, "snapshot saved: %s\n", path)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&name, "name", name, "snapshot file name")
	fl.StringArrayVar(&headers, "header", nil, "extra request header as key=value (repeatable)")
	fl.BoolVar(&parents, "parents", parents, "create the output directory if missing")
	fl.Var(&timeout, "timeout", "request timeout")
	return cmd
}
