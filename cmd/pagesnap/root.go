package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/use-agent/pagesnap/capture"
	"github.com/use-agent/pagesnap/models"
	"github.com/use-agent/pagesnap/snapshot"
)

type captureFlags struct {
	name     string
	format   string
	selector string
	exclude  []string
	wait     string
	waitFor  string
	headers  []string
	block    []string
	stealth  bool
	blockAds bool
	parents  bool
	fix      bool
	lang     string
	timeout  durationFlag
}

func newRootCmd(a *app) *cobra.Command {
	f := &captureFlags{
		name:    a.cfg.Capture.FileName,
		wait:    a.cfg.Capture.WaitStrategy,
		block:   a.cfg.Capture.BlockedResourceTypes,
		parents: a.cfg.Capture.CreateDirs,
		timeout: durationFlag(a.cfg.Capture.NavigationTimeout),
	}

	cmd := &cobra.Command{
		Use:   "pagesnap <targetAddress> [<outputDirectory>]",
		Short: "Save the rendered DOM of a web page",
		Long: "pagesnap launches an isolated headless browser, loads the target page,\n" +
			"waits for it to finish loading and writes the rendered document to\n" +
			"<outputDirectory>/output.html. Run it twice and use 'pagesnap diff'\n" +
			"to compare the two snapshots.",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initLogger(a.cfg.Log, a.stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, a, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", f.name, "snapshot file name")
	fl.StringVar(&f.format, "format", models.FormatHTML, "output format: html, markdown or text")
	fl.StringVar(&f.selector, "selector", "", "keep only elements matching this CSS selector")
	fl.StringArrayVar(&f.exclude, "exclude", nil, "remove elements matching this CSS selector (repeatable)")
	fl.StringVar(&f.wait, "wait", f.wait, "load strategy: load, dom-stable or request-idle")
	fl.StringVar(&f.waitFor, "wait-for", "", "CSS selector that must match before the DOM is captured")
	fl.Var(&f.timeout, "timeout", "navigation timeout")
	fl.BoolVar(&f.stealth, "stealth", false, "mask automation markers")
	fl.StringArrayVar(&f.headers, "header", nil, "extra request header as key=value (repeatable)")
	fl.StringSliceVar(&f.block, "block", f.block, "resource types to block, e.g. Image,Font,Media")
	fl.BoolVar(&f.blockAds, "block-ads", false, "block well-known ad and tracking domains")
	fl.BoolVar(&f.parents, "parents", f.parents, "create the output directory if missing")
	fl.BoolVar(&f.fix, "fix", false, "also write an accessibility-fixed copy as <name>.fixed.html")
	fl.StringVar(&f.lang, "lang", "", "language tag set on the fixed copy when the page has none")

	cmd.AddCommand(newRawCmd(a))
	cmd.AddCommand(newDiffCmd(a))
	cmd.AddCommand(newFixCmd(a))
	cmd.AddCommand(newServeCmd(a))
	return cmd
}

func runCapture(cmd *cobra.Command, a *app, f *captureFlags, args []string) error {
	headers, err := parseHeaders(f.headers)
	if err != nil {
		return err
	}

	req := &models.CaptureRequest{
		URL:      args[0],
		Name:     f.name,
		Format:   f.format,
		Selector: f.selector,
		Exclude:  f.exclude,
		Wait:     f.wait,
		WaitFor:  f.waitFor,
		Stealth:  f.stealth,
		Headers:  headers,
		BlockAds: f.blockAds,
		Fix:      f.fix,
		Lang:     f.lang,
	}
	if len(args) > 1 {
		req.OutputDir = args[1]
	}

	captureCfg := a.cfg.Capture
	captureCfg.NavigationTimeout = f.timeout.Duration()
	captureCfg.BlockedResourceTypes = f.block

	writer := snapshot.NewWriter(afero.NewOsFs(), snapshot.WithCreateDirs(f.parents))
	pipeline := capture.NewPipeline(a.cfg.Browser, captureCfg, writer, capture.WithLauncher(a.launch))

	res, err := pipeline.Capture(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "snapshot saved: %s\n", res.Path)
	if res.FixedPath != "" {
		fmt.Fprintf(a.stdout, "fixed snapshot saved: %s (%d fixes)\n", res.FixedPath, len(res.Findings))
	}
	return nil
}
