// pagesnap renders a web page in a headless browser and saves the rendered
// document.
//
// Usage:
//
//	pagesnap <targetAddress> [<outputDirectory>] [flags]
//	pagesnap raw <targetAddress> [<outputDirectory>] [flags]
//	pagesnap diff <before> <after> [-o report.html]
//	pagesnap fix <snapshot> [-o fixed.html] [--lang en] [--rule name]...
//	pagesnap serve
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/pagesnap/capture"
	"github.com/use-agent/pagesnap/config"
	"github.com/use-agent/pagesnap/models"
)

// version is set at build time via -ldflags.
var version = "dev"

// app carries what every command needs. Tests replace launch and the
// output streams.
type app struct {
	cfg    *config.Config
	launch capture.Launcher
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, &app{
		cfg:    config.Load(),
		launch: capture.LaunchBrowser,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status:
// 0 on success, 1 for every failure.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		newLogger(a.cfg.Log, a.stderr).Error("pagesnap failed", "code", models.CodeOf(err), "error", err)
		return 1
	}
	return 0
}

// initLogger installs a logger writing to w as the slog default.
func initLogger(cfg config.LogConfig, w io.Writer) {
	slog.SetDefault(newLogger(cfg, w))
}

// newLogger builds a slog logger from the LogConfig.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
