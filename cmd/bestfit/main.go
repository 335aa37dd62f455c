// Command bestfit replays allocation workloads and prints heap layouts.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"
)

func newApp(stdout io.Writer, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "bestfit",
		Usage:     "best-fit arena allocator playground",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     []cli.Flag{newVerboseFlag()},
		Commands: []*cli.Command{
			newReplayCommand(),
			newInspectCommand(),
			newDumpConfigCommand(),
		},
	}
}

func newVerboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    verboseFlag,
		Aliases: []string{"v"},
		Usage:   "log every allocation step",
	}
}

func newLogger(ctx *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	// --verbose may be given before or after the subcommand name.
	for _, c := range ctx.Lineage() {
		if c.Bool(verboseFlag) {
			level = slog.LevelDebug
			break
		}
	}
	return slog.New(slog.NewTextHandler(ctx.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
