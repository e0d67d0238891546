// Package cli holds the one-shot subcommands. Each opens the same engine the
// server uses, does its work and waits for the remote side before exiting.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/readinglist/internal/config"
	"github.com/mrlokans/readinglist/internal/entrypoint"
)

// DefaultWait bounds how long a command waits for remote operations.
const DefaultWait = 30 * time.Second

// Command is a subcommand that runs against an open App.
type Command interface {
	ParseFlags(args []string) error
	Execute(ctx context.Context, app *entrypoint.App, out io.Writer) error
}

// Run parses args, opens the app from the environment and executes cmd.
func Run(cmd Command, args []string) error {
	if err := cmd.ParseFlags(args); err != nil {
		return err
	}

	app, err := entrypoint.Open(config.NewConfig())
	if err != nil {
		return err
	}

	ctx := context.Background()
	runErr := cmd.Execute(ctx, app, os.Stdout)

	closeCtx, cancel := context.WithTimeout(ctx, DefaultWait)
	defer cancel()
	if err := app.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// waitRemote gives dispatched operations up to d to settle. A timeout is not
// an error: whatever did not finish stays in the outbox.
func waitRemote(ctx context.Context, app *entrypoint.App, d time.Duration, out io.Writer) {
	if app.Tokens.CurrentToken() == "" {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	if err := app.Engine.Idle(waitCtx); err != nil {
		fmt.Fprintf(out, "Remote sync still running after %v; it will resume on next start.\n", d)
	}
}

func newFlagSet(name, summary string, examples ...string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s [options]\n\n", os.Args[0], name)
		fmt.Fprintf(os.Stderr, "%s\n\n", summary)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		if len(examples) > 0 {
			fmt.Fprintf(os.Stderr, "\nExamples:\n")
			for _, e := range examples {
				fmt.Fprintf(os.Stderr, "  %s %s %s\n", os.Args[0], name, e)
			}
		}
	}
	return fs
}
