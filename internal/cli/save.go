package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mrlokans/readinglist/internal/entrypoint"
)

// SaveCommand adds a URL to the list. It works offline: the item is saved
// locally and sent to the server when a token is available.
type SaveCommand struct {
	URL  string
	Wait time.Duration
}

func NewSaveCommand() *SaveCommand {
	return &SaveCommand{}
}

func (cmd *SaveCommand) ParseFlags(args []string) error {
	fs := newFlagSet("save", "Save a URL to the reading list.",
		"-url https://example.com/article")
	fs.StringVar(&cmd.URL, "url", "", "URL to save (required)")
	fs.DurationVar(&cmd.Wait, "wait", DefaultWait, "How long to wait for the server")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.URL == "" && fs.NArg() > 0 {
		cmd.URL = fs.Arg(0)
	}
	if cmd.URL == "" {
		fs.Usage()
		return fmt.Errorf("url is required")
	}
	return nil
}

func (cmd *SaveCommand) Execute(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	item, err := app.Engine.Save(cmd.URL)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s (%s)\n", item.URL, item.ID)

	if app.Tokens.CurrentToken() == "" {
		fmt.Fprintln(out, "Not logged in: kept locally, it will be sent after 'login'.")
		return nil
	}
	waitRemote(ctx, app, cmd.Wait, out)
	return nil
}
