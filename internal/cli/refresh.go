package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mrlokans/readinglist/internal/entrypoint"
)

// RefreshCommand sends pending local changes, then pulls the remote list.
type RefreshCommand struct {
	Timeout time.Duration
}

func NewRefreshCommand() *RefreshCommand {
	return &RefreshCommand{}
}

func (cmd *RefreshCommand) ParseFlags(args []string) error {
	fs := newFlagSet("refresh", "Sync the local list with the server.")
	fs.DurationVar(&cmd.Timeout, "timeout", 2*time.Minute, "Give up after this long")
	return fs.Parse(args)
}

func (cmd *RefreshCommand) Execute(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	if app.Tokens.CurrentToken() == "" {
		return fmt.Errorf("not logged in")
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()

	resumed, err := app.Engine.ResumePending(ctx)
	if err != nil {
		return fmt.Errorf("failed to resume outbox: %w", err)
	}
	if err := app.Engine.Idle(ctx); err != nil {
		return fmt.Errorf("pending changes not sent: %w", err)
	}
	if err := app.Engine.RefreshAndWait(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	items, err := app.Engine.FetchAllItems()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Refreshed: %d items", len(items))
	if resumed > 0 {
		fmt.Fprintf(out, ", %d local changes sent", resumed)
	}
	fmt.Fprintln(out)
	return nil
}
