package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mrlokans/readinglist/internal/entrypoint"
)

// OutboxCommand prints local changes the server has not confirmed.
type OutboxCommand struct{}

func NewOutboxCommand() *OutboxCommand {
	return &OutboxCommand{}
}

func (cmd *OutboxCommand) ParseFlags(args []string) error {
	return newFlagSet("outbox", "List local changes not yet confirmed by the server.").Parse(args)
}

func (cmd *OutboxCommand) Execute(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	entries, err := app.Engine.Outbox()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "Outbox is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tKIND\tSTATUS\tATTEMPTS\tURL\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", e.Seq, e.Kind, e.Status, e.Attempts, e.URL, e.LastError)
	}
	return tw.Flush()
}
