package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/entrypoint"
)

// ListCommand prints the local list. It never touches the network.
type ListCommand struct {
	Favorites bool
	Archived  bool
	Limit     int
}

func NewListCommand() *ListCommand {
	return &ListCommand{}
}

func (cmd *ListCommand) ParseFlags(args []string) error {
	fs := newFlagSet("list", "Print saved items, newest first.", "", "-favorites", "-archived -limit 20")
	fs.BoolVar(&cmd.Favorites, "favorites", false, "Only favorites")
	fs.BoolVar(&cmd.Archived, "archived", false, "Include locally archived items")
	fs.IntVar(&cmd.Limit, "limit", 0, "Maximum number of items (0 = all)")
	return fs.Parse(args)
}

func (cmd *ListCommand) Execute(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	items, err := app.Engine.Items(store.Query{
		FavoritesOnly:   cmd.Favorites,
		IncludeArchived: cmd.Archived,
		Limit:           cmd.Limit,
	})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No items.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FLAGS\tTITLE\tURL")
	for _, it := range items {
		flags := ""
		if it.IsFavorite {
			flags += "*"
		}
		if it.IsArchived {
			flags += "a"
		}
		if it.RemoteID == "" {
			flags += "~"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", flags, it.Title(), it.URL)
	}
	return tw.Flush()
}
