package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mrlokans/readinglist/internal/entrypoint"
)

// LoginCommand stores an access token. Changes made while logged out are
// sent right away.
type LoginCommand struct {
	Token string
	Wait  time.Duration
}

func NewLoginCommand() *LoginCommand {
	return &LoginCommand{}
}

func (cmd *LoginCommand) ParseFlags(args []string) error {
	fs := newFlagSet("login", "Store the access token used to talk to the server.",
		"-token abc123", "(reads READINGLIST_TOKEN when -token is omitted)")
	fs.StringVar(&cmd.Token, "token", "", "Access token")
	fs.DurationVar(&cmd.Wait, "wait", DefaultWait, "How long to wait for pending changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Token == "" {
		cmd.Token = os.Getenv("READINGLIST_TOKEN")
	}
	cmd.Token = strings.TrimSpace(cmd.Token)
	if cmd.Token == "" {
		fs.Usage()
		return fmt.Errorf("token is required")
	}
	return nil
}

func (cmd *LoginCommand) Execute(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	if err := app.TokenStore.Save(cmd.Token); err != nil {
		return err
	}
	fmt.Fprintln(out, "Logged in.")
	if app.Config.Token.AccessToken != "" {
		fmt.Fprintln(out, "Note: ACCESS_TOKEN is set and takes precedence over the stored token.")
	}

	n, err := app.Engine.ResumePending(ctx)
	if err != nil {
		return fmt.Errorf("failed to resume outbox: %w", err)
	}
	if n > 0 {
		fmt.Fprintf(out, "Sending %d pending changes...\n", n)
		waitRemote(ctx, app, cmd.Wait, out)
	}
	return nil
}

// LogoutCommand removes the stored token. Local data is kept.
type LogoutCommand struct{}

func NewLogoutCommand() *LogoutCommand {
	return &LogoutCommand{}
}

func (cmd *LogoutCommand) ParseFlags(args []string) error {
	return newFlagSet("logout", "Forget the stored access token.").Parse(args)
}

func (cmd *LogoutCommand) Execute(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	if err := app.TokenStore.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}
