package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readinglist/internal/config"
	"github.com/mrlokans/readinglist/internal/database"
	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/entrypoint"
	"github.com/mrlokans/readinglist/internal/remote/remotetest"
)

func setupApp(t *testing.T, accessToken string) (*entrypoint.App, *remotetest.Gateway) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.Database{Path: filepath.Join(dir, "cli.db"), LogLevel: "silent"},
		Token:    config.Token{AccessToken: accessToken, EncryptionKey: "test-secret"},
		Sync:     config.Sync{Workers: 2},
	}
	db, err := database.Open(cfg.Database.Path, database.Options{LogLevel: "silent"})
	require.NoError(t, err)

	gw := remotetest.New()
	app, err := entrypoint.Assemble(cfg, db, gw)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		app.Close(ctx)
	})
	return app, gw
}

func execute(t *testing.T, app *entrypoint.App, cmd Command, args ...string) (string, error) {
	t.Helper()
	require.NoError(t, cmd.ParseFlags(args))
	var out bytes.Buffer
	err := cmd.Execute(context.Background(), app, &out)
	return out.String(), err
}

func TestSaveCommandFlags(t *testing.T) {
	cmd := NewSaveCommand()
	require.NoError(t, cmd.ParseFlags([]string{"https://example.com/positional"}))
	assert.Equal(t, "https://example.com/positional", cmd.URL)
	assert.Equal(t, DefaultWait, cmd.Wait)

	cmd = NewSaveCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-url", "https://example.com/flag", "-wait", "5s"}))
	assert.Equal(t, "https://example.com/flag", cmd.URL)
	assert.Equal(t, 5*time.Second, cmd.Wait)

	assert.Error(t, NewSaveCommand().ParseFlags(nil))
}

func TestLoginCommandFlags(t *testing.T) {
	t.Setenv("READINGLIST_TOKEN", "")
	assert.Error(t, NewLoginCommand().ParseFlags(nil))

	t.Setenv("READINGLIST_TOKEN", " env-token ")
	cmd := NewLoginCommand()
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, "env-token", cmd.Token)
}

func TestOfflineSaveThenLogin(t *testing.T) {
	app, gw := setupApp(t, "")

	out, err := execute(t, app, NewSaveCommand(), "-url", "https://example.com/offline")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved https://example.com/offline")
	assert.Contains(t, out, "Not logged in")
	assert.Empty(t, gw.Calls())

	out, err = execute(t, app, NewOutboxCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "save")
	assert.Contains(t, out, "https://example.com/offline")

	out, err = execute(t, app, NewLoginCommand(), "-token", "test-token")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in.")
	assert.Contains(t, out, "Sending 1 pending changes")

	calls := gw.CallsTo("SaveItem")
	require.Len(t, calls, 1)
	assert.Equal(t, "test-token", calls[0].Token)

	out, err = execute(t, app, NewOutboxCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Outbox is empty.")

	out, err = execute(t, app, NewLogoutCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.Empty(t, app.Tokens.CurrentToken())
}

func TestSaveCommandWaitsForServer(t *testing.T) {
	app, gw := setupApp(t, "test-token")

	out, err := execute(t, app, NewSaveCommand(), "-url", "https://example.com/online")
	require.NoError(t, err)
	assert.NotContains(t, out, "Not logged in")
	assert.Len(t, gw.CallsTo("SaveItem"), 1)

	item, err := app.Store.FetchSavedItemByURL("https://example.com/online")
	require.NoError(t, err)
	assert.Equal(t, "r-1", item.RemoteID)
}

func TestListCommand(t *testing.T) {
	app, _ := setupApp(t, "")

	out, err := execute(t, app, NewListCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "No items.")

	_, err = execute(t, app, NewSaveCommand(), "https://example.com/a")
	require.NoError(t, err)
	_, err = execute(t, app, NewSaveCommand(), "https://example.com/b")
	require.NoError(t, err)

	item, err := app.Store.FetchSavedItemByURL("https://example.com/b")
	require.NoError(t, err)
	require.NoError(t, app.Engine.Favorite(item))

	out, err = execute(t, app, NewListCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/a")
	assert.Contains(t, out, "https://example.com/b")

	out, err = execute(t, app, NewListCommand(), "-favorites")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/b")
	assert.NotContains(t, out, "https://example.com/a")
}

func TestRefreshCommand(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		app, _ := setupApp(t, "")
		_, err := execute(t, app, NewRefreshCommand())
		assert.ErrorContains(t, err, "not logged in")
	})

	t.Run("pulls the remote list", func(t *testing.T) {
		app, gw := setupApp(t, "test-token")
		gw.AddItem(entities.RemoteSavedItem{
			RemoteID:  "r-remote",
			URL:       "https://example.com/remote",
			Timestamp: time.Now().UTC(),
			Item:      entities.UnmanagedItem{ID: "i-remote", GivenURL: "https://example.com/remote", Title: "Remote"},
		})

		out, err := execute(t, app, NewRefreshCommand(), "-timeout", "5s")
		require.NoError(t, err)
		assert.Contains(t, out, "Refreshed: 1 items")

		item, err := app.Store.FetchSavedItemByRemoteID("r-remote")
		require.NoError(t, err)
		assert.Equal(t, "Remote", item.Title())
	})
}
