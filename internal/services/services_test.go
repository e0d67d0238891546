package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/remote"
	"github.com/mrlokans/readinglist/internal/remote/remotetest"
	"github.com/mrlokans/readinglist/internal/tokenstore"
)

func TestArchiveService(t *testing.T) {
	gw := remotetest.New()
	gw.AddArchived(entities.ArchivedItem{RemoteID: "a-1", URL: "https://example.com/a"})
	svc := NewRemoteArchiveService(gw, tokenstore.Static("test-token"), 0)
	ctx := context.Background()

	page, err := svc.Fetch(ctx, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	item := page.Items[0]

	require.NoError(t, svc.Favorite(ctx, item))
	require.NoError(t, svc.Unfavorite(ctx, item))
	require.NoError(t, svc.ReAdd(ctx, item))

	calls := gw.CallsTo("MutateArchived")
	require.Len(t, calls, 3)
	assert.Equal(t, remote.ArchiveFavorite, calls[0].Action)
	assert.Equal(t, remote.ArchiveUnfavorite, calls[1].Action)
	assert.Equal(t, remote.ArchiveReAdd, calls[2].Action)
	for _, c := range calls {
		assert.Equal(t, "test-token", c.Token)
		assert.Equal(t, "a-1", c.RemoteID)
	}

	_, ok := gw.Item("a-1")
	assert.True(t, ok, "re-added item is back on the server list")

	err = svc.Delete(ctx, item)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestArchiveServiceWithoutToken(t *testing.T) {
	gw := remotetest.New()
	svc := NewRemoteArchiveService(gw, tokenstore.Static(""), 0)

	_, err := svc.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, remote.ErrUnauthorized)
	assert.ErrorIs(t, svc.ReAdd(context.Background(), entities.ArchivedItem{RemoteID: "a-1"}), remote.ErrUnauthorized)
	assert.Empty(t, gw.Calls())
}

func TestSlateService(t *testing.T) {
	gw := remotetest.New()
	gw.AddLineup(entities.SlateLineup{
		ID: "home",
		Slates: []entities.Slate{
			{ID: "s-1", Recommendations: []entities.Recommendation{{ID: "rec-1"}}},
			{ID: "s-2", Name: "Second", Recommendations: []entities.Recommendation{{ID: "rec-2"}, {ID: "rec-3"}}},
		},
	})
	svc := NewRemoteSlateService(gw, tokenstore.Static("test-token"))
	ctx := context.Background()

	lineup, err := svc.FetchSlateLineup(ctx, "home")
	require.NoError(t, err)
	require.Len(t, lineup.Slates, 2)
	assert.Empty(t, gw.CallsTo("FetchSlate"))

	slate, err := svc.FetchSlate(ctx, "s-2")
	require.NoError(t, err)
	assert.Equal(t, "Second", slate.Name)

	slates, err := svc.FetchSlates(ctx, []string{"s-2", "s-1"})
	require.NoError(t, err)
	require.Len(t, slates, 2)
	assert.Equal(t, "s-2", slates[0].ID)
	assert.Equal(t, "s-1", slates[1].ID)

	_, err = svc.FetchSlates(ctx, []string{"s-1", "missing"})
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestSlateServiceHydratesEmptySlates(t *testing.T) {
	gw := remotetest.New()
	gw.AddLineup(entities.SlateLineup{
		ID: "home",
		Slates: []entities.Slate{
			{ID: "s-1", Recommendations: []entities.Recommendation{{ID: "rec-1"}}},
		},
	})
	gw.AddLineup(entities.SlateLineup{
		ID:     "summary",
		Slates: []entities.Slate{{ID: "s-1"}},
	})
	// Registering "summary" replaced the stored s-1; put the full one back.
	gw.AddLineup(entities.SlateLineup{
		ID:     "full",
		Slates: []entities.Slate{{ID: "s-1", Recommendations: []entities.Recommendation{{ID: "rec-1"}}}},
	})

	svc := NewRemoteSlateService(gw, tokenstore.Static("t"))
	lineup, err := svc.FetchSlateLineup(context.Background(), "summary")
	require.NoError(t, err)
	require.Len(t, lineup.Slates, 1)
	require.Len(t, lineup.Slates[0].Recommendations, 1)
	assert.Equal(t, "rec-1", lineup.Slates[0].Recommendations[0].ID)
	assert.Len(t, gw.CallsTo("FetchSlate"), 1)
}
