package services

import (
	"context"
	"fmt"

	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/remote"
	"github.com/mrlokans/readinglist/internal/tokenstore"
)

const defaultArchivePageSize = 30

type RemoteArchiveService struct {
	gateway  remote.Gateway
	tokens   tokenstore.Provider
	pageSize int
}

func NewRemoteArchiveService(gateway remote.Gateway, tokens tokenstore.Provider, pageSize int) *RemoteArchiveService {
	if pageSize <= 0 {
		pageSize = defaultArchivePageSize
	}
	return &RemoteArchiveService{gateway: gateway, tokens: tokens, pageSize: pageSize}
}

func (s *RemoteArchiveService) Fetch(ctx context.Context, cursor string) (*ArchivePage, error) {
	token, err := requireToken(s.tokens)
	if err != nil {
		return nil, err
	}
	page, err := s.gateway.FetchArchive(ctx, remote.ArchiveRequest{
		Token:    token,
		Cursor:   cursor,
		PageSize: s.pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch archive: %w", err)
	}
	return &ArchivePage{Items: page.Items, NextCursor: page.NextCursor}, nil
}

func (s *RemoteArchiveService) Favorite(ctx context.Context, item entities.ArchivedItem) error {
	return s.mutate(ctx, remote.ArchiveFavorite, item)
}

func (s *RemoteArchiveService) Unfavorite(ctx context.Context, item entities.ArchivedItem) error {
	return s.mutate(ctx, remote.ArchiveUnfavorite, item)
}

func (s *RemoteArchiveService) Delete(ctx context.Context, item entities.ArchivedItem) error {
	return s.mutate(ctx, remote.ArchiveDelete, item)
}

// ReAdd moves the item back into the user's list on the server. The local
// store only sees it after the next refresh.
func (s *RemoteArchiveService) ReAdd(ctx context.Context, item entities.ArchivedItem) error {
	return s.mutate(ctx, remote.ArchiveReAdd, item)
}

func (s *RemoteArchiveService) mutate(ctx context.Context, action remote.ArchiveAction, item entities.ArchivedItem) error {
	token, err := requireToken(s.tokens)
	if err != nil {
		return err
	}
	err = s.gateway.MutateArchived(ctx, remote.ArchiveMutationRequest{
		Token:    token,
		Action:   action,
		RemoteID: item.RemoteID,
	})
	if err != nil {
		return fmt.Errorf("%s archived item %s: %w", action, item.RemoteID, err)
	}
	return nil
}

func requireToken(tokens tokenstore.Provider) (string, error) {
	token := tokens.CurrentToken()
	if token == "" {
		return "", remote.ErrUnauthorized
	}
	return token, nil
}
