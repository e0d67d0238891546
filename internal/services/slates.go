package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/readinglist/internal/entities"
	"github.com/mrlokans/readinglist/internal/remote"
	"github.com/mrlokans/readinglist/internal/tokenstore"
)

const maxParallelSlateFetches = 4

type RemoteSlateService struct {
	gateway remote.Gateway
	tokens  tokenstore.Provider
}

func NewRemoteSlateService(gateway remote.Gateway, tokens tokenstore.Provider) *RemoteSlateService {
	return &RemoteSlateService{gateway: gateway, tokens: tokens}
}

// FetchSlateLineup returns the lineup with every slate's recommendations.
// Slates the lineup lists without recommendations are fetched individually.
func (s *RemoteSlateService) FetchSlateLineup(ctx context.Context, lineupID string) (*entities.SlateLineup, error) {
	token, err := requireToken(s.tokens)
	if err != nil {
		return nil, err
	}
	lineup, err := s.gateway.FetchSlateLineup(ctx, token, lineupID)
	if err != nil {
		return nil, fmt.Errorf("fetch lineup %s: %w", lineupID, err)
	}

	var missing []string
	for _, slate := range lineup.Slates {
		if len(slate.Recommendations) == 0 {
			missing = append(missing, slate.ID)
		}
	}
	if len(missing) == 0 {
		return lineup, nil
	}

	hydrated, err := s.FetchSlates(ctx, missing)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]entities.Slate, len(hydrated))
	for _, slate := range hydrated {
		byID[slate.ID] = slate
	}
	for i, slate := range lineup.Slates {
		if full, ok := byID[slate.ID]; ok {
			lineup.Slates[i] = full
		}
	}
	return lineup, nil
}

func (s *RemoteSlateService) FetchSlate(ctx context.Context, slateID string) (*entities.Slate, error) {
	token, err := requireToken(s.tokens)
	if err != nil {
		return nil, err
	}
	slate, err := s.gateway.FetchSlate(ctx, token, slateID)
	if err != nil {
		return nil, fmt.Errorf("fetch slate %s: %w", slateID, err)
	}
	return slate, nil
}

// FetchSlates fetches slates concurrently and returns them in the order of
// slateIDs. The first failure cancels the rest.
func (s *RemoteSlateService) FetchSlates(ctx context.Context, slateIDs []string) ([]entities.Slate, error) {
	token, err := requireToken(s.tokens)
	if err != nil {
		return nil, err
	}

	slates := make([]entities.Slate, len(slateIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSlateFetches)
	for i, id := range slateIDs {
		g.Go(func() error {
			slate, err := s.gateway.FetchSlate(gctx, token, id)
			if err != nil {
				return fmt.Errorf("fetch slate %s: %w", id, err)
			}
			slates[i] = *slate
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slates, nil
}
