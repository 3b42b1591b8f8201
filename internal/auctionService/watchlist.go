package auction

import (
	"context"
	"fmt"

	"auctions/internal/metrics"
	"auctions/internal/models"
	"auctions/internal/repository"
)

// ToggleWatchlist flips membership of the listing in the actor's watchlist and
// returns the new membership. The watchlist is created on first use.
func (s *Service) ToggleWatchlist(ctx context.Context, actor models.Actor, listingID int64) (bool, error) {
	if err := requireActor(actor); err != nil {
		return false, err
	}

	var watching bool
	err := s.repo.Update(ctx, func(q repository.Querier) error {
		if _, err := q.GetListing(ctx, listingID); err != nil {
			return err
		}
		watchlist, err := q.FindOrCreateWatchlist(ctx, actor.UserID)
		if err != nil {
			return err
		}
		in, err := q.WatchlistContains(ctx, watchlist.ID, listingID)
		if err != nil {
			return err
		}
		if in {
			watching = false
			return q.RemoveFromWatchlist(ctx, watchlist.ID, listingID)
		}
		watching = true
		return q.AddToWatchlist(ctx, watchlist.ID, listingID)
	})
	if err != nil {
		return false, fmt.Errorf("service: failed to toggle listing %d in watchlist of user %d: %w", listingID, actor.UserID, err)
	}

	action := "removed"
	if watching {
		action = "added"
	}
	metrics.WatchlistTogglesTotal.WithLabelValues(action).Inc()
	return watching, nil
}

// Watchlist returns the listings the actor watches, creating the watchlist on first use
func (s *Service) Watchlist(ctx context.Context, actor models.Actor) ([]models.Listing, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var listings []models.Listing
	err := s.repo.Update(ctx, func(q repository.Querier) error {
		if _, err := q.FindOrCreateWatchlist(ctx, actor.UserID); err != nil {
			return err
		}
		var err error
		listings, err = q.GetWatchlistListings(ctx, actor.UserID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to get watchlist of user %d: %w", actor.UserID, err)
	}
	return listings, nil
}
