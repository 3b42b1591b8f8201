package auction

import (
	"context"
	"errors"
	"fmt"

	"auctions/internal/auctionerrors"
	"auctions/internal/metrics"
	"auctions/internal/models"
	"auctions/internal/repository"
)

// PlaceBid validates and records the actor's bid on an active listing.
// The amount must be strictly greater than the current price; the listing row
// stays locked from the price check until the bid is written.
func (s *Service) PlaceBid(ctx context.Context, actor models.Actor, listingID int64, rawAmount string) (models.Bid, error) {
	if err := requireActor(actor); err != nil {
		metrics.BidsRejectedTotal.WithLabelValues(metrics.ReasonUnauthenticated).Inc()
		return models.Bid{}, err
	}

	amount, err := parseAmount("amount", rawAmount, 1)
	if err != nil {
		metrics.BidsRejectedTotal.WithLabelValues(metrics.ReasonInvalidAmount).Inc()
		return models.Bid{}, err
	}

	var bid models.Bid
	err = s.repo.Update(ctx, func(q repository.Querier) error {
		listing, err := q.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.Active {
			return fmt.Errorf("%w - auction is closed", auctionerrors.ErrInvalidState)
		}
		if amount <= listing.CurrentPrice {
			return fmt.Errorf("%w - current price is %s", auctionerrors.ErrBidTooLow, listing.CurrentPrice)
		}

		bid = models.Bid{
			ListingID:  listingID,
			BidderID:   actor.UserID,
			BidderName: actor.Username,
			Amount:     amount,
			CreatedAt:  s.now(),
		}
		return q.CreateBid(ctx, &bid)
	})
	if err != nil {
		metrics.BidsRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return models.Bid{}, fmt.Errorf("service: failed to record bid on listing %d by user %d: %w", listingID, actor.UserID, err)
	}

	metrics.BidsAcceptedTotal.Inc()
	return bid, nil
}

// ListBids returns the bid history of a listing, newest first
func (s *Service) ListBids(ctx context.Context, listingID int64) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.repo.View(ctx, func(q repository.Querier) error {
		if _, err := q.GetListing(ctx, listingID); err != nil {
			return err
		}
		var err error
		bids, err = q.GetBidsByListing(ctx, listingID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for listing %d: %w", listingID, err)
	}
	return bids, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return metrics.ReasonTooLow
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return metrics.ReasonClosed
	case errors.Is(err, auctionerrors.ErrNotFound):
		return metrics.ReasonNotFound
	default:
		return "error"
	}
}
