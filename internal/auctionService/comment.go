package auction

import (
	"context"
	"fmt"
	"strings"

	"auctions/internal/auctionerrors"
	"auctions/internal/metrics"
	"auctions/internal/models"
	"auctions/internal/repository"
)

// AddComment appends the actor's comment to a listing. Closed listings still accept comments.
func (s *Service) AddComment(ctx context.Context, actor models.Actor, listingID int64, text string) (models.Comment, error) {
	if err := requireActor(actor); err != nil {
		return models.Comment{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, fmt.Errorf("service: %w - comment text is required", auctionerrors.ErrValidation)
	}

	var comment models.Comment
	err := s.repo.Update(ctx, func(q repository.Querier) error {
		if _, err := q.GetListing(ctx, listingID); err != nil {
			return err
		}
		comment = models.Comment{
			ListingID:     listingID,
			CommenterID:   actor.UserID,
			CommenterName: actor.Username,
			Text:          text,
			CreatedAt:     s.now(),
		}
		return q.CreateComment(ctx, &comment)
	})
	if err != nil {
		return models.Comment{}, fmt.Errorf("service: failed to add comment on listing %d by user %d: %w", listingID, actor.UserID, err)
	}

	metrics.CommentsCreatedTotal.Inc()
	return comment, nil
}
