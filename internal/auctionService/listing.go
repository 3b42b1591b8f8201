package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"auctions/internal/auctionerrors"
	"auctions/internal/metrics"
	"auctions/internal/models"
	"auctions/internal/repository"
	"auctions/utils"
)

// CreateListingInput is the raw listing form
type CreateListingInput struct {
	Title       string `json:"title" form:"title" validate:"required,max=64"`
	Description string `json:"description" form:"description" validate:"required"`
	StartingBid string `json:"starting_bid" form:"starting_bid" validate:"required"`
	ImageURL    string `json:"image_url" form:"image_url" validate:"omitempty,url,max=200"`
	Category    string `json:"category" form:"category" validate:"omitempty,max=64"`
}

func (in CreateListingInput) trimmed() CreateListingInput {
	return CreateListingInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		StartingBid: strings.TrimSpace(in.StartingBid),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Category:    strings.TrimSpace(in.Category),
	}
}

// ListingDetail is a listing as seen by a particular actor
type ListingDetail struct {
	Listing     models.Listing   `json:"listing"`
	Comments    []models.Comment `json:"comments"`
	BidCount    int              `json:"bid_count"`
	InWatchlist bool             `json:"in_watchlist"`
	IsOwner     bool             `json:"is_owner"`
	IsWinner    bool             `json:"is_winner"`
}

// CategoryListings is a category with its active listings
type CategoryListings struct {
	Category models.Category  `json:"category"`
	Listings []models.Listing `json:"listings"`
}

// CreateListing validates the input and stores a new active listing owned by the actor.
// A named category is found or created by exact name.
func (s *Service) CreateListing(ctx context.Context, actor models.Actor, input CreateListingInput) (models.Listing, error) {
	if err := requireActor(actor); err != nil {
		return models.Listing{}, err
	}

	in := input.trimmed()
	if err := s.validateStruct(in); err != nil {
		return models.Listing{}, err
	}
	startingBid, err := parseAmount("starting_bid", in.StartingBid, 0)
	if err != nil {
		return models.Listing{}, err
	}

	var created models.Listing
	err = s.repo.Update(ctx, func(q repository.Querier) error {
		listing := models.Listing{
			Title:       in.Title,
			Description: in.Description,
			StartingBid: startingBid,
			ImageURL:    in.ImageURL,
			CreatorID:   actor.UserID,
			CreatedAt:   s.now(),
			Active:      true,
		}
		if in.Category != "" {
			category, err := q.FindOrCreateCategory(ctx, in.Category)
			if err != nil {
				return err
			}
			listing.CategoryID = &category.ID
		}
		if err := q.CreateListing(ctx, &listing); err != nil {
			return err
		}

		var err error
		created, err = q.GetListing(ctx, listing.ID)
		return err
	})
	if err != nil {
		return models.Listing{}, fmt.Errorf("service: failed to create listing %q for user %d: %w", in.Title, actor.UserID, err)
	}

	metrics.ListingsCreatedTotal.Inc()
	utils.Info("Listing created", map[string]any{
		"listingID": created.ID,
		"creatorID": actor.UserID,
		"category":  in.Category,
	})
	return created, nil
}

// CurrentPrice returns the highest bid on the listing, or its starting bid when none exist
func (s *Service) CurrentPrice(ctx context.Context, listingID int64) (models.Money, error) {
	var price models.Money
	err := s.repo.View(ctx, func(q repository.Querier) error {
		var err error
		price, err = q.CurrentPrice(ctx, listingID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("service: failed to get current price of listing %d: %w", listingID, err)
	}
	return price, nil
}

// GetListingDetail loads a listing with its comments and the actor's relation to it.
// It never creates a watchlist.
func (s *Service) GetListingDetail(ctx context.Context, actor models.Actor, listingID int64) (ListingDetail, error) {
	var detail ListingDetail
	err := s.repo.View(ctx, func(q repository.Querier) error {
		listing, err := q.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		comments, err := q.GetCommentsByListing(ctx, listingID)
		if err != nil {
			return err
		}
		bids, err := q.GetBidsByListing(ctx, listingID)
		if err != nil {
			return err
		}

		detail = ListingDetail{
			Listing:  listing,
			Comments: comments,
			BidCount: len(bids),
		}
		if !actor.Authenticated() {
			return nil
		}

		detail.IsOwner = listing.CreatorID == actor.UserID
		detail.IsWinner = listing.WinnerID != nil && *listing.WinnerID == actor.UserID

		watchlist, err := q.FindWatchlist(ctx, actor.UserID)
		if errors.Is(err, auctionerrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		detail.InWatchlist, err = q.WatchlistContains(ctx, watchlist.ID, listingID)
		return err
	})
	if err != nil {
		return ListingDetail{}, fmt.Errorf("service: failed to get listing %d: %w", listingID, err)
	}
	return detail, nil
}

// ListActiveListings returns every open listing, newest first
func (s *Service) ListActiveListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.repo.View(ctx, func(q repository.Querier) error {
		var err error
		listings, err = q.ListListings(ctx, repository.ListingFilter{ActiveOnly: true})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active listings: %w", err)
	}
	return listings, nil
}

// ListCategories returns all categories with their active listing counts
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.repo.View(ctx, func(q repository.Querier) error {
		var err error
		categories, err = q.ListCategories(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

// CategoryListings returns a category with its active listings
func (s *Service) CategoryListings(ctx context.Context, categoryID int64) (CategoryListings, error) {
	var out CategoryListings
	err := s.repo.View(ctx, func(q repository.Querier) error {
		category, err := q.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		listings, err := q.ListListings(ctx, repository.ListingFilter{ActiveOnly: true, CategoryID: &category.ID})
		if err != nil {
			return err
		}
		out = CategoryListings{Category: category, Listings: listings}
		return nil
	})
	if err != nil {
		return CategoryListings{}, fmt.Errorf("service: failed to get category %d: %w", categoryID, err)
	}
	return out, nil
}

// CloseAuction ends an active auction on behalf of its creator and assigns the highest bidder as winner.
// Equal top bids go to the earliest one.
func (s *Service) CloseAuction(ctx context.Context, actor models.Actor, listingID int64) (models.Listing, error) {
	if err := requireActor(actor); err != nil {
		return models.Listing{}, err
	}

	var closed models.Listing
	err := s.repo.Update(ctx, func(q repository.Querier) error {
		listing, err := q.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.CreatorID != actor.UserID {
			return fmt.Errorf("%w - only the creator can close the auction", auctionerrors.ErrAuthorization)
		}
		if !listing.Active {
			return fmt.Errorf("%w - auction already closed", auctionerrors.ErrInvalidState)
		}

		var winnerID *int64
		highest, err := q.GetHighestBid(ctx, listingID)
		switch {
		case err == nil:
			winnerID = &highest.BidderID
		case errors.Is(err, auctionerrors.ErrNoBids):
		default:
			return err
		}

		if err := q.CloseListing(ctx, listingID, winnerID); err != nil {
			return err
		}
		closed, err = q.GetListing(ctx, listingID)
		return err
	})
	if err != nil {
		return models.Listing{}, fmt.Errorf("service: failed to close listing %d for user %d: %w", listingID, actor.UserID, err)
	}

	outcome := "unsold"
	if closed.WinnerID != nil {
		outcome = "sold"
	}
	metrics.AuctionsClosedTotal.WithLabelValues(outcome).Inc()
	utils.Info("Auction closed", map[string]any{
		"listingID": listingID,
		"outcome":   outcome,
		"winnerID":  closed.WinnerID,
	})
	return closed, nil
}
