package repository

import (
	"context"

	model "auctions/internal/models"
)

//go:generate mockgen -destination=mock_repository.go -package=repository auctions/internal/repository AuctionDB,Querier

// AuctionDB defines the transactional storage interface for the auction system.
// Every service operation runs inside exactly one View or Update call.
type AuctionDB interface {
	// View runs fn inside a read-only transaction
	View(ctx context.Context, fn func(Querier) error) error
	// Update runs fn inside a read-write transaction; any error rolls back all writes made by fn
	Update(ctx context.Context, fn func(Querier) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Querier is the set of reads and writes available inside a transaction
type Querier interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)

	// FindOrCreateCategory returns the category with exactly this name, creating it when absent
	FindOrCreateCategory(ctx context.Context, name string) (model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateListing(ctx context.Context, listing *model.Listing) error
	GetListing(ctx context.Context, id int64) (model.Listing, error)
	// GetListingForUpdate reads a listing and holds a write lock on it until the transaction ends
	GetListingForUpdate(ctx context.Context, id int64) (model.Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error)
	CloseListing(ctx context.Context, id int64, winnerID *int64) error

	CreateBid(ctx context.Context, bid *model.Bid) error
	// GetHighestBid returns the maximum-amount bid; ties go to the earliest bid
	GetHighestBid(ctx context.Context, listingID int64) (model.Bid, error)
	GetBidsByListing(ctx context.Context, listingID int64) ([]model.Bid, error)
	CurrentPrice(ctx context.Context, listingID int64) (model.Money, error)

	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentsByListing(ctx context.Context, listingID int64) ([]model.Comment, error)

	// FindOrCreateWatchlist returns the user's watchlist, creating it on first use
	FindOrCreateWatchlist(ctx context.Context, userID int64) (model.Watchlist, error)
	// FindWatchlist never creates; it fails with ErrNotFound when the user has no watchlist yet
	FindWatchlist(ctx context.Context, userID int64) (model.Watchlist, error)
	WatchlistContains(ctx context.Context, watchlistID, listingID int64) (bool, error)
	AddToWatchlist(ctx context.Context, watchlistID, listingID int64) error
	RemoveFromWatchlist(ctx context.Context, watchlistID, listingID int64) error
	GetWatchlistListings(ctx context.Context, userID int64) ([]model.Listing, error)
}

// ListingFilter narrows ListListings. Zero value returns every listing.
type ListingFilter struct {
	ActiveOnly bool
	CategoryID *int64
	CreatorID  *int64
}
