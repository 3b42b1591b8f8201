package models

import "time"

// Actor is the identity on whose behalf an operation runs. The zero value is anonymous.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Authenticated reports whether the actor carries a user identity
func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

// User represents a registered participant
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Category groups listings by name
type Category struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	ListingCount int    `db:"listing_count" json:"listing_count"`
}

// Listing represents an auction listing. CurrentPrice is derived on read.
type Listing struct {
	ID           int64     `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	StartingBid  Money     `db:"starting_bid" json:"starting_bid"`
	CurrentPrice Money     `db:"current_price" json:"current_price"`
	ImageURL     string    `db:"image_url" json:"image_url,omitempty"`
	CategoryID   *int64    `db:"category_id" json:"category_id,omitempty"`
	CategoryName *string   `db:"category_name" json:"category,omitempty"`
	CreatorID    int64     `db:"creator_id" json:"creator_id"`
	CreatorName  string    `db:"creator_name" json:"creator"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	Active       bool      `db:"active" json:"active"`
	WinnerID     *int64    `db:"winner_id" json:"winner_id,omitempty"`
	WinnerName   *string   `db:"winner_name" json:"winner,omitempty"`
}

// Bid represents a user's bid on a listing. Bids are never mutated.
type Bid struct {
	ID         int64     `db:"id" json:"id"`
	ListingID  int64     `db:"listing_id" json:"listing_id"`
	BidderID   int64     `db:"bidder_id" json:"bidder_id"`
	BidderName string    `db:"bidder_name" json:"bidder"`
	Amount     Money     `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Comment is free text attached to a listing
type Comment struct {
	ID            int64     `db:"id" json:"id"`
	ListingID     int64     `db:"listing_id" json:"listing_id"`
	CommenterID   int64     `db:"commenter_id" json:"commenter_id"`
	CommenterName string    `db:"commenter_name" json:"commenter"`
	Text          string    `db:"text" json:"text"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Watchlist is the per-user set of watched listings
type Watchlist struct {
	ID     int64 `db:"id" json:"id"`
	UserID int64 `db:"user_id" json:"user_id"`
}
