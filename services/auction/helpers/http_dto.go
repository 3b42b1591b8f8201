package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"auctions/internal/models"
)

// Amount is a decimal amount as submitted by a client. JSON numbers are kept
// verbatim so that no float rounding happens before parsing.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or string: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// Request DTOs
type PlaceBidRequest struct {
	Amount Amount `json:"amount" form:"amount" binding:"required"`
}

type CommentRequest struct {
	Comment string `json:"comment" form:"comment"`
}

type CreateListingRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	StartingBid Amount `json:"starting_bid" form:"starting_bid"`
	ImageURL    string `json:"image_url" form:"image_url"`
	Category    string `json:"category" form:"category"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type RegisterRequest struct {
	Username     string `json:"username" form:"username"`
	Email        string `json:"email" form:"email"`
	Password     string `json:"password" form:"password"`
	Confirmation string `json:"confirmation" form:"confirmation"`
}

// Response DTOs
type ListingResponse struct {
	Listing     models.Listing   `json:"listing"`
	Comments    []models.Comment `json:"comments"`
	BidCount    int              `json:"bid_count"`
	InWatchlist bool             `json:"in_watchlist"`
	IsOwner     bool             `json:"is_owner"`
	IsWinner    bool             `json:"is_winner"`
}

type WatchlistToggleResponse struct {
	ListingID   int64 `json:"listing_id"`
	InWatchlist bool  `json:"in_watchlist"`
}

type CreateFormResponse struct {
	Categories []models.Category `json:"categories"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}
