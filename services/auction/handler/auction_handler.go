package handler

import (
	"context"
	"fmt"
	"net/http"

	auction "auctions/internal/auctionService"
	"auctions/internal/models"
	"auctions/services/auction/helpers"
	"auctions/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_service.go -package=handler auctions/services/auction/handler AuctionServiceInterface,AuthServiceInterface,Pinger

type AuctionServiceInterface interface {
	CreateListing(ctx context.Context, actor models.Actor, input auction.CreateListingInput) (models.Listing, error)
	GetListingDetail(ctx context.Context, actor models.Actor, listingID int64) (auction.ListingDetail, error)
	ListActiveListings(ctx context.Context) ([]models.Listing, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryListings(ctx context.Context, categoryID int64) (auction.CategoryListings, error)
	ListBids(ctx context.Context, listingID int64) ([]models.Bid, error)
	PlaceBid(ctx context.Context, actor models.Actor, listingID int64, amount string) (models.Bid, error)
	CloseAuction(ctx context.Context, actor models.Actor, listingID int64) (models.Listing, error)
	AddComment(ctx context.Context, actor models.Actor, listingID int64, text string) (models.Comment, error)
	ToggleWatchlist(ctx context.Context, actor models.Actor, listingID int64) (bool, error)
	Watchlist(ctx context.Context, actor models.Actor) ([]models.Listing, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

func listingPath(id int64) string {
	return fmt.Sprintf("/listings/%d", id)
}

// fail logs a failed operation and writes the mapped error
func fail(c *gin.Context, handlerName, message string, err error, fields map[string]any) {
	logFailure(handlerName, message, err, fields)
	helpers.RespondError(c, err)
}

// failBack is fail for actions on a listing page; browsers return to the listing with a flash
func failBack(c *gin.Context, id int64, handlerName, message string, err error, fields map[string]any) {
	logFailure(handlerName, message, err, fields)
	helpers.RespondErrorAt(c, listingPath(id), err)
}

func logFailure(handlerName, message string, err error, fields map[string]any) {
	status, _ := helpers.MapErrorToHTTP(err)
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	fields["status"] = status
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+message, fields)
	} else {
		utils.Warn(handlerName+": "+message, fields)
	}
}

// IndexHandler handles GET /
func (h *AuctionHandler) IndexHandler(c *gin.Context) {
	listings, err := h.service.ListActiveListings(c.Request.Context())
	if err != nil {
		fail(c, "IndexHandler", "failed to list listings", err, map[string]any{})
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}

	helpers.Respond(c, http.StatusOK, "index.html", listings, "active listings retrieved successfully")
}

// ListingHandler handles GET /listings/:id
func (h *AuctionHandler) ListingHandler(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		fail(c, "ListingHandler", "invalid listing id", err, map[string]any{})
		return
	}

	actor := helpers.ActorFrom(c)
	detail, err := h.service.GetListingDetail(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, "ListingHandler", "failed to get listing", err, map[string]any{"listing_id": id})
		return
	}
	if detail.Comments == nil {
		detail.Comments = []models.Comment{}
	}

	helpers.Respond(c, http.StatusOK, "listing.html", helpers.ListingResponse(detail), "listing retrieved successfully")
}

// ListBidsHandler handles GET /listings/:id/bids
func (h *AuctionHandler) ListBidsHandler(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		fail(c, "ListBidsHandler", "invalid listing id", err, map[string]any{})
		return
	}

	bids, err := h.service.ListBids(c.Request.Context(), id)
	if err != nil {
		fail(c, "ListBidsHandler", "failed to get bids", err, map[string]any{"listing_id": id})
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}

	helpers.Respond(c, http.StatusOK, "bids.html", bids, "bids retrieved successfully")
	helpers.LogSuccess("ListBidsHandler", "bids retrieved successfully", map[string]any{
		"listing_id": id,
		"count":      len(bids),
	})
}

// PlaceBidHandler handles POST /listings/:id/bid
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		fail(c, "PlaceBidHandler", "invalid listing id", err, map[string]any{})
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBind(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	actor := helpers.ActorFrom(c)
	bid, err := h.service.PlaceBid(c.Request.Context(), actor, id, string(req.Amount))
	if err != nil {
		failBack(c, id, "PlaceBidHandler", "failed to record bid", err, map[string]any{
			"listing_id": id,
			"user_id":    actor.UserID,
			"amount":     string(req.Amount),
		})
		return
	}

	helpers.Redirect(c, listingPath(id), http.StatusCreated, bid, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.ID,
		"listing_id": id,
		"user_id":    actor.UserID,
		"amount":     bid.Amount.String(),
	})
}

// CloseAuctionHandler handles POST /listings/:id/close
func (h *AuctionHandler) CloseAuctionHandler(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		fail(c, "CloseAuctionHandler", "invalid listing id", err, map[string]any{})
		return
	}

	actor := helpers.ActorFrom(c)
	listing, err := h.service.CloseAuction(c.Request.Context(), actor, id)
	if err != nil {
		failBack(c, id, "CloseAuctionHandler", "failed to close auction", err, map[string]any{
			"listing_id": id,
			"user_id":    actor.UserID,
		})
		return
	}

	helpers.Redirect(c, listingPath(id), http.StatusOK, listing, "auction closed successfully")
	helpers.LogSuccess("CloseAuctionHandler", "auction closed successfully", map[string]any{
		"listing_id": id,
		"winner_id":  listing.WinnerID,
	})
}

// AddCommentHandler handles POST /listings/:id/comment
func (h *AuctionHandler) AddCommentHandler(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		fail(c, "AddCommentHandler", "invalid listing id", err, map[string]any{})
		return
	}

	var req helpers.CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		helpers.HandleBindError(c, "AddCommentHandler", err)
		return
	}

	actor := helpers.ActorFrom(c)
	comment, err := h.service.AddComment(c.Request.Context(), actor, id, req.Comment)
	if err != nil {
		failBack(c, id, "AddCommentHandler", "failed to add comment", err, map[string]any{
			"listing_id": id,
			"user_id":    actor.UserID,
		})
		return
	}

	helpers.Redirect(c, listingPath(id), http.StatusCreated, comment, "comment added successfully")
}

// WatchlistHandler handles GET /watchlist
func (h *AuctionHandler) WatchlistHandler(c *gin.Context) {
	actor := helpers.ActorFrom(c)
	listings, err := h.service.Watchlist(c.Request.Context(), actor)
	if err != nil {
		fail(c, "WatchlistHandler", "failed to get watchlist", err, map[string]any{"user_id": actor.UserID})
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}

	helpers.Respond(c, http.StatusOK, "watchlist.html", listings, "watchlist retrieved successfully")
}

// ToggleWatchlistHandler handles POST /watchlist/:id/toggle
func (h *AuctionHandler) ToggleWatchlistHandler(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		fail(c, "ToggleWatchlistHandler", "invalid listing id", err, map[string]any{})
		return
	}

	actor := helpers.ActorFrom(c)
	watching, err := h.service.ToggleWatchlist(c.Request.Context(), actor, id)
	if err != nil {
		failBack(c, id, "ToggleWatchlistHandler", "failed to toggle watchlist", err, map[string]any{
			"listing_id": id,
			"user_id":    actor.UserID,
		})
		return
	}

	message := "removed from watchlist"
	if watching {
		message = "added to watchlist"
	}
	helpers.Redirect(c, listingPath(id), http.StatusOK, helpers.WatchlistToggleResponse{ListingID: id, InWatchlist: watching}, message)
}

// CreateFormHandler handles GET /create
func (h *AuctionHandler) CreateFormHandler(c *gin.Context) {
	if !helpers.ActorFrom(c).Authenticated() {
		helpers.RespondError(c, errUnauthenticated)
		return
	}

	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, "CreateFormHandler", "failed to list categories", err, map[string]any{})
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}

	helpers.Respond(c, http.StatusOK, "create.html", helpers.CreateFormResponse{Categories: categories}, "create form")
}

// CreateListingHandler handles POST /create
func (h *AuctionHandler) CreateListingHandler(c *gin.Context) {
	var req helpers.CreateListingRequest
	if err := c.ShouldBind(&req); err != nil {
		helpers.HandleBindError(c, "CreateListingHandler", err)
		return
	}

	actor := helpers.ActorFrom(c)
	listing, err := h.service.CreateListing(c.Request.Context(), actor, auction.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		StartingBid: string(req.StartingBid),
		ImageURL:    req.ImageURL,
		Category:    req.Category,
	})
	if err != nil {
		utils.Warn("CreateListingHandler: failed to create listing", map[string]any{
			"handler": "CreateListingHandler",
			"user_id": actor.UserID,
			"error":   err.Error(),
		})
		if !actor.Authenticated() {
			helpers.RespondError(c, err)
			return
		}
		categories, catErr := h.service.ListCategories(c.Request.Context())
		if catErr != nil {
			utils.Warn("CreateListingHandler: failed to list categories", map[string]any{
				"handler": "CreateListingHandler",
				"error":   catErr.Error(),
			})
		}
		helpers.RespondForm(c, "create.html", helpers.CreateFormResponse{Categories: categories}, err)
		return
	}

	helpers.Redirect(c, listingPath(listing.ID), http.StatusCreated, listing, "listing created successfully")
	helpers.LogSuccess("CreateListingHandler", "listing created successfully", map[string]any{
		"listing_id": listing.ID,
		"user_id":    actor.UserID,
	})
}

// CategoriesHandler handles GET /categories
func (h *AuctionHandler) CategoriesHandler(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, "CategoriesHandler", "failed to list categories", err, map[string]any{})
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}

	helpers.Respond(c, http.StatusOK, "categories.html", categories, "categories retrieved successfully")
}

// CategoryHandler handles GET /categories/:id
func (h *AuctionHandler) CategoryHandler(c *gin.Context) {
	id, err := helpers.ParseID(c, "id")
	if err != nil {
		fail(c, "CategoryHandler", "invalid category id", err, map[string]any{})
		return
	}

	category, err := h.service.CategoryListings(c.Request.Context(), id)
	if err != nil {
		fail(c, "CategoryHandler", "failed to get category", err, map[string]any{"category_id": id})
		return
	}
	if category.Listings == nil {
		category.Listings = []models.Listing{}
	}

	helpers.Respond(c, http.StatusOK, "category.html", category, "category retrieved successfully")
}
