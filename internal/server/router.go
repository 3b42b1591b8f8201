package server

import (
	"html/template"
	"time"

	"auctions/services/auction/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Auctions     handler.AuctionServiceInterface
	Auth         handler.AuthServiceInterface
	Tokens       Authenticator
	Store        handler.Pinger
	Templates    *template.Template
	TokenTTL     time.Duration
	SecureCookie bool
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestIDMiddleware)     // X-Request-ID
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(AuthMiddleware(deps.Tokens))

	if deps.Templates != nil {
		router.SetHTMLTemplate(deps.Templates)
	}

	auctionHandler := handler.NewAuctionHandler(deps.Auctions)
	authHandler := handler.NewAuthHandler(deps.Auth, deps.TokenTTL, deps.SecureCookie)
	healthHandler := handler.NewHealthHandler(deps.Store)

	router.GET("/", auctionHandler.IndexHandler)

	listings := router.Group("/listings")
	{
		listings.GET("/:id", auctionHandler.ListingHandler)
		listings.GET("/:id/bids", auctionHandler.ListBidsHandler)
		listings.POST("/:id/bid", auctionHandler.PlaceBidHandler)
		listings.POST("/:id/close", auctionHandler.CloseAuctionHandler)
		listings.POST("/:id/comment", auctionHandler.AddCommentHandler)
	}

	watchlist := router.Group("/watchlist")
	{
		watchlist.GET("", auctionHandler.WatchlistHandler)
		watchlist.POST("/:id/toggle", auctionHandler.ToggleWatchlistHandler)
	}

	router.GET("/create", auctionHandler.CreateFormHandler)
	router.POST("/create", auctionHandler.CreateListingHandler)

	categories := router.Group("/categories")
	{
		categories.GET("", auctionHandler.CategoriesHandler)
		categories.GET("/:id", auctionHandler.CategoryHandler)
	}

	router.GET("/login", authHandler.LoginFormHandler)
	router.POST("/login", authHandler.LoginHandler)
	router.GET("/register", authHandler.RegisterFormHandler)
	router.POST("/register", authHandler.RegisterHandler)
	router.GET("/logout", authHandler.LogoutHandler)
	router.POST("/logout", authHandler.LogoutHandler)

	health := router.Group("/health")
	{
		health.GET("", healthHandler.LiveHandler)
		health.GET("/ready", healthHandler.ReadyHandler)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
