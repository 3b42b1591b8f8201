package perftests

import (
	"context"
	"fmt"
	"testing"

	auction "auctions/internal/auctionService"
	"auctions/internal/models"
	"auctions/internal/repository"
)

// fixture is a store with one seller, a pool of bidders and a set of listings
type fixture struct {
	repo     repository.AuctionDB
	svc      *auction.Service
	seller   models.Actor
	bidders  []models.Actor
	listings []int64
}

func newMemoryFixture(tb testing.TB, numBidders, numListings int) *fixture {
	tb.Helper()
	return newFixture(tb, repository.NewMemoryRepo(), numBidders, numListings)
}

func newSQLiteFixture(tb testing.TB, numBidders, numListings int) *fixture {
	tb.Helper()
	ctx := context.Background()
	repo, err := repository.Open(ctx, repository.DriverSQLite, ":memory:", 1)
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		tb.Fatalf("failed to migrate: %v", err)
	}
	tb.Cleanup(func() { repo.Close() })
	return newFixture(tb, repo, numBidders, numListings)
}

func newFixture(tb testing.TB, repo repository.AuctionDB, numBidders, numListings int) *fixture {
	tb.Helper()
	ctx := context.Background()
	f := &fixture{repo: repo, svc: auction.NewAuctionService(repo)}

	err := repo.Update(ctx, func(q repository.Querier) error {
		for i := 0; i <= numBidders; i++ {
			u := models.User{Username: fmt.Sprintf("user_%d", i), PasswordHash: "x"}
			if err := q.CreateUser(ctx, &u); err != nil {
				return err
			}
			actor := models.Actor{UserID: u.ID, Username: u.Username}
			if i == 0 {
				f.seller = actor
			} else {
				f.bidders = append(f.bidders, actor)
			}
		}
		return nil
	})
	if err != nil {
		tb.Fatalf("failed to create users: %v", err)
	}

	for i := 0; i < numListings; i++ {
		l, err := f.svc.CreateListing(ctx, f.seller, auction.CreateListingInput{
			Title:       fmt.Sprintf("title_%d", i),
			Description: "Load test listing",
			StartingBid: "1.00",
		})
		if err != nil {
			tb.Fatalf("failed to create listing: %v", err)
		}
		f.listings = append(f.listings, l.ID)
	}
	return f
}

// amount formats cents as a decimal bid
func amount(cents int64) string {
	return models.Money(cents).String()
}
