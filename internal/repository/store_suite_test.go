package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auctions/internal/auctionerrors"
	model "auctions/internal/models"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreSuite exercises the AuctionDB contract; it runs against every implementation
type StoreSuite struct {
	suite.Suite
	open func(t *testing.T) AuctionDB
	db   AuctionDB
	ctx  context.Context
	base time.Time
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) AuctionDB { return NewMemoryRepo() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) AuctionDB {
		ctx := context.Background()
		repo, err := Open(ctx, DriverSQLite, ":memory:", 0)
		require.NoError(t, err)
		require.NoError(t, repo.Migrate(ctx))
		return repo
	}})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.db = s.open(s.T())
}

func (s *StoreSuite) TearDownTest() {
	if s.db != nil {
		s.Require().NoError(s.db.Close())
	}
}

func (s *StoreSuite) update(fn func(q Querier) error) {
	s.Require().NoError(s.db.Update(s.ctx, fn))
}

func (s *StoreSuite) createUser(name string) model.User {
	u := model.User{Username: name, Email: name + "@example.com", PasswordHash: "x", CreatedAt: s.base}
	s.update(func(q Querier) error { return q.CreateUser(s.ctx, &u) })
	return u
}

func (s *StoreSuite) createListing(creator model.User, title string, start model.Money, category string, offset time.Duration) model.Listing {
	l := model.Listing{
		Title:       title,
		Description: title + " description",
		StartingBid: start,
		CreatorID:   creator.ID,
		CreatedAt:   s.base.Add(offset),
		Active:      true,
	}
	s.update(func(q Querier) error {
		if category != "" {
			c, err := q.FindOrCreateCategory(s.ctx, category)
			if err != nil {
				return err
			}
			l.CategoryID = &c.ID
		}
		return q.CreateListing(s.ctx, &l)
	})
	return l
}

func (s *StoreSuite) bid(listing model.Listing, bidder model.User, amount model.Money, offset time.Duration) model.Bid {
	b := model.Bid{ListingID: listing.ID, BidderID: bidder.ID, Amount: amount, CreatedAt: s.base.Add(offset)}
	s.update(func(q Querier) error { return q.CreateBid(s.ctx, &b) })
	return b
}

func (s *StoreSuite) getListing(id int64) model.Listing {
	var l model.Listing
	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		var err error
		l, err = q.GetListing(s.ctx, id)
		return err
	}))
	return l
}

func (s *StoreSuite) TestUsers() {
	alice := s.createUser("alice")
	s.NotZero(alice.ID)

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		byName, err := q.GetUserByUsername(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(alice.ID, byName.ID)
		s.Equal("alice@example.com", byName.Email)

		byID, err := q.GetUserByID(s.ctx, alice.ID)
		s.Require().NoError(err)
		s.Equal("alice", byID.Username)

		_, err = q.GetUserByUsername(s.ctx, "Alice")
		s.ErrorIs(err, auctionerrors.ErrNotFound)

		_, err = q.GetUserByID(s.ctx, 999)
		s.ErrorIs(err, auctionerrors.ErrNotFound)
		return nil
	}))

	dup := model.User{Username: "alice", CreatedAt: s.base}
	s.Error(s.db.Update(s.ctx, func(q Querier) error { return q.CreateUser(s.ctx, &dup) }))
}

func (s *StoreSuite) TestListingDerivedFields() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	l := s.createListing(alice, "Lamp", 1000, "Home", 0)
	got := s.getListing(l.ID)
	s.Equal("Lamp", got.Title)
	s.Equal(model.Money(1000), got.StartingBid)
	s.Equal(model.Money(1000), got.CurrentPrice)
	s.Equal("alice", got.CreatorName)
	s.Require().NotNil(got.CategoryName)
	s.Equal("Home", *got.CategoryName)
	s.True(got.Active)
	s.Nil(got.WinnerID)
	s.True(got.CreatedAt.Equal(s.base))

	s.bid(l, bob, 1500, time.Minute)
	got = s.getListing(l.ID)
	s.Equal(model.Money(1500), got.CurrentPrice)

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		price, err := q.CurrentPrice(s.ctx, l.ID)
		s.Require().NoError(err)
		s.Equal(model.Money(1500), price)

		_, err = q.CurrentPrice(s.ctx, 999)
		s.ErrorIs(err, auctionerrors.ErrNotFound)

		_, err = q.GetListing(s.ctx, 999)
		s.ErrorIs(err, auctionerrors.ErrNotFound)
		return nil
	}))
}

func (s *StoreSuite) TestListingWithoutCategory() {
	alice := s.createUser("alice")
	l := s.createListing(alice, "Mystery", 100, "", 0)

	got := s.getListing(l.ID)
	s.Nil(got.CategoryID)
	s.Nil(got.CategoryName)
}

func (s *StoreSuite) TestListListingsFilters() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	older := s.createListing(alice, "Older", 100, "Books", 0)
	newer := s.createListing(bob, "Newer", 100, "Books", time.Hour)
	other := s.createListing(alice, "Other", 100, "Toys", 2*time.Hour)

	s.update(func(q Querier) error { return q.CloseListing(s.ctx, other.ID, nil) })

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		all, err := q.ListListings(s.ctx, ListingFilter{})
		s.Require().NoError(err)
		s.Equal([]int64{other.ID, newer.ID, older.ID}, listingIDs(all))

		active, err := q.ListListings(s.ctx, ListingFilter{ActiveOnly: true})
		s.Require().NoError(err)
		s.Equal([]int64{newer.ID, older.ID}, listingIDs(active))

		byCreator, err := q.ListListings(s.ctx, ListingFilter{CreatorID: &alice.ID})
		s.Require().NoError(err)
		s.Equal([]int64{other.ID, older.ID}, listingIDs(byCreator))

		books, err := q.ListListings(s.ctx, ListingFilter{ActiveOnly: true, CategoryID: older.CategoryID})
		s.Require().NoError(err)
		s.Equal([]int64{newer.ID, older.ID}, listingIDs(books))
		return nil
	}))
}

func (s *StoreSuite) TestCategories() {
	alice := s.createUser("alice")
	s.createListing(alice, "A", 100, "Books", 0)
	s.createListing(alice, "B", 100, "Books", time.Minute)
	closed := s.createListing(alice, "C", 100, "Art", 2*time.Minute)
	s.update(func(q Querier) error { return q.CloseListing(s.ctx, closed.ID, nil) })

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		cats, err := q.ListCategories(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(cats, 2)
		s.Equal("Art", cats[0].Name)
		s.Equal(0, cats[0].ListingCount)
		s.Equal("Books", cats[1].Name)
		s.Equal(2, cats[1].ListingCount)

		c, err := q.GetCategory(s.ctx, cats[1].ID)
		s.Require().NoError(err)
		s.Equal("Books", c.Name)
		s.Equal(2, c.ListingCount)

		_, err = q.GetCategory(s.ctx, 999)
		s.ErrorIs(err, auctionerrors.ErrNotFound)
		return nil
	}))

	// reuse is exact-match: a differently cased name is a new category
	s.update(func(q Querier) error {
		books, err := q.FindOrCreateCategory(s.ctx, "Books")
		s.Require().NoError(err)
		lower, err := q.FindOrCreateCategory(s.ctx, "books")
		s.Require().NoError(err)
		s.NotEqual(books.ID, lower.ID)
		return nil
	})
}

func (s *StoreSuite) TestHighestBidTieBreak() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	carol := s.createUser("carol")
	l := s.createListing(alice, "Clock", 100, "", 0)

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		_, err := q.GetHighestBid(s.ctx, l.ID)
		s.ErrorIs(err, auctionerrors.ErrNoBids)
		return nil
	}))

	s.bid(l, bob, 500, 2*time.Minute)
	early := s.bid(l, carol, 500, time.Minute)
	s.bid(l, bob, 200, 3*time.Minute)

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		top, err := q.GetHighestBid(s.ctx, l.ID)
		s.Require().NoError(err)
		s.Equal(early.ID, top.ID)
		s.Equal("carol", top.BidderName)

		bids, err := q.GetBidsByListing(s.ctx, l.ID)
		s.Require().NoError(err)
		s.Require().Len(bids, 3)
		s.Equal(model.Money(200), bids[0].Amount)
		s.Equal("bob", bids[0].BidderName)
		return nil
	}))
}

func (s *StoreSuite) TestCloseListing() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	l := s.createListing(alice, "Vase", 100, "", 0)

	s.update(func(q Querier) error { return q.CloseListing(s.ctx, l.ID, &bob.ID) })
	got := s.getListing(l.ID)
	s.False(got.Active)
	s.Require().NotNil(got.WinnerID)
	s.Equal(bob.ID, *got.WinnerID)
	s.Require().NotNil(got.WinnerName)
	s.Equal("bob", *got.WinnerName)

	err := s.db.Update(s.ctx, func(q Querier) error { return q.CloseListing(s.ctx, 999, nil) })
	s.ErrorIs(err, auctionerrors.ErrNotFound)
}

func (s *StoreSuite) TestComments() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	l := s.createListing(alice, "Desk", 100, "", 0)

	for i, text := range []string{"first", "second"} {
		c := model.Comment{ListingID: l.ID, CommenterID: bob.ID, Text: text, CreatedAt: s.base.Add(time.Duration(i) * time.Minute)}
		s.update(func(q Querier) error { return q.CreateComment(s.ctx, &c) })
		s.NotZero(c.ID)
	}

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		comments, err := q.GetCommentsByListing(s.ctx, l.ID)
		s.Require().NoError(err)
		s.Require().Len(comments, 2)
		s.Equal("second", comments[0].Text)
		s.Equal("bob", comments[0].CommenterName)
		return nil
	}))
}

func (s *StoreSuite) TestWatchlist() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	l1 := s.createListing(alice, "One", 100, "", 0)
	l2 := s.createListing(alice, "Two", 100, "", time.Minute)

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		_, err := q.FindWatchlist(s.ctx, bob.ID)
		s.ErrorIs(err, auctionerrors.ErrNotFound)

		listings, err := q.GetWatchlistListings(s.ctx, bob.ID)
		s.Require().NoError(err)
		s.Empty(listings)
		return nil
	}))

	var wid int64
	s.update(func(q Querier) error {
		w, err := q.FindOrCreateWatchlist(s.ctx, bob.ID)
		s.Require().NoError(err)
		again, err := q.FindOrCreateWatchlist(s.ctx, bob.ID)
		s.Require().NoError(err)
		s.Equal(w.ID, again.ID)
		wid = w.ID

		s.Require().NoError(q.AddToWatchlist(s.ctx, wid, l1.ID))
		return q.AddToWatchlist(s.ctx, wid, l2.ID)
	})

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		in, err := q.WatchlistContains(s.ctx, wid, l1.ID)
		s.Require().NoError(err)
		s.True(in)

		listings, err := q.GetWatchlistListings(s.ctx, bob.ID)
		s.Require().NoError(err)
		s.Equal([]int64{l2.ID, l1.ID}, listingIDs(listings))
		return nil
	}))

	s.update(func(q Querier) error { return q.RemoveFromWatchlist(s.ctx, wid, l1.ID) })
	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		in, err := q.WatchlistContains(s.ctx, wid, l1.ID)
		s.Require().NoError(err)
		s.False(in)
		return nil
	}))
}

func (s *StoreSuite) TestUpdateRollsBackOnError() {
	alice := s.createUser("alice")
	l := s.createListing(alice, "Chair", 100, "", 0)
	boom := errors.New("boom")

	err := s.db.Update(s.ctx, func(q Querier) error {
		b := model.Bid{ListingID: l.ID, BidderID: alice.ID, Amount: 900, CreatedAt: s.base}
		if err := q.CreateBid(s.ctx, &b); err != nil {
			return err
		}
		if err := q.CloseListing(s.ctx, l.ID, &alice.ID); err != nil {
			return err
		}
		if _, err := q.FindOrCreateCategory(s.ctx, "Ghost"); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got := s.getListing(l.ID)
	s.True(got.Active)
	s.Nil(got.WinnerID)
	s.Equal(model.Money(100), got.CurrentPrice)

	s.Require().NoError(s.db.View(s.ctx, func(q Querier) error {
		cats, err := q.ListCategories(s.ctx)
		s.Require().NoError(err)
		s.Empty(cats)
		return nil
	}))
}

func (s *StoreSuite) TestConcurrentUpdatesSerialize() {
	alice := s.createUser("alice")
	l := s.createListing(alice, "Coin", 100, "", 0)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.db.Update(s.ctx, func(q Querier) error {
				price, err := q.CurrentPrice(s.ctx, l.ID)
				if err != nil {
					return err
				}
				b := model.Bid{ListingID: l.ID, BidderID: alice.ID, Amount: price + 1, CreatedAt: s.base.Add(time.Duration(i) * time.Second)}
				return q.CreateBid(s.ctx, &b)
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	s.Equal(model.Money(100+workers), s.getListing(l.ID).CurrentPrice)
}

func (s *StoreSuite) TestDuplicateUsername() {
	s.createUser("alice")

	err := s.db.Update(s.ctx, func(q Querier) error {
		dup := model.User{Username: "alice", PasswordHash: "y", CreatedAt: s.base}
		return q.CreateUser(s.ctx, &dup)
	})
	s.ErrorIs(err, auctionerrors.ErrUsernameTaken)

	// Usernames are case-sensitive.
	s.createUser("Alice")
}

func (s *StoreSuite) TestWritesByUnknownUser() {
	alice := s.createUser("alice")
	l := s.createListing(alice, "Lamp", 1000, "", 0)
	const ghost = int64(999)

	tests := []struct {
		name  string
		write func(q Querier) error
	}{
		{"bid", func(q Querier) error {
			return q.CreateBid(s.ctx, &model.Bid{ListingID: l.ID, BidderID: ghost, Amount: 2000, CreatedAt: s.base})
		}},
		{"comment", func(q Querier) error {
			return q.CreateComment(s.ctx, &model.Comment{ListingID: l.ID, CommenterID: ghost, Text: "hi", CreatedAt: s.base})
		}},
		{"watchlist", func(q Querier) error {
			_, err := q.FindOrCreateWatchlist(s.ctx, ghost)
			return err
		}},
		{"listing", func(q Querier) error {
			return q.CreateListing(s.ctx, &model.Listing{Title: "x", Description: "y", CreatorID: ghost, CreatedAt: s.base, Active: true})
		}},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.ErrorIs(s.db.Update(s.ctx, tc.write), auctionerrors.ErrNotFound)
		})
	}

	// Nothing was recorded, so closing finds no winner.
	s.update(func(q Querier) error {
		_, err := q.GetHighestBid(s.ctx, l.ID)
		s.ErrorIs(err, auctionerrors.ErrNoBids)
		comments, err := q.GetCommentsByListing(s.ctx, l.ID)
		s.Empty(comments)
		return err
	})
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.db.Ping(s.ctx))
}

func listingIDs(listings []model.Listing) []int64 {
	ids := make([]int64, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}
