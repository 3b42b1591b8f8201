package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"auctions/internal/auctionerrors"
	model "auctions/internal/models"
)

var errReadOnly = errors.New("write attempted in read-only transaction")

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Update transactions are serialized; a failed Update undoes its writes.
type MemoryRepo struct {
	mu         sync.RWMutex
	seq        int64
	users      map[int64]model.User
	usernames  map[string]int64
	categories map[int64]model.Category
	catNames   map[string]int64
	listings   map[int64]model.Listing   // key: listingID -> listing without derived fields
	bids       map[int64][]model.Bid     // key: listingID -> bids in insertion order
	comments   map[int64][]model.Comment // key: listingID -> comments in insertion order
	watchlists map[int64]model.Watchlist // key: userID -> watchlist
	watched    map[int64]map[int64]bool  // key: watchlistID -> set of listingIDs
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:      make(map[int64]model.User),
		usernames:  make(map[string]int64),
		categories: make(map[int64]model.Category),
		catNames:   make(map[string]int64),
		listings:   make(map[int64]model.Listing),
		bids:       make(map[int64][]model.Bid),
		comments:   make(map[int64][]model.Comment),
		watchlists: make(map[int64]model.Watchlist),
		watched:    make(map[int64]map[int64]bool),
	}
}

// View runs fn under a read lock
func (r *MemoryRepo) View(ctx context.Context, fn func(Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(&memTx{r: r})
}

// Update runs fn under the write lock and reverts its writes when it fails
func (r *MemoryRepo) Update(ctx context.Context, fn func(Querier) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{r: r, writable: true}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
		}
	}()
	return fn(tx)
}

// Ping always succeeds
func (r *MemoryRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (r *MemoryRepo) Close() error {
	return nil
}

// memTx is the Querier handed to View/Update callbacks; the caller holds the lock
type memTx struct {
	r        *MemoryRepo
	writable bool
	undo     []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) write(op string) error {
	if !t.writable {
		return fmt.Errorf("%s: %w", op, errReadOnly)
	}
	return nil
}

func (t *memTx) nextID() int64 {
	t.r.seq++
	return t.r.seq
}

// --- users ---

func (t *memTx) CreateUser(_ context.Context, user *model.User) error {
	if err := t.write("create user"); err != nil {
		return err
	}
	if _, ok := t.r.usernames[user.Username]; ok {
		return fmt.Errorf("create user %s: %w", user.Username, auctionerrors.ErrUsernameTaken)
	}
	user.ID = t.nextID()
	t.r.users[user.ID] = *user
	t.r.usernames[user.Username] = user.ID

	id, name := user.ID, user.Username
	t.undo = append(t.undo, func() {
		delete(t.r.users, id)
		delete(t.r.usernames, name)
	})
	return nil
}

func (t *memTx) GetUserByID(_ context.Context, id int64) (model.User, error) {
	u, ok := t.r.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("get user %d: %w", id, auctionerrors.ErrNotFound)
	}
	return u, nil
}

func (t *memTx) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	id, ok := t.r.usernames[username]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", username, auctionerrors.ErrNotFound)
	}
	return t.GetUserByID(ctx, id)
}

// --- categories ---

func (t *memTx) FindOrCreateCategory(_ context.Context, name string) (model.Category, error) {
	if id, ok := t.r.catNames[name]; ok {
		return t.r.categories[id], nil
	}
	if err := t.write("create category"); err != nil {
		return model.Category{}, err
	}

	c := model.Category{ID: t.nextID(), Name: name}
	t.r.categories[c.ID] = c
	t.r.catNames[name] = c.ID
	t.undo = append(t.undo, func() {
		delete(t.r.categories, c.ID)
		delete(t.r.catNames, name)
	})
	return c, nil
}

func (t *memTx) withCount(c model.Category) model.Category {
	c.ListingCount = 0
	for _, l := range t.r.listings {
		if l.Active && l.CategoryID != nil && *l.CategoryID == c.ID {
			c.ListingCount++
		}
	}
	return c
}

func (t *memTx) GetCategory(_ context.Context, id int64) (model.Category, error) {
	c, ok := t.r.categories[id]
	if !ok {
		return model.Category{}, fmt.Errorf("get category %d: %w", id, auctionerrors.ErrNotFound)
	}
	return t.withCount(c), nil
}

func (t *memTx) ListCategories(_ context.Context) ([]model.Category, error) {
	cats := make([]model.Category, 0, len(t.r.categories))
	for _, c := range t.r.categories {
		cats = append(cats, t.withCount(c))
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

// --- listings ---

// decorate fills the joined and derived fields the SQL store computes in its select
func (t *memTx) decorate(l model.Listing) model.Listing {
	l.CurrentPrice = t.currentPrice(l)
	l.CreatorName = t.r.users[l.CreatorID].Username
	l.CategoryName = nil
	if l.CategoryID != nil {
		if c, ok := t.r.categories[*l.CategoryID]; ok {
			name := c.Name
			l.CategoryName = &name
		}
	}
	l.WinnerName = nil
	if l.WinnerID != nil {
		name := t.r.users[*l.WinnerID].Username
		l.WinnerName = &name
	}
	return l
}

func (t *memTx) currentPrice(l model.Listing) model.Money {
	price := l.StartingBid
	found := false
	for _, b := range t.r.bids[l.ID] {
		if !found || b.Amount > price {
			price = b.Amount
			found = true
		}
	}
	return price
}

func (t *memTx) CreateListing(_ context.Context, listing *model.Listing) error {
	if err := t.write("create listing"); err != nil {
		return err
	}
	if _, ok := t.r.users[listing.CreatorID]; !ok {
		return fmt.Errorf("create listing %q: creator %d: %w", listing.Title, listing.CreatorID, auctionerrors.ErrNotFound)
	}
	listing.ID = t.nextID()
	t.r.listings[listing.ID] = *listing

	id := listing.ID
	t.undo = append(t.undo, func() { delete(t.r.listings, id) })
	return nil
}

func (t *memTx) GetListing(_ context.Context, id int64) (model.Listing, error) {
	l, ok := t.r.listings[id]
	if !ok {
		return model.Listing{}, fmt.Errorf("get listing %d: %w", id, auctionerrors.ErrNotFound)
	}
	return t.decorate(l), nil
}

// GetListingForUpdate needs no extra locking: Update already holds the write lock
func (t *memTx) GetListingForUpdate(ctx context.Context, id int64) (model.Listing, error) {
	return t.GetListing(ctx, id)
}

func sortListings(listings []model.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if !listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].CreatedAt.After(listings[j].CreatedAt)
		}
		return listings[i].ID > listings[j].ID
	})
}

func (t *memTx) ListListings(_ context.Context, filter ListingFilter) ([]model.Listing, error) {
	listings := make([]model.Listing, 0)
	for _, l := range t.r.listings {
		if filter.ActiveOnly && !l.Active {
			continue
		}
		if filter.CategoryID != nil && (l.CategoryID == nil || *l.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.CreatorID != nil && l.CreatorID != *filter.CreatorID {
			continue
		}
		listings = append(listings, t.decorate(l))
	}
	sortListings(listings)
	return listings, nil
}

func (t *memTx) CloseListing(_ context.Context, id int64, winnerID *int64) error {
	if err := t.write("close listing"); err != nil {
		return err
	}
	prev, ok := t.r.listings[id]
	if !ok {
		return fmt.Errorf("close listing %d: %w", id, auctionerrors.ErrNotFound)
	}

	next := prev
	next.Active = false
	next.WinnerID = winnerID
	t.r.listings[id] = next
	t.undo = append(t.undo, func() { t.r.listings[id] = prev })
	return nil
}

// --- bids ---

func (t *memTx) CreateBid(_ context.Context, bid *model.Bid) error {
	if err := t.write("record bid"); err != nil {
		return err
	}
	if _, ok := t.r.listings[bid.ListingID]; !ok {
		return fmt.Errorf("record bid for listing %d: %w", bid.ListingID, auctionerrors.ErrNotFound)
	}
	bidder, ok := t.r.users[bid.BidderID]
	if !ok {
		return fmt.Errorf("record bid by user %d: %w", bid.BidderID, auctionerrors.ErrNotFound)
	}
	bid.ID = t.nextID()
	bid.BidderName = bidder.Username
	t.r.bids[bid.ListingID] = append(t.r.bids[bid.ListingID], *bid)

	listingID := bid.ListingID
	t.undo = append(t.undo, func() {
		bids := t.r.bids[listingID]
		t.r.bids[listingID] = bids[:len(bids)-1]
	})
	return nil
}

func (t *memTx) GetHighestBid(_ context.Context, listingID int64) (model.Bid, error) {
	bids := t.r.bids[listingID]
	if len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get winning bid for listing %d: %w", listingID, auctionerrors.ErrNoBids)
	}

	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > winning.Amount || (b.Amount == winning.Amount && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}
	return winning, nil
}

func (t *memTx) GetBidsByListing(_ context.Context, listingID int64) ([]model.Bid, error) {
	bids := t.r.bids[listingID]
	out := make([]model.Bid, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- {
		out = append(out, bids[i])
	}
	return out, nil
}

func (t *memTx) CurrentPrice(_ context.Context, listingID int64) (model.Money, error) {
	l, ok := t.r.listings[listingID]
	if !ok {
		return 0, fmt.Errorf("current price for listing %d: %w", listingID, auctionerrors.ErrNotFound)
	}
	return t.currentPrice(l), nil
}

// --- comments ---

func (t *memTx) CreateComment(_ context.Context, comment *model.Comment) error {
	if err := t.write("create comment"); err != nil {
		return err
	}
	if _, ok := t.r.listings[comment.ListingID]; !ok {
		return fmt.Errorf("create comment on listing %d: %w", comment.ListingID, auctionerrors.ErrNotFound)
	}
	commenter, ok := t.r.users[comment.CommenterID]
	if !ok {
		return fmt.Errorf("create comment by user %d: %w", comment.CommenterID, auctionerrors.ErrNotFound)
	}
	comment.ID = t.nextID()
	comment.CommenterName = commenter.Username
	t.r.comments[comment.ListingID] = append(t.r.comments[comment.ListingID], *comment)

	listingID := comment.ListingID
	t.undo = append(t.undo, func() {
		cs := t.r.comments[listingID]
		t.r.comments[listingID] = cs[:len(cs)-1]
	})
	return nil
}

func (t *memTx) GetCommentsByListing(_ context.Context, listingID int64) ([]model.Comment, error) {
	cs := t.r.comments[listingID]
	out := make([]model.Comment, 0, len(cs))
	for i := len(cs) - 1; i >= 0; i-- {
		out = append(out, cs[i])
	}
	return out, nil
}

// --- watchlists ---

func (t *memTx) FindWatchlist(_ context.Context, userID int64) (model.Watchlist, error) {
	w, ok := t.r.watchlists[userID]
	if !ok {
		return model.Watchlist{}, fmt.Errorf("find watchlist for user %d: %w", userID, auctionerrors.ErrNotFound)
	}
	return w, nil
}

func (t *memTx) FindOrCreateWatchlist(ctx context.Context, userID int64) (model.Watchlist, error) {
	if w, ok := t.r.watchlists[userID]; ok {
		return w, nil
	}
	if err := t.write("create watchlist"); err != nil {
		return model.Watchlist{}, err
	}
	if _, ok := t.r.users[userID]; !ok {
		return model.Watchlist{}, fmt.Errorf("create watchlist for user %d: %w", userID, auctionerrors.ErrNotFound)
	}

	w := model.Watchlist{ID: t.nextID(), UserID: userID}
	t.r.watchlists[userID] = w
	t.r.watched[w.ID] = make(map[int64]bool)
	t.undo = append(t.undo, func() {
		delete(t.r.watchlists, userID)
		delete(t.r.watched, w.ID)
	})
	return w, nil
}

func (t *memTx) WatchlistContains(_ context.Context, watchlistID, listingID int64) (bool, error) {
	return t.r.watched[watchlistID][listingID], nil
}

func (t *memTx) AddToWatchlist(_ context.Context, watchlistID, listingID int64) error {
	if err := t.write("add to watchlist"); err != nil {
		return err
	}
	set, ok := t.r.watched[watchlistID]
	if !ok {
		return fmt.Errorf("add listing %d to watchlist %d: %w", listingID, watchlistID, auctionerrors.ErrNotFound)
	}
	if set[listingID] {
		return nil
	}
	set[listingID] = true
	t.undo = append(t.undo, func() { delete(set, listingID) })
	return nil
}

func (t *memTx) RemoveFromWatchlist(_ context.Context, watchlistID, listingID int64) error {
	if err := t.write("remove from watchlist"); err != nil {
		return err
	}
	set := t.r.watched[watchlistID]
	if !set[listingID] {
		return nil
	}
	delete(set, listingID)
	t.undo = append(t.undo, func() { set[listingID] = true })
	return nil
}

func (t *memTx) GetWatchlistListings(_ context.Context, userID int64) ([]model.Listing, error) {
	w, ok := t.r.watchlists[userID]
	if !ok {
		return []model.Listing{}, nil
	}
	listings := make([]model.Listing, 0, len(t.r.watched[w.ID]))
	for id := range t.r.watched[w.ID] {
		if l, ok := t.r.listings[id]; ok {
			listings = append(listings, t.decorate(l))
		}
	}
	sortListings(listings)
	return listings, nil
}
