package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auctions/internal/auctionerrors"
	model "auctions/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	// database/sql drivers selected by DB_DRIVER
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLRepo is the relational implementation of AuctionDB
type SQLRepo struct {
	db      *sqlx.DB
	dialect dialect
}

// Open connects to the database, applies connection settings for the driver and verifies connectivity.
// It does not run migrations; call Migrate for that.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*SQLRepo, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one connection serializes writers and keeps a :memory: database alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlite %q: %w", pragma, err)
			}
		}
	}

	return &SQLRepo{db: db, dialect: d}, nil
}

// NewSQLRepo wraps an existing connection pool
func NewSQLRepo(db *sqlx.DB, driver string) (*SQLRepo, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLRepo{db: db, dialect: d}, nil
}

// Migrate creates any missing tables and indexes
func (r *SQLRepo) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Driver returns the database driver name
func (r *SQLRepo) Driver() string {
	return r.dialect.name
}

// View runs fn in a read-only transaction
func (r *SQLRepo) View(ctx context.Context, fn func(Querier) error) error {
	return r.withTx(ctx, &sql.TxOptions{ReadOnly: r.dialect.readOnlyTx}, fn)
}

// Update runs fn in a read-write transaction
func (r *SQLRepo) Update(ctx context.Context, fn func(Querier) error) error {
	return r.withTx(ctx, &sql.TxOptions{}, fn)
}

func (r *SQLRepo) withTx(ctx context.Context, opts *sql.TxOptions, fn func(Querier) error) error {
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlQuerier{ext: tx, d: r.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (r *SQLRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the connection pool
func (r *SQLRepo) Close() error {
	return r.db.Close()
}

// sqlQuerier implements Querier on top of a transaction
type sqlQuerier struct {
	ext sqlx.ExtContext
	d   dialect
}

func (q *sqlQuerier) get(ctx context.Context, dest any, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, q.ext, dest, query, args...)
}

func (q *sqlQuerier) selectAll(ctx context.Context, dest any, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}

func (q *sqlQuerier) exec(ctx context.Context, b squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.ext.ExecContext(ctx, query, args...)
}

// insert runs the statement and returns the generated id
func (q *sqlQuerier) insert(ctx context.Context, b squirrel.InsertBuilder) (int64, error) {
	b = b.PlaceholderFormat(q.d.placeholder)
	if q.d.returning {
		query, args, err := b.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("build query: %w", err)
		}
		var id int64
		if err := q.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := q.exec(ctx, b)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *sqlQuerier) sel(columns ...string) squirrel.SelectBuilder {
	return squirrel.Select(columns...).PlaceholderFormat(q.d.placeholder)
}

// notFound maps sql.ErrNoRows onto the domain error
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, auctionerrors.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// --- users ---

func (q *sqlQuerier) CreateUser(ctx context.Context, user *model.User) error {
	id, err := q.insert(ctx, squirrel.Insert("users").
		Columns("username", "email", "password_hash", "created_at").
		Values(user.Username, user.Email, user.PasswordHash, user.CreatedAt))
	if uniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", user.Username, auctionerrors.ErrUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	user.ID = id
	return nil
}

func (q *sqlQuerier) userSelect() squirrel.SelectBuilder {
	return q.sel("id", "username", "email", "password_hash", "created_at").From("users")
}

func (q *sqlQuerier) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	if err := q.get(ctx, &u, q.userSelect().Where(squirrel.Eq{"id": id})); err != nil {
		return model.User{}, notFound(err, "get user %d", id)
	}
	return u, nil
}

func (q *sqlQuerier) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	if err := q.get(ctx, &u, q.userSelect().Where(squirrel.Eq{"username": username})); err != nil {
		return model.User{}, notFound(err, "get user %s", username)
	}
	return u, nil
}

// --- categories ---

func (q *sqlQuerier) FindOrCreateCategory(ctx context.Context, name string) (model.Category, error) {
	var c model.Category
	err := q.get(ctx, &c, q.sel("id", "name").From("categories").Where(squirrel.Eq{"name": name}))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, fmt.Errorf("find category %s: %w", name, err)
	}

	id, err := q.insert(ctx, squirrel.Insert("categories").Columns("name").Values(name))
	if err != nil {
		return model.Category{}, fmt.Errorf("create category %s: %w", name, err)
	}
	return model.Category{ID: id, Name: name}, nil
}

func (q *sqlQuerier) categorySelect() squirrel.SelectBuilder {
	return q.sel("c.id", "c.name", "COUNT(l.id) AS listing_count").
		From("categories c").
		LeftJoin("listings l ON l.category_id = c.id AND l.active = ?", true).
		GroupBy("c.id", "c.name")
}

func (q *sqlQuerier) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	if err := q.get(ctx, &c, q.categorySelect().Where(squirrel.Eq{"c.id": id})); err != nil {
		return model.Category{}, notFound(err, "get category %d", id)
	}
	return c, nil
}

func (q *sqlQuerier) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := q.selectAll(ctx, &cats, q.categorySelect().OrderBy("c.name")); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// --- listings ---

const currentPriceExpr = "COALESCE((SELECT MAX(b.amount) FROM bids b WHERE b.listing_id = l.id), l.starting_bid)"

func (q *sqlQuerier) listingSelect() squirrel.SelectBuilder {
	return q.sel(
		"l.id", "l.title", "l.description", "l.starting_bid",
		currentPriceExpr+" AS current_price",
		"l.image_url", "l.category_id", "c.name AS category_name",
		"l.creator_id", "u.username AS creator_name",
		"l.created_at", "l.active", "l.winner_id", "w.username AS winner_name",
	).
		From("listings l").
		Join("users u ON u.id = l.creator_id").
		LeftJoin("categories c ON c.id = l.category_id").
		LeftJoin("users w ON w.id = l.winner_id")
}

func (q *sqlQuerier) CreateListing(ctx context.Context, listing *model.Listing) error {
	id, err := q.insert(ctx, squirrel.Insert("listings").
		Columns("title", "description", "starting_bid", "image_url", "category_id", "creator_id", "created_at", "active").
		Values(listing.Title, listing.Description, listing.StartingBid, listing.ImageURL,
			listing.CategoryID, listing.CreatorID, listing.CreatedAt, listing.Active))
	if err != nil {
		return insertError(err, "create listing %q", listing.Title)
	}
	listing.ID = id
	return nil
}

func (q *sqlQuerier) GetListing(ctx context.Context, id int64) (model.Listing, error) {
	var l model.Listing
	if err := q.get(ctx, &l, q.listingSelect().Where(squirrel.Eq{"l.id": id})); err != nil {
		return model.Listing{}, notFound(err, "get listing %d", id)
	}
	return l, nil
}

func (q *sqlQuerier) GetListingForUpdate(ctx context.Context, id int64) (model.Listing, error) {
	if q.d.rowLock != "" {
		var lockedID int64
		lock := q.sel("id").From("listings").Where(squirrel.Eq{"id": id}).Suffix(q.d.rowLock)
		if err := q.get(ctx, &lockedID, lock); err != nil {
			return model.Listing{}, notFound(err, "lock listing %d", id)
		}
	}
	return q.GetListing(ctx, id)
}

func (q *sqlQuerier) ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error) {
	b := q.listingSelect()
	if filter.ActiveOnly {
		b = b.Where(squirrel.Eq{"l.active": true})
	}
	if filter.CategoryID != nil {
		b = b.Where(squirrel.Eq{"l.category_id": *filter.CategoryID})
	}
	if filter.CreatorID != nil {
		b = b.Where(squirrel.Eq{"l.creator_id": *filter.CreatorID})
	}

	var listings []model.Listing
	if err := q.selectAll(ctx, &listings, b.OrderBy("l.created_at DESC", "l.id DESC")); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}

func (q *sqlQuerier) CloseListing(ctx context.Context, id int64, winnerID *int64) error {
	res, err := q.exec(ctx, squirrel.Update("listings").
		Set("active", false).
		Set("winner_id", winnerID).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(q.d.placeholder))
	if err != nil {
		return fmt.Errorf("close listing %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close listing %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("close listing %d: %w", id, auctionerrors.ErrNotFound)
	}
	return nil
}

// --- bids ---

func (q *sqlQuerier) bidSelect() squirrel.SelectBuilder {
	return q.sel("b.id", "b.listing_id", "b.bidder_id", "u.username AS bidder_name", "b.amount", "b.created_at").
		From("bids b").
		Join("users u ON u.id = b.bidder_id")
}

func (q *sqlQuerier) CreateBid(ctx context.Context, bid *model.Bid) error {
	id, err := q.insert(ctx, squirrel.Insert("bids").
		Columns("listing_id", "bidder_id", "amount", "created_at").
		Values(bid.ListingID, bid.BidderID, bid.Amount, bid.CreatedAt))
	if err != nil {
		return insertError(err, "record bid for listing %d", bid.ListingID)
	}
	bid.ID = id
	return nil
}

func (q *sqlQuerier) GetHighestBid(ctx context.Context, listingID int64) (model.Bid, error) {
	var b model.Bid
	err := q.get(ctx, &b, q.bidSelect().
		Where(squirrel.Eq{"b.listing_id": listingID}).
		OrderBy("b.amount DESC", "b.created_at ASC", "b.id ASC").
		Limit(1))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get winning bid for listing %d: %w", listingID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get winning bid for listing %d: %w", listingID, err)
	}
	return b, nil
}

func (q *sqlQuerier) GetBidsByListing(ctx context.Context, listingID int64) ([]model.Bid, error) {
	var bids []model.Bid
	err := q.selectAll(ctx, &bids, q.bidSelect().
		Where(squirrel.Eq{"b.listing_id": listingID}).
		OrderBy("b.created_at DESC", "b.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("get bids for listing %d: %w", listingID, err)
	}
	return bids, nil
}

func (q *sqlQuerier) CurrentPrice(ctx context.Context, listingID int64) (model.Money, error) {
	var price model.Money
	err := q.get(ctx, &price, q.sel(currentPriceExpr).From("listings l").Where(squirrel.Eq{"l.id": listingID}))
	if err != nil {
		return 0, notFound(err, "current price for listing %d", listingID)
	}
	return price, nil
}

// --- comments ---

func (q *sqlQuerier) CreateComment(ctx context.Context, comment *model.Comment) error {
	id, err := q.insert(ctx, squirrel.Insert("comments").
		Columns("listing_id", "commenter_id", "text", "created_at").
		Values(comment.ListingID, comment.CommenterID, comment.Text, comment.CreatedAt))
	if err != nil {
		return insertError(err, "create comment on listing %d", comment.ListingID)
	}
	comment.ID = id
	return nil
}

func (q *sqlQuerier) GetCommentsByListing(ctx context.Context, listingID int64) ([]model.Comment, error) {
	var comments []model.Comment
	err := q.selectAll(ctx, &comments, q.sel(
		"cm.id", "cm.listing_id", "cm.commenter_id", "u.username AS commenter_name", "cm.text", "cm.created_at").
		From("comments cm").
		Join("users u ON u.id = cm.commenter_id").
		Where(squirrel.Eq{"cm.listing_id": listingID}).
		OrderBy("cm.created_at DESC", "cm.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("get comments for listing %d: %w", listingID, err)
	}
	return comments, nil
}

// --- watchlists ---

func (q *sqlQuerier) FindWatchlist(ctx context.Context, userID int64) (model.Watchlist, error) {
	var w model.Watchlist
	if err := q.get(ctx, &w, q.sel("id", "user_id").From("watchlists").Where(squirrel.Eq{"user_id": userID})); err != nil {
		return model.Watchlist{}, notFound(err, "find watchlist for user %d", userID)
	}
	return w, nil
}

func (q *sqlQuerier) FindOrCreateWatchlist(ctx context.Context, userID int64) (model.Watchlist, error) {
	w, err := q.FindWatchlist(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, auctionerrors.ErrNotFound) {
		return model.Watchlist{}, err
	}

	id, err := q.insert(ctx, squirrel.Insert("watchlists").Columns("user_id").Values(userID))
	if err != nil {
		return model.Watchlist{}, insertError(err, "create watchlist for user %d", userID)
	}
	return model.Watchlist{ID: id, UserID: userID}, nil
}

func (q *sqlQuerier) WatchlistContains(ctx context.Context, watchlistID, listingID int64) (bool, error) {
	var n int
	err := q.get(ctx, &n, q.sel("COUNT(*)").From("watchlist_listings").
		Where(squirrel.Eq{"watchlist_id": watchlistID, "listing_id": listingID}))
	if err != nil {
		return false, fmt.Errorf("watchlist %d contains listing %d: %w", watchlistID, listingID, err)
	}
	return n > 0, nil
}

func (q *sqlQuerier) AddToWatchlist(ctx context.Context, watchlistID, listingID int64) error {
	_, err := q.exec(ctx, squirrel.Insert("watchlist_listings").
		Columns("watchlist_id", "listing_id").
		Values(watchlistID, listingID).
		PlaceholderFormat(q.d.placeholder))
	if err != nil {
		return fmt.Errorf("add listing %d to watchlist %d: %w", listingID, watchlistID, err)
	}
	return nil
}

func (q *sqlQuerier) RemoveFromWatchlist(ctx context.Context, watchlistID, listingID int64) error {
	_, err := q.exec(ctx, squirrel.Delete("watchlist_listings").
		Where(squirrel.Eq{"watchlist_id": watchlistID, "listing_id": listingID}).
		PlaceholderFormat(q.d.placeholder))
	if err != nil {
		return fmt.Errorf("remove listing %d from watchlist %d: %w", listingID, watchlistID, err)
	}
	return nil
}

func (q *sqlQuerier) GetWatchlistListings(ctx context.Context, userID int64) ([]model.Listing, error) {
	var listings []model.Listing
	err := q.selectAll(ctx, &listings, q.listingSelect().
		Join("watchlist_listings wl ON wl.listing_id = l.id").
		Join("watchlists wt ON wt.id = wl.watchlist_id").
		Where(squirrel.Eq{"wt.user_id": userID}).
		OrderBy("l.created_at DESC", "l.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("get watchlist listings for user %d: %w", userID, err)
	}
	return listings, nil
}
