package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"auctions/internal/auctionerrors"
	model "auctions/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newPostgresMock(t *testing.T) (*SQLRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewSQLRepo(sqlx.NewDb(db, "postgres"), DriverPostgres)
	require.NoError(t, err)
	return repo, mock
}

func TestSQLRepo_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := NewSQLRepo(nil, "oracle")
	require.Error(t, err)

	_, err = Open(context.Background(), "oracle", "", 0)
	require.Error(t, err)
}

func TestSQLRepo_GetListingForUpdateLocksRow(t *testing.T) {
	t.Parallel()

	repo, mock := newPostgresMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM listings WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT l.id, .* FROM listings l JOIN users u .* WHERE l.id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "starting_bid", "current_price", "image_url",
			"category_id", "category_name", "creator_id", "creator_name", "created_at", "active", "winner_id", "winner_name",
		}).AddRow(7, "Lamp", "desc", 1000, 1500, "", nil, nil, 1, "alice", now, true, nil, nil))
	mock.ExpectCommit()

	var got model.Listing
	err := repo.Update(context.Background(), func(q Querier) error {
		var err error
		got, err = q.GetListingForUpdate(context.Background(), 7)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, model.Money(1500), got.CurrentPrice)
	require.Equal(t, "alice", got.CreatorName)
	require.Nil(t, got.CategoryName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_InsertUsesReturning(t *testing.T) {
	t.Parallel()

	repo, mock := newPostgresMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO bids \(listing_id,bidder_id,amount,created_at\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING id`).
		WithArgs(int64(3), int64(2), int64(1200), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	bid := model.Bid{ListingID: 3, BidderID: 2, Amount: 1200, CreatedAt: now}
	err := repo.Update(context.Background(), func(q Querier) error {
		return q.CreateBid(context.Background(), &bid)
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), bid.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_UpdateRollsBackOnError(t *testing.T) {
	t.Parallel()

	repo, mock := newPostgresMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE listings SET active = \$1, winner_id = \$2 WHERE id = \$3`).
		WithArgs(false, nil, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), func(q Querier) error {
		if err := q.CloseListing(context.Background(), 5, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_CloseMissingListing(t *testing.T) {
	t.Parallel()

	repo, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE listings SET active = \$1, winner_id = \$2 WHERE id = \$3`).
		WithArgs(false, nil, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), func(q Querier) error {
		return q.CloseListing(context.Background(), 99, nil)
	})
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_HighestBidNoRows(t *testing.T) {
	t.Parallel()

	repo, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT b.id, .* FROM bids b JOIN users u ON u.id = b.bidder_id WHERE b.listing_id = \$1 ORDER BY b.amount DESC, b.created_at ASC, b.id ASC LIMIT 1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "listing_id", "bidder_id", "bidder_name", "amount", "created_at"}))
	mock.ExpectCommit()

	err := repo.View(context.Background(), func(q Querier) error {
		_, err := q.GetHighestBid(context.Background(), 4)
		require.ErrorIs(t, err, auctionerrors.ErrNoBids)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_InsertConstraintErrors(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	tests := []struct {
		name    string
		query   string
		pgCode  pq.ErrorCode
		write   func(q Querier) error
		wantErr error
	}{
		{
			name:   "duplicate_username",
			query:  `INSERT INTO users \(username,email,password_hash,created_at\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING id`,
			pgCode: "23505",
			write: func(q Querier) error {
				return q.CreateUser(context.Background(), &model.User{Username: "alice", CreatedAt: now})
			},
			wantErr: auctionerrors.ErrUsernameTaken,
		},
		{
			name:   "bid_by_unknown_user",
			query:  `INSERT INTO bids \(listing_id,bidder_id,amount,created_at\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING id`,
			pgCode: "23503",
			write: func(q Querier) error {
				return q.CreateBid(context.Background(), &model.Bid{ListingID: 3, BidderID: 999, Amount: 1200, CreatedAt: now})
			},
			wantErr: auctionerrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newPostgresMock(t)
			mock.ExpectBegin()
			mock.ExpectQuery(tt.query).WillReturnError(&pq.Error{Code: tt.pgCode})
			mock.ExpectRollback()

			err := repo.Update(context.Background(), tt.write)
			require.ErrorIs(t, err, tt.wantErr)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
