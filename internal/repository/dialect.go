package repository

import (
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Supported driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// dialect captures the per-database differences the SQL store cares about
type dialect struct {
	name        string
	placeholder squirrel.PlaceholderFormat
	// returning selects INSERT ... RETURNING id instead of LastInsertId
	returning bool
	// rowLock is appended to the listing lock query; empty when the driver serializes writers itself
	rowLock    string
	readOnlyTx bool
	schema     []string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			name:        DriverSQLite,
			placeholder: squirrel.Question,
			schema:      sqliteSchema,
		}, nil
	case DriverPostgres:
		return dialect{
			name:        DriverPostgres,
			placeholder: squirrel.Dollar,
			returning:   true,
			rowLock:     "FOR UPDATE",
			readOnlyTx:  true,
			schema:      postgresSchema,
		}, nil
	case DriverMySQL:
		return dialect{
			name:        DriverMySQL,
			placeholder: squirrel.Question,
			rowLock:     "FOR UPDATE",
			readOnlyTx:  true,
			schema:      mysqlSchema,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		starting_bid INTEGER NOT NULL CHECK (starting_bid >= 0),
		image_url TEXT NOT NULL DEFAULT '',
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
		creator_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		winner_id INTEGER REFERENCES users(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		bidder_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount INTEGER NOT NULL CHECK (amount > 0),
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_listing_amount ON bids (listing_id, amount)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		commenter_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS watchlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS watchlist_listings (
		watchlist_id INTEGER NOT NULL REFERENCES watchlists(id) ON DELETE CASCADE,
		listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		PRIMARY KEY (watchlist_id, listing_id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(64) NOT NULL,
		description TEXT NOT NULL,
		starting_bid BIGINT NOT NULL CHECK (starting_bid >= 0),
		image_url VARCHAR(200) NOT NULL DEFAULT '',
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		creator_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		winner_id BIGINT REFERENCES users(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id BIGSERIAL PRIMARY KEY,
		listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		bidder_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL CHECK (amount > 0),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_listing_amount ON bids (listing_id, amount)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		commenter_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS watchlists (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS watchlist_listings (
		watchlist_id BIGINT NOT NULL REFERENCES watchlists(id) ON DELETE CASCADE,
		listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		PRIMARY KEY (watchlist_id, listing_id)
	)`,
}

// Names use a binary collation so lookups stay case-sensitive like the other backends.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(150) COLLATE utf8mb4_bin NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) COLLATE utf8mb4_bin NOT NULL UNIQUE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS listings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(64) NOT NULL,
		description TEXT NOT NULL,
		starting_bid BIGINT NOT NULL CHECK (starting_bid >= 0),
		image_url VARCHAR(200) NOT NULL DEFAULT '',
		category_id BIGINT NULL,
		creator_id BIGINT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		winner_id BIGINT NULL,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL,
		FOREIGN KEY (creator_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (winner_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bids (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		listing_id BIGINT NOT NULL,
		bidder_id BIGINT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		created_at DATETIME(6) NOT NULL,
		INDEX idx_bids_listing_amount (listing_id, amount),
		FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE,
		FOREIGN KEY (bidder_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		listing_id BIGINT NOT NULL,
		commenter_id BIGINT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE,
		FOREIGN KEY (commenter_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS watchlists (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS watchlist_listings (
		watchlist_id BIGINT NOT NULL,
		listing_id BIGINT NOT NULL,
		PRIMARY KEY (watchlist_id, listing_id),
		FOREIGN KEY (watchlist_id) REFERENCES watchlists(id) ON DELETE CASCADE,
		FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
