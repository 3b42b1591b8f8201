package repository

import (
	"errors"
	"fmt"

	"auctions/internal/auctionerrors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver error codes for the constraint violations the store maps onto domain errors
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	mysqlDuplicateEntry     = 1062
	mysqlNoReferencedRow    = 1452
	mysqlNoReferencedRowOld = 1216
)

func uniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pgUniqueViolation
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return false
}

func foreignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pgForeignKeyViolation
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlNoReferencedRow || me.Number == mysqlNoReferencedRowOld
	}
	return false
}

// insertError wraps a failed insert; a missing referenced row becomes ErrNotFound
func insertError(err error, format string, args ...any) error {
	if foreignKeyViolation(err) {
		return fmt.Errorf(format+": %w: %v", append(args, auctionerrors.ErrNotFound, err)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
