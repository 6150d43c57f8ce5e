// Package repository holds the MySQL data access layer. The sentinel errors
// below let handlers and services tell failure scenarios apart: ErrNotFound
// maps to 404, ErrConflict to 409 (duplicates, rows still referenced) and
// ErrForbidden to 403.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate unique value or a delete of a row
// that other rows still reference.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller may not touch the resource.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// mapErr folds driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry, mysqlRowIsReferenced:
			return ErrConflict
		case mysqlNoReferencedRow:
			return ErrNotFound
		}
	}
	return err
}

// affected turns "0 rows touched" into ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
