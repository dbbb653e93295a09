// Package repository contains the SQL data access layer.  Methods with a
// Tx suffix run inside a caller-owned transaction and never commit.
//
// This file holds sentinel errors shared by several repositories and the
// MySQL error classification used to produce them.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert or update violates a unique key,
// such as a second seat at the same theater position.
var ErrDuplicate = errors.New("duplicate entry")

// ErrInUse is returned when a delete is blocked by rows that still
// reference the target, such as a theater with scheduled showtimes.
var ErrInUse = errors.New("referenced by other records")

// ErrNoChange indicates an UPDATE matched the row but changed nothing.
var ErrNoChange = errors.New("no change")

// MySQL server error numbers this package reacts to.
const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// mapWriteErr converts constraint violations into package sentinels.
func mapWriteErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return ErrDuplicate
		case mysqlRowIsReferenced:
			return ErrInUse
		}
	}
	return err
}

// isMissingParent reports a foreign key failure on insert (1452).
func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferencedRow
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func uint64Args(ids []uint64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
