package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Options describes how to reach MySQL.
type Options struct {
	User        string
	Pass        string
	Host        string
	Port        string
	Name        string
	LockWaitSec int // innodb_lock_wait_timeout; zero keeps the server default
}

// DSN builds the go-sql-driver DSN for opts.
func DSN(opts Options) string {
	auth := opts.User
	if opts.Pass != "" {
		auth = fmt.Sprintf("%s:%s", opts.User, opts.Pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, opts.Host, opts.Port, opts.Name)
	if opts.LockWaitSec > 0 {
		// unknown DSN params are sent as SET <name>=<value> on every new connection
		dsn += fmt.Sprintf("&innodb_lock_wait_timeout=%d", opts.LockWaitSec)
	}
	return dsn
}

// Open connects to MySQL and verifies the connection.
func Open(opts Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(opts))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
