// Command migrate applies the embedded schema and optionally seeds an
// admin account.
//
//	migrate -status
//	migrate -up
//	migrate -admin-email ops@example.com -admin-password '...'
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/movie-reservation/internal/config"
	"github.com/iliyamo/movie-reservation/internal/database"
	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

func main() {
	up := flag.Bool("up", false, "apply pending migrations")
	status := flag.Bool("status", false, "list migrations and when they were applied")
	adminEmail := flag.String("admin-email", "", "create or promote this account to admin")
	adminPass := flag.String("admin-password", "", "password for a newly created admin")
	flag.Parse()

	if !*up && !*status && *adminEmail == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	m := database.NewMigrator(db)
	if *up {
		if err := m.Up(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	if *status {
		migrations, err := m.Status(ctx)
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		for _, mg := range migrations {
			applied := "pending"
			if mg.AppliedAt != nil {
				applied = mg.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-40s %s\n", mg.Version, applied)
		}
	}
	if *adminEmail != "" {
		if err := seedAdmin(ctx, repository.NewUserRepo(db), *adminEmail, *adminPass, cfg.BcryptCost); err != nil {
			log.Fatalf("seed admin: %v", err)
		}
	}
}

// seedAdmin promotes an existing account or creates a new admin.  Public
// registration always yields the user role, so this is the only way to
// bootstrap the first admin.
func seedAdmin(ctx context.Context, users *repository.UserRepo, email, password string, cost int) error {
	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := users.SetRole(ctx, u.ID, model.RoleAdmin); err != nil && !errors.Is(err, repository.ErrNoChange) {
			return err
		}
		log.Printf("seed: %s is admin (id=%d)", u.Email, u.ID)
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}
	if password == "" {
		return errors.New("-admin-password is required to create a new account")
	}
	id, err := users.Create(ctx, email, password, model.RoleAdmin, cost)
	if err != nil {
		return err
	}
	log.Printf("seed: created admin %s (id=%d)", email, id)
	return nil
}
