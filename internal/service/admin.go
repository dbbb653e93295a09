package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

// AdminService serves the admin reports and user management.
type AdminService struct {
	reports *repository.ReportRepo
	users   *repository.UserRepo
}

func NewAdminService(reports *repository.ReportRepo, users *repository.UserRepo) *AdminService {
	return &AdminService{reports: reports, users: users}
}

// CapacityReport returns seat occupancy for every showtime starting on the
// UTC calendar day of date.
func (s *AdminService) CapacityReport(ctx context.Context, date time.Time) ([]model.CapacityRow, error) {
	if date.IsZero() {
		return nil, invalidRequest("date is required")
	}
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := s.reports.Capacity(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, classify("capacity report", err)
	}
	for i := range rows {
		rows[i].OccupancyPercent = occupancy(rows[i].ReservedSeats, rows[i].TotalSeats)
	}
	return rows, nil
}

// occupancy is reserved/total as a percentage rounded to two decimals.
func occupancy(reserved, total uint32) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(reserved)*10000/float64(total)) / 100
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	out, err := s.users.List(ctx)
	return out, classify("list users", err)
}

// PromoteToAdmin grants the admin role.  Promoting an admin is InvalidState.
func (s *AdminService) PromoteToAdmin(ctx context.Context, id uint64) (*model.User, error) {
	err := s.users.SetRole(ctx, id, model.RoleAdmin)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, notFound("user")
	case errors.Is(err, repository.ErrNoChange):
		return nil, &Error{Kind: KindInvalidState, Message: "user is already an admin"}
	case err != nil:
		return nil, classify("promote user", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("user")
		}
		return nil, classify("load user", err)
	}
	return &u, nil
}
